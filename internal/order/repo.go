package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("order not found")
)

// Repository is the local receipt ledger: orders this client has seen the
// backend create.
type Repository interface {
	Save(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const Schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id               BIGINT PRIMARY KEY,
	shipping_address TEXT NOT NULL,
	payment_method   TEXT NOT NULL,
	order_status     TEXT NOT NULL,
	payment_status   TEXT NOT NULL,
	total            NUMERIC(12,2) NOT NULL,
	ordered_at       TIMESTAMPTZ NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS receipt_items (
	id           BIGINT NOT NULL,
	receipt_id   BIGINT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
	product_id   BIGINT NOT NULL,
	product_name TEXT NOT NULL,
	quantity     INT NOT NULL,
	unit_price   NUMERIC(12,2) NOT NULL,
	PRIMARY KEY (receipt_id, id)
);`

func (r *PGRepo) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, Schema)
	return err
}

func (r *PGRepo) Save(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO receipts (id, shipping_address, payment_method, order_status, payment_status, total, ordered_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (id) DO NOTHING
  `, o.ID, o.ShippingAddress, string(o.PaymentMethod), o.OrderStatus, o.PaymentStatus, o.TotalAmount.String(), o.OrderedAt); err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO receipt_items (id, receipt_id, product_id, product_name, quantity, unit_price)
      VALUES ($1,$2,$3,$4,$5,$6)
      ON CONFLICT DO NOTHING
    `, it.ID, o.ID, it.Product.ID, it.Product.Name, it.Quantity, it.UnitPrice.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o     Order
		pm    string
		total string
	)
	if err := row.Scan(&o.ID, &o.ShippingAddress, &pm, &o.OrderStatus, &o.PaymentStatus, &total, &o.OrderedAt); err != nil {
		return nil, err
	}
	o.PaymentMethod = PaymentMethod(pm)
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = d
	return &o, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `
    SELECT id, shipping_address, payment_method, order_status, payment_status, total::text, ordered_at
    FROM receipts WHERE id=$1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
    SELECT id, product_id, product_name, quantity, unit_price::text
    FROM receipt_items WHERE receipt_id=$1 ORDER BY id
  `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ID, &it.Product.ID, &it.Product.Name, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit, offset = clampPage(limit, offset)
	rows, err := r.db.Query(ctx, `
    SELECT id, shipping_address, payment_method, order_status, payment_status, total::text, ordered_at
    FROM receipts
    ORDER BY ordered_at DESC LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// MemRepo is the ledger used when no database is configured.
type MemRepo struct {
	mu     sync.Mutex
	orders map[int64]Order
}

func NewMemRepo() *MemRepo { return &MemRepo{orders: make(map[int64]Order)} }

func (m *MemRepo) Save(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.orders[o.ID]; !dup {
		cp := *o
		cp.Items = append([]Item(nil), o.Items...)
		m.orders[o.ID] = cp
	}
	return nil
}

func (m *MemRepo) GetByID(ctx context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *MemRepo) List(ctx context.Context, limit, offset int) ([]Order, error) {
	limit, offset = clampPage(limit, offset)
	m.mu.Lock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderedAt.Equal(out[j].OrderedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OrderedAt.After(out[j].OrderedAt)
	})
	if offset >= len(out) {
		return []Order{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}
