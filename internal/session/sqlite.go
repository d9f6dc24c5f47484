package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const credentialSchema = `
CREATE TABLE IF NOT EXISTS credentials (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLitePersister stores the credential in a local SQLite file so it
// survives restarts.
type SQLitePersister struct{ db *sqlx.DB }

func OpenSQLite(path string) (*SQLitePersister, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(credentialSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Close() error { return p.db.Close() }

func (p *SQLitePersister) Load(ctx context.Context) (Credential, error) {
	var c Credential
	for key, dst := range map[string]*string{KeyAccess: &c.Access, KeyRefresh: &c.Refresh} {
		err := p.db.GetContext(ctx, dst, `SELECT value FROM credentials WHERE key = ?`, key)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Credential{}, err
		}
	}
	return c, nil
}

func (p *SQLitePersister) Save(ctx context.Context, c Credential) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for key, val := range map[string]string{KeyAccess: c.Access, KeyRefresh: c.Refresh} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, val); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *SQLitePersister) Clear(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM credentials WHERE key IN (?, ?)`, KeyAccess, KeyRefresh)
	return err
}
