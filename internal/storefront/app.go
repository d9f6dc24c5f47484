// Package storefront assembles one shopper session: the token store,
// gateway, catalog, cart, checkout and account services.
package storefront

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/ordenes-storefront/internal/account"
	"github.com/MikeMC777/ordenes-storefront/internal/cart"
	"github.com/MikeMC777/ordenes-storefront/internal/catalog"
	"github.com/MikeMC777/ordenes-storefront/internal/checkout"
	"github.com/MikeMC777/ordenes-storefront/internal/config"
	"github.com/MikeMC777/ordenes-storefront/internal/gateway"
	"github.com/MikeMC777/ordenes-storefront/internal/order"
	"github.com/MikeMC777/ordenes-storefront/internal/session"
)

type App struct {
	Session  *session.Session
	Gateway  *gateway.Gateway
	Account  *account.Service
	Catalog  *catalog.Cache
	Cart     *cart.Synchronizer
	Checkout *checkout.Orchestrator
	Receipts order.Repository

	closers []func()
}

// New wires the components around sess. receipts may be nil.
func New(sess *session.Session, baseURL string, routes config.Routes, receipts order.Repository, opts ...gateway.Option) *App {
	gw := gateway.New(baseURL, sess.Tokens, opts...)
	c := cart.New(gw, routes)
	if receipts == nil {
		receipts = order.NewMemRepo()
	}
	return &App{
		Session:  sess,
		Gateway:  gw,
		Account:  account.NewService(gw, routes, sess, c),
		Catalog:  catalog.New(gw, routes),
		Cart:     c,
		Checkout: checkout.New(gw, routes, c, receipts),
		Receipts: receipts,
	}
}

// Open builds an App from configuration: it picks the token persister,
// restores the session and connects the receipt ledger.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	routes, err := config.LoadRoutes(cfg.RoutesFile)
	if err != nil {
		return nil, err
	}

	var closers []func()
	var persister session.Persister
	switch cfg.TokenBackend {
	case "memory":
		persister = session.NewMemoryPersister()
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, func() { _ = client.Close() })
		persister = session.NewRedisPersister(client, cfg.RedisNamespace)
	case "sqlite", "":
		p, err := session.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = p.Close() })
		persister = p
	default:
		return nil, fmt.Errorf("unknown TOKEN_BACKEND %q", cfg.TokenBackend)
	}

	sess, err := session.Open(ctx, persister)
	if err != nil {
		runAll(closers)
		return nil, err
	}

	var receipts order.Repository
	if cfg.ReceiptsDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.ReceiptsDSN)
		if err != nil {
			runAll(closers)
			return nil, fmt.Errorf("connect receipts db: %w", err)
		}
		closers = append(closers, pool.Close)
		repo := order.NewPGRepo(pool)
		if err := repo.Migrate(ctx); err != nil {
			runAll(closers)
			return nil, fmt.Errorf("migrate receipts db: %w", err)
		}
		receipts = repo
		log.Printf("[storefront] receipts ledger on postgres")
	}

	var opts []gateway.Option
	if cfg.HTTPTimeout > 0 {
		opts = append(opts, gateway.WithTimeout(cfg.HTTPTimeout))
	}
	app := New(sess, cfg.APIBaseURL, routes, receipts, opts...)
	app.closers = closers
	return app, nil
}

// Close releases storage handles. It does not log the shopper out.
func (a *App) Close() { runAll(a.closers) }

func runAll(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
