package storefront

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/ordenes-storefront/internal/catalog"
	"github.com/MikeMC777/ordenes-storefront/internal/config"
	"github.com/MikeMC777/ordenes-storefront/internal/order"
	"github.com/MikeMC777/ordenes-storefront/internal/shoptest"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	app, err := Open(ctx, config.Config{APIBaseURL: "http://x", TokenBackend: "memory"})
	require.NoError(t, err)
	assert.False(t, app.Session.Authenticated())
	app.Close()

	app, err = Open(ctx, config.Config{APIBaseURL: "http://x", TokenBackend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "t.db")})
	require.NoError(t, err)
	app.Close()

	_, err = Open(ctx, config.Config{TokenBackend: "floppy"})
	assert.Error(t, err)
}

func TestSessionSurvivesRestartOnSQLite(t *testing.T) {
	ctx := context.Background()
	b := shoptest.New(t)
	b.AddUser("alice", "pw")
	cfg := config.Config{APIBaseURL: b.URL(), TokenBackend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "t.db")}

	app, err := Open(ctx, cfg)
	require.NoError(t, err)
	_, err = app.Account.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	app.Close()

	app, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer app.Close()
	assert.True(t, app.Session.Authenticated())
	require.NoError(t, app.Cart.Load(ctx))
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	b := shoptest.New(t)
	b.AddUser("alice", "pw")
	b.AddProduct(catalog.Product{ID: 7, Name: "Widget", Price: decimal.NewFromInt(10), Stock: 3})

	app, err := Open(ctx, config.Config{APIBaseURL: b.URL(), TokenBackend: "memory"})
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Account.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, app.Catalog.Load(ctx))
	var picked catalog.Product
	for p := range app.Catalog.Filter("widg") {
		picked = p
	}
	require.Equal(t, int64(7), picked.ID)

	require.NoError(t, app.Cart.Load(ctx))
	require.NoError(t, app.Cart.Add(ctx, picked.ID, 2))
	assert.True(t, app.Cart.Total().Equal(decimal.NewFromInt(20)))

	o, err := app.Checkout.Submit(ctx, "1 Main St", order.PaymentCard)
	require.NoError(t, err)
	assert.True(t, app.Cart.Empty())

	list, err := app.Receipts.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)

	require.NoError(t, app.Account.Logout(ctx))
	assert.False(t, app.Session.Authenticated())
	assert.Equal(t, "unloaded", app.Cart.State().String())
}
