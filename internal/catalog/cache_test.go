package catalog_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/ordenes-storefront/internal/apperr"
	"github.com/MikeMC777/ordenes-storefront/internal/catalog"
	"github.com/MikeMC777/ordenes-storefront/internal/gateway"
	"github.com/MikeMC777/ordenes-storefront/internal/session"
	"github.com/MikeMC777/ordenes-storefront/internal/shoptest"
)

func init() {
	log.SetOutput(io.Discard)
}

func names(seq func(func(catalog.Product) bool)) []string {
	var out []string
	for p := range seq {
		out = append(out, p.Name)
	}
	return out
}

func newCache(t *testing.T) (*catalog.Cache, *shoptest.Backend) {
	t.Helper()
	b := shoptest.New(t)
	b.AddCategory(catalog.Category{ID: 1, Name: "Peripherals"})
	b.AddProduct(catalog.Product{ID: 1, Name: "Mouse Pro", Price: decimal.RequireFromString("99.90"), Stock: 5})
	b.AddProduct(catalog.Product{ID: 2, Name: "Teclado Mecánico", Price: decimal.RequireFromString("149.90")})
	b.AddProduct(catalog.Product{ID: 3, Name: "MOUSEPAD XL", Price: decimal.RequireFromString("19.00"), Stock: 1})
	g := gateway.New(b.URL(), session.NewTokenStore(nil))
	return catalog.New(g, b.Routes), b
}

func TestLoadAndFilter(t *testing.T) {
	c, _ := newCache(t)
	require.False(t, c.Loaded())
	require.NoError(t, c.Load(context.Background()))
	require.True(t, c.Loaded())

	assert.Equal(t, []string{"Mouse Pro", "Teclado Mecánico", "MOUSEPAD XL"}, names(c.Filter("")))
	assert.Equal(t, []string{"Mouse Pro", "MOUSEPAD XL"}, names(c.Filter("mouse")))
	assert.Equal(t, []string{"Teclado Mecánico"}, names(c.Filter("MECÁNICO")))
	assert.Empty(t, names(c.Filter("monitor")))
	assert.Len(t, c.Categories(), 1)
}

func TestFilterIsLocalAndRestartable(t *testing.T) {
	c, b := newCache(t)
	require.NoError(t, c.Load(context.Background()))
	before := b.Hits(http.MethodGet, b.Routes.Products)

	seq := c.Filter("mouse")
	first := names(seq)
	second := names(seq)
	assert.Equal(t, first, second)

	// early break
	for range seq {
		break
	}
	assert.Equal(t, before, b.Hits(http.MethodGet, b.Routes.Products))
	assert.Len(t, c.Products(), 3)
}

func TestLoadReplacesWholeSet(t *testing.T) {
	c, b := newCache(t)
	require.NoError(t, c.Load(context.Background()))
	b.RemoveProduct(1)
	require.NoError(t, c.Load(context.Background()))

	_, ok := c.Product(1)
	assert.False(t, ok)
	p, ok := c.Product(3)
	require.True(t, ok)
	assert.True(t, p.InStock())
}

func TestLoadFailureKeepsPreviousSet(t *testing.T) {
	c, b := newCache(t)
	require.NoError(t, c.Load(context.Background()))
	b.Fail(http.MethodGet, b.Routes.Categories, shoptest.Fault{Status: 500, Body: `{"detail":"boom"}`})

	err := c.Load(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrServer))
	assert.Len(t, c.Products(), 3)
}

func TestLoadDropsNegativePrices(t *testing.T) {
	c, b := newCache(t)
	b.AddProduct(catalog.Product{ID: 4, Name: "Broken", Price: decimal.NewFromInt(-1)})
	require.NoError(t, c.Load(context.Background()))
	assert.False(t, slices.Contains(names(c.Filter("")), "Broken"))
}

func TestFetchDetail(t *testing.T) {
	c, _ := newCache(t)
	p, err := c.Fetch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Teclado Mecánico", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("149.90")))

	_, err = c.Fetch(context.Background(), 42)
	assert.True(t, gateway.IsNotFound(err))
	assert.False(t, c.Loaded(), "Fetch must not populate the cache")
}
