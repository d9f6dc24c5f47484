// Package catalog holds the read-only product and category listing for the
// session and filters it locally.
package catalog

import (
	"context"
	"iter"
	"log"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/MikeMC777/ordenes-storefront/internal/config"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
}

type Cache struct {
	api    API
	routes config.Routes

	mu         sync.RWMutex
	loaded     bool
	products   []Product
	categories []Category
}

func New(api API, routes config.Routes) *Cache {
	return &Cache{api: api, routes: routes}
}

// Load fetches products and categories and replaces the cached set. Nothing
// is replaced unless both fetches succeed.
func (c *Cache) Load(ctx context.Context) error {
	var products []Product
	if err := c.api.Get(ctx, c.routes.Products, &products); err != nil {
		return err
	}
	var categories []Category
	if err := c.api.Get(ctx, c.routes.Categories, &categories); err != nil {
		return err
	}

	kept := products[:0]
	for _, p := range products {
		if !p.Valid() {
			log.Printf("[catalog] dropping product id=%d with negative price %s", p.ID, p.Price)
			continue
		}
		kept = append(kept, p)
	}

	c.mu.Lock()
	c.products = kept
	c.categories = categories
	c.loaded = true
	c.mu.Unlock()
	log.Printf("[catalog] loaded products=%d categories=%d", len(kept), len(categories))
	return nil
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Filter yields the cached products whose name contains query, ignoring
// case. An empty query yields everything. The sequence reads the snapshot
// taken at call time and can be ranged over more than once.
func (c *Cache) Filter(query string) iter.Seq[Product] {
	c.mu.RLock()
	snapshot := c.products
	c.mu.RUnlock()

	query = strings.TrimSpace(query)
	return func(yield func(Product) bool) {
		fold := cases.Fold()
		needle := fold.String(query)
		for _, p := range snapshot {
			if needle != "" && !strings.Contains(fold.String(p.Name), needle) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

func (c *Cache) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Product(nil), c.products...)
}

func (c *Cache) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Category(nil), c.categories...)
}

// Product looks id up in the cached set.
func (c *Cache) Product(id int64) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Fetch reads one product's detail from the backend. The cache is untouched.
func (c *Cache) Fetch(ctx context.Context, id int64) (*Product, error) {
	var p Product
	if err := c.api.Get(ctx, c.routes.ProductPath(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
