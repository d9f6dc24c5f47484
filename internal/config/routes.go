package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Routes is the backend path set. Deployments disagree on prefixes and on the
// remove-item path, so every template can be overridden from YAML.
type Routes struct {
	Signup      string `yaml:"signup"`
	Login       string `yaml:"login"`
	Profile     string `yaml:"profile"`
	Products    string `yaml:"products"`
	Product     string `yaml:"product"`
	Categories  string `yaml:"categories"`
	Cart        string `yaml:"cart"`
	CartAdd     string `yaml:"cart_add"`
	CartUpdate  string `yaml:"cart_update"`
	CartRemove  string `yaml:"cart_remove"`
	OrderCreate string `yaml:"order_create"`
	OrderDetail string `yaml:"order_detail"`
}

func DefaultRoutes() Routes {
	return Routes{
		Signup:      "/signup/",
		Login:       "/login/",
		Profile:     "/profile/",
		Products:    "/products/",
		Product:     "/products/:id/",
		Categories:  "/categories/",
		Cart:        "/cart/",
		CartAdd:     "/cart/add/:productId/",
		CartUpdate:  "/cart/update/:productId/",
		CartRemove:  "/cart/items/:itemId/",
		OrderCreate: "/orders/create/",
		OrderDetail: "/orders/:id/",
	}
}

// LoadRoutes overlays the YAML file at path onto DefaultRoutes. Keys absent
// from the file keep their defaults. An empty path returns the defaults.
func LoadRoutes(path string) (Routes, error) {
	r := DefaultRoutes()
	if path == "" {
		return r, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read routes: %w", err)
	}
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("parse routes %s: %w", path, err)
	}
	return r, nil
}

func (r Routes) ProductPath(id int64) string     { return expand(r.Product, ":id", id) }
func (r Routes) CartAddPath(pid int64) string    { return expand(r.CartAdd, ":productId", pid) }
func (r Routes) CartUpdatePath(pid int64) string { return expand(r.CartUpdate, ":productId", pid) }
func (r Routes) CartRemovePath(iid int64) string { return expand(r.CartRemove, ":itemId", iid) }
func (r Routes) OrderPath(id int64) string       { return expand(r.OrderDetail, ":id", id) }

func expand(tmpl, key string, v int64) string {
	return strings.ReplaceAll(tmpl, key, strconv.FormatInt(v, 10))
}
