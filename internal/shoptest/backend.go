// Package shoptest is an in-memory commerce backend for tests. It serves the
// default route set with bearer checks, per-route fault injection and hit
// counting.
package shoptest

import (
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-storefront/internal/catalog"
	"github.com/MikeMC777/ordenes-storefront/internal/config"
)

// ReplyMode selects how add/update answer: the whole cart or just the line.
type ReplyMode int

const (
	ReplyCart ReplyMode = iota
	ReplyLine
)

type Fault struct {
	Status int
	Body   string
}

type line struct {
	ID        int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type Backend struct {
	Server *httptest.Server
	Routes config.Routes

	mu         sync.Mutex
	token      string
	users      map[string]string
	products   map[int64]catalog.Product
	categories []catalog.Category
	lines      []line
	orders     map[int64]gin.H
	nextItem   int64
	nextOrder  int64
	hits       map[string]int
	faults     map[string]Fault
	replyMode  ReplyMode
	gate       chan struct{}
	entered    chan struct{}
}

const Token = "test-access"

func New(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b := &Backend{
		Routes:    config.DefaultRoutes(),
		token:     Token,
		users:     map[string]string{},
		products:  map[int64]catalog.Product{},
		orders:    map[int64]gin.H{},
		nextItem:  100,
		nextOrder: 500,
		hits:      map[string]int{},
		faults:    map[string]Fault{},
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) AddProduct(p catalog.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[p.ID] = p
}

func (b *Backend) RemoveProduct(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.products, id)
}

func (b *Backend) AddCategory(c catalog.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = append(b.categories, c)
}

func (b *Backend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = password
}

// SeedLine puts a line straight into the server cart.
func (b *Backend) SeedLine(productID int64, qty int, unitPrice string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextItem++
	b.lines = append(b.lines, line{ID: b.nextItem, ProductID: productID, Quantity: qty, UnitPrice: decimal.RequireFromString(unitPrice)})
	return b.nextItem
}

func (b *Backend) ClearCart() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

func (b *Backend) SetReplyMode(m ReplyMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replyMode = m
}

// Fail makes every request to method+route answer with f until Heal.
// route is the template, e.g. "/cart/items/:itemId/".
func (b *Backend) Fail(method, route string, f Fault) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[method+" "+route] = f
}

func (b *Backend) Heal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = map[string]Fault{}
}

// HoldOrders makes order creation block until release is called. entered
// receives once for every held request.
func (b *Backend) HoldOrders() (entered <-chan struct{}, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	b.entered = make(chan struct{}, 16)
	gate := b.gate
	var once sync.Once
	return b.entered, func() { once.Do(func() { close(gate) }) }
}

func (b *Backend) Hits(method, route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+route]
}

func (b *Backend) Orders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

func (b *Backend) CartLines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(b.countAndFault())

	r.POST(b.Routes.Signup, b.signup)
	r.POST(b.Routes.Login, b.login)
	r.GET(b.Routes.Products, b.listProducts)
	r.GET(b.Routes.Product, b.getProduct)
	r.GET(b.Routes.Categories, b.listCategories)

	auth := r.Group("", b.requireBearer())
	auth.GET(b.Routes.Profile, b.profile)
	auth.GET(b.Routes.Cart, b.getCart)
	auth.POST(b.Routes.CartAdd, b.addToCart)
	auth.POST(b.Routes.CartUpdate, b.updateCart)
	auth.DELETE(b.Routes.CartRemove, b.removeFromCart)
	auth.POST(b.Routes.OrderCreate, b.createOrder)
	auth.GET(b.Routes.OrderDetail, b.getOrder)
	return r
}

func (b *Backend) countAndFault() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()
		b.mu.Lock()
		b.hits[key]++
		f, failing := b.faults[key]
		b.mu.Unlock()
		if failing {
			c.Data(f.Status, "application/json", []byte(f.Body))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (b *Backend) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+b.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		c.Next()
	}
}

func (b *Backend) issue(c *gin.Context, status int, username string) {
	c.JSON(status, gin.H{
		"user":    gin.H{"id": 1, "username": username},
		"access":  b.token,
		"refresh": "test-refresh",
	})
}

func (b *Backend) signup(c *gin.Context) {
	var in struct{ Username, Email, Password string }
	if err := c.ShouldBindJSON(&in); err != nil || in.Username == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username & password required"})
		return
	}
	b.mu.Lock()
	_, taken := b.users[in.Username]
	if !taken {
		b.users[in.Username] = in.Password
	}
	b.mu.Unlock()
	if taken {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already taken"})
		return
	}
	b.issue(c, http.StatusCreated, in.Username)
}

func (b *Backend) login(c *gin.Context) {
	var in struct{ Username, Password string }
	_ = c.ShouldBindJSON(&in)
	b.mu.Lock()
	pw, ok := b.users[in.Username]
	b.mu.Unlock()
	if !ok || pw != in.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		return
	}
	b.issue(c, http.StatusOK, in.Username)
}

func (b *Backend) profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": 1, "username": "shopper", "email": "shopper@example.com"})
}

func (b *Backend) listProducts(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]catalog.Product, 0, len(b.products))
	for _, id := range slices.Sorted(maps.Keys(b.products)) {
		out = append(out, b.products[id])
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) getProduct(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	b.mu.Lock()
	p, ok := b.products[id]
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (b *Backend) listCategories(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, append([]catalog.Category{}, b.categories...))
}

// lineJSON and cartJSON must be called with b.mu held.
func (b *Backend) lineJSON(l line) gin.H {
	p, ok := b.products[l.ProductID]
	if !ok {
		p = catalog.Product{ID: l.ProductID}
	}
	return gin.H{"id": l.ID, "product": p, "quantity": l.Quantity, "unit_price": l.UnitPrice}
}

func (b *Backend) cartJSON() gin.H {
	items := make([]gin.H, 0, len(b.lines))
	total := decimal.Zero
	for _, l := range b.lines {
		items = append(items, b.lineJSON(l))
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return gin.H{"id": 1, "items": items, "total_amount": total}
}

func (b *Backend) getCart(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.cartJSON())
}

func (b *Backend) reply(c *gin.Context, status int, l line) {
	if b.replyMode == ReplyLine {
		c.JSON(status, b.lineJSON(l))
		return
	}
	c.JSON(status, b.cartJSON())
}

func (b *Backend) addToCart(c *gin.Context) {
	pid, _ := strconv.ParseInt(c.Param("productId"), 10, 64)
	var in struct {
		Quantity int `json:"quantity"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[pid]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	for i := range b.lines {
		if b.lines[i].ProductID == pid {
			b.lines[i].Quantity += in.Quantity
			b.reply(c, http.StatusCreated, b.lines[i])
			return
		}
	}
	b.nextItem++
	l := line{ID: b.nextItem, ProductID: pid, Quantity: in.Quantity, UnitPrice: p.Price}
	b.lines = append(b.lines, l)
	b.reply(c, http.StatusCreated, l)
}

func (b *Backend) updateCart(c *gin.Context) {
	pid, _ := strconv.ParseInt(c.Param("productId"), 10, 64)
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "quantity must be at least 1"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		if b.lines[i].ProductID == pid {
			b.lines[i].Quantity = in.Quantity
			b.reply(c, http.StatusOK, b.lines[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func (b *Backend) removeFromCart(c *gin.Context) {
	iid, _ := strconv.ParseInt(c.Param("itemId"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.lines {
		if l.ID == iid {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"detail": "removed"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func (b *Backend) createOrder(c *gin.Context) {
	b.mu.Lock()
	gate, entered := b.gate, b.entered
	b.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	var in struct {
		ShippingAddress string `json:"shipping_address"`
		PaymentMethod   string `json:"payment_method"`
	}
	_ = c.ShouldBindJSON(&in)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cart empty"})
		return
	}
	cart := b.cartJSON()
	b.nextOrder++
	o := gin.H{
		"id":               b.nextOrder,
		"ordered_at":       time.Now().UTC(),
		"shipping_address": in.ShippingAddress,
		"order_status":     "Pending",
		"payment_method":   in.PaymentMethod,
		"payment_status":   "Pending",
		"total_amount":     cart["total_amount"],
		"order_items":      cart["items"],
	}
	b.orders[b.nextOrder] = o
	b.lines = nil
	c.JSON(http.StatusCreated, o)
}

func (b *Backend) getOrder(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, o)
}
