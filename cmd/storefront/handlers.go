package main

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/ordenes-storefront/internal/catalog"
	"github.com/MikeMC777/ordenes-storefront/internal/httpx"
	"github.com/MikeMC777/ordenes-storefront/internal/order"
	"github.com/MikeMC777/ordenes-storefront/internal/storefront"
)

func newRouter(app *storefront.App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	s := r.Group("/session")
	s.POST("/signup", signupHandler(app))
	s.POST("/login", loginHandler(app))
	s.POST("/logout", logoutHandler(app))
	s.GET("/profile", profileHandler(app))

	r.GET("/catalog", listCatalogHandler(app))
	r.POST("/catalog/refresh", refreshCatalogHandler(app))
	r.GET("/catalog/categories", listCategoriesHandler(app))
	r.GET("/catalog/:id", getProductHandler(app))

	r.GET("/cart", getCartHandler(app))
	r.POST("/cart/load", loadCartHandler(app))
	r.POST("/cart/items", addItemHandler(app))
	r.PATCH("/cart/items/:productId", updateItemHandler(app))
	r.DELETE("/cart/items/:itemId", removeItemHandler(app))

	r.POST("/checkout", checkoutHandler(app))
	r.GET("/orders", listOrdersHandler(app))
	r.GET("/orders/:id", getOrderHandler(app))
	return r
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httpx.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// ---------- session ----------

func signupHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.BadRequest(c, "invalid json")
			return
		}
		u, err := app.Account.Signup(c.Request.Context(), in.Username, in.Email, in.Password)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

func loginHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.BadRequest(c, "invalid json")
			return
		}
		u, err := app.Account.Login(c.Request.Context(), in.Username, in.Password)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func logoutHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Account.Logout(c.Request.Context()); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func profileHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := app.Account.Profile(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// ---------- catalog ----------

func listCatalogHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		items := slices.Collect(app.Catalog.Filter(c.Query("q")))
		if items == nil {
			items = []catalog.Product{}
		}
		c.JSON(http.StatusOK, gin.H{"loaded": app.Catalog.Loaded(), "items": items})
	}
}

func refreshCatalogHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Catalog.Load(c.Request.Context()); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(app.Catalog.Products())})
	}
}

func listCategoriesHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats := app.Catalog.Categories()
		if cats == nil {
			cats = []catalog.Category{}
		}
		c.JSON(http.StatusOK, cats)
	}
}

func getProductHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if p, ok := app.Catalog.Product(id); ok {
			c.JSON(http.StatusOK, p)
			return
		}
		p, err := app.Catalog.Fetch(c.Request.Context(), id)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// ---------- cart ----------

func getCartHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, app.Cart.Snapshot())
	}
}

func loadCartHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Cart.Load(c.Request.Context()); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.Cart.Snapshot())
	}
}

func addItemHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		}
		in.Quantity = 1 // kept when the body omits it
		if err := c.ShouldBindJSON(&in); err != nil || in.ProductID <= 0 {
			httpx.BadRequest(c, "product_id is required")
			return
		}
		if err := app.Cart.Add(c.Request.Context(), in.ProductID, in.Quantity); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.Cart.Snapshot())
	}
}

func updateItemHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := paramID(c, "productId")
		if !ok {
			return
		}
		var in struct {
			Quantity int `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.BadRequest(c, "invalid json")
			return
		}
		if err := app.Cart.UpdateQuantity(c.Request.Context(), pid, in.Quantity); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.Cart.Snapshot())
	}
}

func removeItemHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		iid, ok := paramID(c, "itemId")
		if !ok {
			return
		}
		if err := app.Cart.Remove(c.Request.Context(), iid); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.Cart.Snapshot())
	}
}

// ---------- orders ----------

func checkoutHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in order.CreateOrderRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.BadRequest(c, "invalid json")
			return
		}
		o, err := app.Checkout.Submit(c.Request.Context(), in.ShippingAddress, in.PaymentMethod)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

func listOrdersHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		list, err := app.Receipts.List(c.Request.Context(), limit, offset)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if list == nil {
			list = []order.Order{}
		}
		c.JSON(http.StatusOK, list)
	}
}

func getOrderHandler(app *storefront.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		o, err := app.Checkout.Order(c.Request.Context(), id)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}
