// Package checkout commits the current cart as an order.
package checkout

import (
	"context"
	"log"
	"strings"
	"sync/atomic"

	"github.com/MikeMC777/ordenes-storefront/internal/apperr"
	"github.com/MikeMC777/ordenes-storefront/internal/cart"
	"github.com/MikeMC777/ordenes-storefront/internal/config"
	"github.com/MikeMC777/ordenes-storefront/internal/order"
)

var (
	ErrEmptyCart      = &apperr.Error{Kind: apperr.KindValidation, Op: "checkout.Submit", Detail: "cart is empty"}
	ErrCartNotLoaded  = &apperr.Error{Kind: apperr.KindValidation, Op: "checkout.Submit", Detail: "cart is not loaded"}
	ErrNoAddress      = &apperr.Error{Kind: apperr.KindValidation, Op: "checkout.Submit", Detail: "shipping address is required"}
	ErrPaymentMethod  = &apperr.Error{Kind: apperr.KindValidation, Op: "checkout.Submit", Detail: "payment method must be COD or Card"}
	ErrSubmitInFlight = &apperr.Error{Kind: apperr.KindBusy, Op: "checkout.Submit", Detail: "a checkout is already in progress"}
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
}

// Cart is the part of the cart synchronizer checkout depends on.
type Cart interface {
	State() cart.State
	Empty() bool
	Clear()
}

type Orchestrator struct {
	api      API
	routes   config.Routes
	cart     Cart
	receipts order.Repository

	busy atomic.Bool
}

// New builds an orchestrator. receipts may be nil, in which case created
// orders are not recorded locally.
func New(api API, routes config.Routes, c Cart, receipts order.Repository) *Orchestrator {
	return &Orchestrator{api: api, routes: routes, cart: c, receipts: receipts}
}

// Submit validates locally, then issues exactly one order-creation request.
// A second Submit while one is in flight fails with a Busy error. On success
// the local cart is cleared; on failure it is left as it was.
func (o *Orchestrator) Submit(ctx context.Context, shippingAddress string, method order.PaymentMethod) (*order.Order, error) {
	shippingAddress = strings.TrimSpace(shippingAddress)
	if err := o.validate(shippingAddress, method); err != nil {
		return nil, err
	}

	if !o.busy.CompareAndSwap(false, true) {
		log.Printf("[checkout] rejected concurrent submit")
		return nil, ErrSubmitInFlight
	}
	defer o.busy.Store(false)

	var created order.Order
	req := order.CreateOrderRequest{ShippingAddress: shippingAddress, PaymentMethod: method}
	if err := o.api.Post(ctx, o.routes.OrderCreate, req, &created); err != nil {
		log.Printf("[checkout] submit failed retryable=%t: %v", apperr.Retryable(err), err)
		return nil, err
	}

	o.cart.Clear()
	log.Printf("[checkout] order=%d created total=%s", created.ID, created.TotalAmount)

	if o.receipts != nil {
		if err := o.receipts.Save(ctx, &created); err != nil {
			log.Printf("[checkout] record receipt order=%d: %v", created.ID, err)
		}
	}
	return &created, nil
}

// InFlight reports whether a submission is currently outstanding.
func (o *Orchestrator) InFlight() bool { return o.busy.Load() }

// Order fetches an order from the backend.
func (o *Orchestrator) Order(ctx context.Context, id int64) (*order.Order, error) {
	var out order.Order
	if err := o.api.Get(ctx, o.routes.OrderPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o *Orchestrator) validate(addr string, method order.PaymentMethod) error {
	if o.cart.State() != cart.StateLoaded {
		return ErrCartNotLoaded
	}
	if o.cart.Empty() {
		return ErrEmptyCart
	}
	if addr == "" {
		return ErrNoAddress
	}
	if !method.Valid() {
		return ErrPaymentMethod
	}
	return nil
}
