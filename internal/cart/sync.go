// Package cart keeps the local cart view consistent with the server cart.
// Every mutation is confirm-then-reflect: local state is written only from
// a successful server reply.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-storefront/internal/apperr"
	"github.com/MikeMC777/ordenes-storefront/internal/config"
)

var (
	ErrNotLoaded  = &apperr.Error{Kind: apperr.KindValidation, Detail: "cart is not loaded"}
	ErrNoSuchItem = &apperr.Error{Kind: apperr.KindValidation, Detail: "no such cart line"}
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string, out any) error
}

type Synchronizer struct {
	api    API
	routes config.Routes

	mu    sync.Mutex
	state State
	items []Item
	// serverTotal is authoritative only while fresh, i.e. straight after a
	// whole-cart reply. Any local merge drops back to recomputing.
	serverTotal decimal.Decimal
	fresh       bool
	lastErr     error
	// confirmed counts mutations reflected locally; epoch changes on every
	// Reset or Clear. Load uses both to detect races with its own GET.
	confirmed uint64
	epoch     uint64
}

// maxRefetch bounds how often Load repeats its GET when mutations keep being
// confirmed underneath it.
const maxRefetch = 2

func New(api API, routes config.Routes) *Synchronizer {
	return &Synchronizer{api: api, routes: routes}
}

// Load fetches the server cart. On failure the state becomes StateError and
// the previous items stay visible. A mutation confirmed while the GET was out
// may be missing from its answer, so Load fetches again in that case.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	epoch := s.epoch
	s.mu.Unlock()

	for attempt := 0; ; attempt++ {
		s.mu.Lock()
		seen := s.confirmed
		s.mu.Unlock()

		r, err := s.fetch(ctx)

		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			log.Printf("[cart] load discarded, cart was reset")
			return nil
		}
		if err == nil && s.confirmed != seen && attempt < maxRefetch {
			s.mu.Unlock()
			continue
		}
		s.settleLocked(r, err)
		s.mu.Unlock()
		return err
	}
}

func (s *Synchronizer) settleLocked(r reply, err error) {
	if err != nil {
		s.state = StateError
		s.lastErr = err
		log.Printf("[cart] load failed: %v", err)
		return
	}
	s.replaceLocked(r)
	s.state = StateLoaded
	s.lastErr = nil
	log.Printf("[cart] loaded items=%d total=%s", len(s.items), s.totalLocked())
}

func (s *Synchronizer) fetch(ctx context.Context) (reply, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, s.routes.Cart, &raw); err != nil {
		return reply{}, err
	}
	r, ok := decodeReply(raw)
	if !ok || !r.full {
		return reply{}, &apperr.Error{Kind: apperr.KindServer, Op: "cart.Load", Detail: "malformed cart"}
	}
	return r, nil
}

// Add asks the server to add qty of productID. The resulting line quantity
// is the server's, never a local sum.
func (s *Synchronizer) Add(ctx context.Context, productID int64, qty int) error {
	if qty < 1 {
		return apperr.Validation("cart.Add", "quantity must be at least 1")
	}
	if err := s.requireLoaded(); err != nil {
		return err
	}
	var raw json.RawMessage
	if err := s.api.Post(ctx, s.routes.CartAddPath(productID), map[string]int{"quantity": qty}, &raw); err != nil {
		return err
	}
	return s.reflect("cart.Add", productID, raw)
}

// UpdateQuantity sets the quantity of productID's line. A newQty below 1 is
// a no-op: nothing is sent and nothing changes.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, productID int64, newQty int) error {
	if newQty < 1 {
		log.Printf("[cart] ignoring quantity %d for product=%d", newQty, productID)
		return nil
	}
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if _, ok := s.Line(productID); !ok {
		return fmt.Errorf("cart.UpdateQuantity product=%d: %w", productID, ErrNoSuchItem)
	}
	var raw json.RawMessage
	if err := s.api.Post(ctx, s.routes.CartUpdatePath(productID), map[string]int{"quantity": newQty}, &raw); err != nil {
		return err
	}
	return s.reflect("cart.UpdateQuantity", productID, raw)
}

// Remove deletes line itemID on the server and, only once that succeeds,
// locally.
func (s *Synchronizer) Remove(ctx context.Context, itemID int64) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	idx := s.indexLocked(func(it Item) bool { return it.ID == itemID })
	s.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("cart.Remove item=%d: %w", itemID, ErrNoSuchItem)
	}
	if err := s.api.Delete(ctx, s.routes.CartRemovePath(itemID), nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptingLocked() {
		return nil
	}
	if i := s.indexLocked(func(it Item) bool { return it.ID == itemID }); i >= 0 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	s.fresh = false
	s.confirmed++
	log.Printf("[cart] removed item=%d", itemID)
	return nil
}

// Total is the authoritative server total straight after a whole-cart reply,
// otherwise the sum of unit price times quantity over the local lines.
func (s *Synchronizer) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked()
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Line returns the line holding productID.
func (s *Synchronizer) Line(productID int64) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineLocked(productID)
}

func (s *Synchronizer) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{State: s.state, Items: append([]Item{}, s.items...), Total: s.totalLocked()}
	if s.lastErr != nil {
		v.Err = s.lastErr.Error()
	}
	return v
}

// Clear empties the local cart after the server has consumed it.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.fresh = false
	s.epoch++
	s.state = StateLoaded
}

// Reset forgets everything; used on logout.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.fresh = false
	s.lastErr = nil
	s.epoch++
	s.state = StateUnloaded
}

func (s *Synchronizer) requireLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded {
		return ErrNotLoaded
	}
	return nil
}

// acceptingLocked reports whether a confirmed reply may still be applied. A
// reload in progress does not make the reply stale.
func (s *Synchronizer) acceptingLocked() bool {
	return s.state == StateLoaded || s.state == StateLoading
}

func (s *Synchronizer) reflect(op string, productID int64, raw json.RawMessage) error {
	r, ok := decodeReply(raw)
	if !ok {
		return &apperr.Error{Kind: apperr.KindServer, Op: op, Detail: "malformed cart reply"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptingLocked() {
		// reset while the request was in flight
		return nil
	}
	if r.full {
		s.replaceLocked(r)
	} else {
		s.mergeLocked(r.line)
	}
	s.confirmed++
	if it, ok := s.lineLocked(productID); ok {
		log.Printf("[cart] %s product=%d quantity=%d total=%s", op, productID, it.Quantity, s.totalLocked())
	}
	return nil
}

func (s *Synchronizer) replaceLocked(r reply) {
	s.items = r.items
	s.fresh = r.total != nil
	if s.fresh {
		s.serverTotal = *r.total
		if sum := s.sumLocked(); !sum.Equal(s.serverTotal) {
			log.Printf("[cart] server total %s differs from line sum %s", s.serverTotal, sum)
		}
	}
}

// mergeLocked replaces the matching line with the server's copy, or appends
// a new one.
func (s *Synchronizer) mergeLocked(it Item) {
	s.fresh = false
	i := s.indexLocked(func(cur Item) bool {
		return (it.ID != 0 && cur.ID == it.ID) || cur.Product.ID == it.Product.ID
	})
	if i < 0 {
		s.items = append(s.items, it)
		return
	}
	s.items[i] = it
}

func (s *Synchronizer) lineLocked(productID int64) (Item, bool) {
	if i := s.indexLocked(func(it Item) bool { return it.Product.ID == productID }); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

func (s *Synchronizer) indexLocked(match func(Item) bool) int {
	for i, it := range s.items {
		if match(it) {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) sumLocked() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Synchronizer) totalLocked() decimal.Decimal {
	if s.fresh {
		return s.serverTotal
	}
	return s.sumLocked()
}
