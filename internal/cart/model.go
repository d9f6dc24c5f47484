package cart

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-storefront/internal/catalog"
)

type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unloaded"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Item is one cart line. Product is a copy taken from the server reply, so a
// product later dropped from the catalog does not invalidate the line.
type Item struct {
	ID        int64           `json:"id"`
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// View is a consistent copy of the cart for rendering.
type View struct {
	State State           `json:"state"`
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
	Err   string          `json:"error,omitempty"`
}

type wireItem struct {
	ID        int64            `json:"id"`
	Product   catalog.Product  `json:"product"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// item falls back to the product price when the backend leaves unit_price out.
func (w wireItem) item() Item {
	it := Item{ID: w.ID, Product: w.Product, Quantity: w.Quantity, UnitPrice: w.Product.Price}
	if w.UnitPrice != nil {
		it.UnitPrice = *w.UnitPrice
	}
	return it
}

type wireCart struct {
	Items       *[]wireItem      `json:"items"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	TotalPrice  *decimal.Decimal `json:"total_price"`
}

// reply is a decoded mutation or load response: either a whole cart or a
// single line.
type reply struct {
	full  bool
	items []Item
	total *decimal.Decimal
	line  Item
}

func decodeReply(raw json.RawMessage) (reply, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return reply{}, false
	}
	var c wireCart
	if err := json.Unmarshal(raw, &c); err == nil && c.Items != nil {
		r := reply{full: true, items: make([]Item, 0, len(*c.Items))}
		for _, w := range *c.Items {
			r.items = append(r.items, w.item())
		}
		r.total = c.TotalAmount
		if r.total == nil {
			r.total = c.TotalPrice
		}
		return r, true
	}
	var w wireItem
	if err := json.Unmarshal(raw, &w); err == nil && w.Quantity > 0 {
		return reply{line: w.item()}, true
	}
	return reply{}, false
}
