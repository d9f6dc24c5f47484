package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/ordenes-storefront/internal/catalog"
)

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "COD"
	PaymentCard PaymentMethod = "Card"
)

// Valid reports whether m is one of the methods the client may send.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentCard
}

// Order is the backend's record of a committed cart. The client never
// mutates it.
type Order struct {
	ID              int64           `json:"id"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	OrderStatus     string          `json:"order_status"`
	PaymentStatus   string          `json:"payment_status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	OrderedAt       time.Time       `json:"ordered_at"`
	Items           []Item          `json:"order_items"`
}

type Item struct {
	ID        int64           `json:"id"`
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
