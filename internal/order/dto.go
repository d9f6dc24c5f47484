package order

// CreateOrderRequest is the order-creation payload. The cart contents are
// implied server-side.
type CreateOrderRequest struct {
	ShippingAddress string        `json:"shipping_address" example:"221B Baker Street, London"`
	PaymentMethod   PaymentMethod `json:"payment_method"   example:"COD"`
}
