package catalog

import "github.com/shopspring/decimal"

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Description string `json:"description,omitempty"`
	// Decimal keeps the backend's NUMERIC exact; it accepts "19.90" or 19.9.
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Image    string          `json:"image,omitempty"`
	Rating   decimal.Decimal `json:"rating"`
	IsActive bool            `json:"is_active"`
	Category *Category       `json:"category,omitempty"`
}

func (p Product) InStock() bool { return p.Stock > 0 }

// Valid reports whether the product honours the non-negative price rule.
func (p Product) Valid() bool { return !p.Price.IsNegative() }
