package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product vista de catálogo que necesita el carrito (precio vigente y SKU).
type Product struct {
	ID        string
	SKU       string
	Name      string
	Price     decimal.Decimal // precio de venta vigente
	UpdatedAt time.Time
}
