package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem línea del carrito con precio congelado al momento de agregarla.
type CartItem struct {
	ProductID string
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Cart borrador previo al pago, uno por (StoreID, UserID).
// Subtotal es una caché persistida de la suma de LineTotal.
type Cart struct {
	ID        string
	StoreID   string
	UserID    string
	Items     []CartItem
	Subtotal  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ComputeSubtotal suma los totales de línea actuales.
func (c *Cart) ComputeSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal)
	}
	return sum
}

// FindItem devuelve el índice de la línea del producto o -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// QuantityOf devuelve la cantidad ya reservada en el carrito para el producto.
func (c *Cart) QuantityOf(productID string) decimal.Decimal {
	if i := c.FindItem(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return decimal.Zero
}

// Empty vacía el carrito sin eliminarlo.
func (c *Cart) Empty(now time.Time) {
	c.Items = []CartItem{}
	c.Subtotal = decimal.Zero
	c.UpdatedAt = now
}

// Clone copia profunda.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}
