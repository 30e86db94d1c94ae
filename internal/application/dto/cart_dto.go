package dto

import (
	"time"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AddCartItemRequest body para POST /api/stores/:storeId/cart/items.
type AddCartItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// UpdateCartItemRequest body para PUT /api/stores/:storeId/cart/items/:productId.
type UpdateCartItemRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// CartItemDTO línea del carrito.
type CartItemDTO struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartDTO carrito con su subtotal.
type CartDTO struct {
	ID        string          `json:"id"`
	StoreID   string          `json:"store_id"`
	UserID    string          `json:"user_id"`
	Items     []CartItemDTO   `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FromCart mapea el carrito.
func FromCart(c *entity.Cart) CartDTO {
	items := make([]CartItemDTO, len(c.Items))
	for i, it := range c.Items {
		items[i] = CartItemDTO{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		}
	}
	return CartDTO{
		ID:        c.ID,
		StoreID:   c.StoreID,
		UserID:    c.UserID,
		Items:     items,
		Subtotal:  c.Subtotal,
		UpdatedAt: c.UpdatedAt,
	}
}
