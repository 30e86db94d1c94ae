package dto

import (
	"time"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PaymentDTO pago de una orden.
type PaymentDTO struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// CheckoutRequest body para POST /api/stores/:storeId/checkout.
type CheckoutRequest struct {
	Payments []PaymentDTO    `json:"payments"`
	Tax      decimal.Decimal `json:"tax"`
}

// ToPayments convierte los pagos del request.
func (r CheckoutRequest) ToPayments() []entity.Payment {
	out := make([]entity.Payment, len(r.Payments))
	for i, p := range r.Payments {
		out[i] = entity.Payment{Method: p.Method, Amount: p.Amount}
	}
	return out
}

// OrderItemDTO línea vendida.
type OrderItemDTO struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO orden confirmada.
type OrderDTO struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	StoreID       string          `json:"store_id"`
	UserID        string          `json:"user_id"`
	Items         []OrderItemDTO  `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Payments      []PaymentDTO    `json:"payments"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Change        decimal.Decimal `json:"change"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// FromOrder mapea la orden.
func FromOrder(o *entity.Order) OrderDTO {
	items := make([]OrderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemDTO{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		}
	}
	payments := make([]PaymentDTO, len(o.Payments))
	for i, p := range o.Payments {
		payments[i] = PaymentDTO{Method: p.Method, Amount: p.Amount}
	}
	return OrderDTO{
		ID:            o.ID,
		TransactionID: o.TransactionID,
		StoreID:       o.StoreID,
		UserID:        o.UserID,
		Items:         items,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Total:         o.Total,
		Payments:      payments,
		AmountPaid:    o.AmountPaid,
		Change:        o.Change,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}
