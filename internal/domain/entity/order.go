package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago aceptados.
const (
	PaymentCash    = "CASH"
	PaymentCard    = "CARD"
	PaymentEWallet = "E_WALLET"
)

// OrderStatusCompleted es el único estado posible: las órdenes solo nacen de un checkout exitoso.
const OrderStatusCompleted = "COMPLETED"

// ValidPaymentMethod indica si m es un método de pago aceptado.
func ValidPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentEWallet
}

// Payment un pago parcial de la orden.
type Payment struct {
	Method string
	Amount decimal.Decimal
}

// OrderItem copia de la línea del carrito al momento del checkout.
type OrderItem struct {
	ProductID string
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Order registro financiero inmutable de una venta.
type Order struct {
	ID            string
	StoreID       string
	UserID        string
	Items         []OrderItem
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Payments      []Payment
	AmountPaid    decimal.Decimal
	Change        decimal.Decimal
	TransactionID string
	Status        string
	CreatedAt     time.Time
}

// Clone copia profunda.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	out := *o
	out.Items = append([]OrderItem(nil), o.Items...)
	out.Payments = append([]Payment(nil), o.Payments...)
	return &out
}
