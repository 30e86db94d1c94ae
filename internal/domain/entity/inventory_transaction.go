package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	ChangeTypeIN  = "IN"  // entrada
	ChangeTypeOUT = "OUT" // salida
)

// Motivos de movimiento.
const (
	ReasonRestock   = "RESTOCK"
	ReasonDamage    = "DAMAGE"
	ReasonExpired   = "EXPIRED"
	ReasonManual    = "MANUAL"
	ReasonSale      = "SALE"
	ReasonPOReceipt = "PO_RECEIPT"
)

// ValidReason indica si r es un motivo reconocido.
func ValidReason(r string) bool {
	switch r {
	case ReasonRestock, ReasonDamage, ReasonExpired, ReasonManual, ReasonSale, ReasonPOReceipt:
		return true
	}
	return false
}

// InventoryTransaction es una fila inmutable del historial por lote.
// PreviousQuantity/NewQuantity son totales agregados del registro, no del lote.
type InventoryTransaction struct {
	ID               string
	Seq              int64 // orden de inserción; desempata filas con el mismo CreatedAt
	ProductID        string
	StoreID          string
	ChangeType       string
	Quantity         decimal.Decimal // siempre > 0
	Reason           string
	BatchNumber      string
	PreviousQuantity decimal.Decimal
	NewQuantity      decimal.Decimal
	Reference        string // ID de orden u orden de compra que originó el movimiento
	CreatedAt        time.Time
}

// Delta devuelve la variación con signo aplicada por la fila.
func (t *InventoryTransaction) Delta() decimal.Decimal {
	if t.ChangeType == ChangeTypeOUT {
		return t.Quantity.Neg()
	}
	return t.Quantity
}
