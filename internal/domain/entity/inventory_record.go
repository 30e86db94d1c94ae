package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold umbral con el que se crea un registro de inventario nuevo.
var DefaultLowStockThreshold = decimal.NewFromInt(10)

// Batch es un lote de un producto en una tienda, con sus propias fechas de recepción y vencimiento.
// Solo el ledger de lotes modifica Quantity.
type Batch struct {
	BatchNumber  string
	Quantity     decimal.Decimal
	ExpiryDate   *time.Time // nil para productos no perecederos
	ReceivedDate time.Time
}

// InventoryRecord agrega los lotes de un producto en una tienda (clave única ProductID+StoreID).
// La cantidad total nunca se almacena: se deriva de los lotes en cada lectura.
type InventoryRecord struct {
	ID                string
	ProductID         string
	StoreID           string
	LowStockThreshold decimal.Decimal
	Batches           []Batch // orden de inserción, no de consumo
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInventoryRecord crea un registro vacío con el umbral indicado.
func NewInventoryRecord(id, productID, storeID string, threshold decimal.Decimal, now time.Time) *InventoryRecord {
	return &InventoryRecord{
		ID:                id,
		ProductID:         productID,
		StoreID:           storeID,
		LowStockThreshold: threshold,
		Batches:           []Batch{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TotalQuantity suma las cantidades de todos los lotes.
func (r *InventoryRecord) TotalQuantity() decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, b := range r.Batches {
		total = total.Add(b.Quantity)
	}
	return total
}

// IsLowStock: 0 < total <= umbral.
func (r *InventoryRecord) IsLowStock() bool {
	total := r.TotalQuantity()
	return total.GreaterThan(decimal.Zero) && total.LessThanOrEqual(r.LowStockThreshold)
}

// IsOutOfStock: total <= 0.
func (r *InventoryRecord) IsOutOfStock() bool {
	return r.TotalQuantity().LessThanOrEqual(decimal.Zero)
}

// FindBatch devuelve el índice del lote con ese número o -1.
func (r *InventoryRecord) FindBatch(batchNumber string) int {
	for i := range r.Batches {
		if r.Batches[i].BatchNumber == batchNumber {
			return i
		}
	}
	return -1
}

// Clone copia profunda; los repositorios en memoria la usan para aislar transacciones.
func (r *InventoryRecord) Clone() *InventoryRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Batches = make([]Batch, len(r.Batches))
	for i, b := range r.Batches {
		out.Batches[i] = b
		if b.ExpiryDate != nil {
			exp := *b.ExpiryDate
			out.Batches[i].ExpiryDate = &exp
		}
	}
	return &out
}
