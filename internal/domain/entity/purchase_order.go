package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la orden de compra. RECEIVED y CANCELLED son terminales.
const (
	POStatusPending   = "PENDING"
	POStatusReceived  = "RECEIVED"
	POStatusCancelled = "CANCELLED"
)

// PurchaseOrderItem línea de una orden de compra a proveedor.
type PurchaseOrderItem struct {
	ProductID            string
	BatchNumber          string
	Quantity             decimal.Decimal
	ExpectedDeliveryDate *time.Time
	ExpiryDate           *time.Time
}

// BatchExpiry vencimiento que tendrá el lote al recibirse. Si no se indicó vencimiento
// se usa la fecha esperada de entrega.
func (i PurchaseOrderItem) BatchExpiry() *time.Time {
	if i.ExpiryDate != nil {
		return i.ExpiryDate
	}
	return i.ExpectedDeliveryDate
}

// PurchaseOrder orden de compra a proveedor.
type PurchaseOrder struct {
	ID           string
	StoreID      string
	SupplierName string
	Items        []PurchaseOrderItem
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone copia profunda.
func (p *PurchaseOrder) Clone() *PurchaseOrder {
	if p == nil {
		return nil
	}
	out := *p
	out.Items = append([]PurchaseOrderItem(nil), p.Items...)
	return &out
}
