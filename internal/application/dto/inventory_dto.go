package dto

import (
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AdjustRequest body para POST /api/inventory/adjust.
type AdjustRequest struct {
	ProductID   string          `json:"product_id"`
	StoreID     string          `json:"store_id"`
	ChangeType  string          `json:"change_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason,omitempty"`
	BatchNumber string          `json:"batch_number,omitempty"`
	ExpiryDate  string          `json:"expiry_date,omitempty"`
}

// BatchDTO lote de un registro.
type BatchDTO struct {
	BatchNumber  string          `json:"batch_number"`
	Quantity     decimal.Decimal `json:"quantity"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	ReceivedDate time.Time       `json:"received_date"`
}

// InventoryRecordDTO registro con total derivado y banderas de stock.
type InventoryRecordDTO struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	StoreID           string          `json:"store_id"`
	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	IsLowStock        bool            `json:"is_low_stock"`
	IsOutOfStock      bool            `json:"is_out_of_stock"`
	Batches           []BatchDTO      `json:"batches"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TransactionDTO fila del historial.
type TransactionDTO struct {
	ID               string          `json:"id"`
	ChangeType       string          `json:"change_type"`
	Quantity         decimal.Decimal `json:"quantity"`
	Reason           string          `json:"reason"`
	BatchNumber      string          `json:"batch_number"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	Reference        string          `json:"reference,omitempty"`
	StoreID          string          `json:"store_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LowStockDTO registro bajo umbral con sugerencia de reposición.
type LowStockDTO struct {
	ProductID         string          `json:"product_id"`
	StoreID           string          `json:"store_id"`
	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	SuggestedOrderQty decimal.Decimal `json:"suggested_order_qty"` // umbral*1.5 - total
}

// ExpiringDTO lotes próximos a vencer de un producto.
type ExpiringDTO struct {
	ProductID string     `json:"product_id"`
	StoreID   string     `json:"store_id"`
	Batches   []BatchDTO `json:"batches"`
}

// AlertsDTO respuesta de GET /api/inventory/alerts.
type AlertsDTO struct {
	LowStock      []LowStockDTO `json:"low_stock"`
	Expiring      []ExpiringDTO `json:"expiring"`
	LowStockCount int           `json:"low_stock_count"`
	ExpiringCount int           `json:"expiring_count"`
}

func batchesDTO(in []entity.Batch) []BatchDTO {
	out := make([]BatchDTO, len(in))
	for i, b := range in {
		out[i] = BatchDTO{BatchNumber: b.BatchNumber, Quantity: b.Quantity, ExpiryDate: b.ExpiryDate, ReceivedDate: b.ReceivedDate}
	}
	return out
}

// FromRecord mapea un registro de inventario.
func FromRecord(r *entity.InventoryRecord) InventoryRecordDTO {
	return InventoryRecordDTO{
		ID:                r.ID,
		ProductID:         r.ProductID,
		StoreID:           r.StoreID,
		TotalQuantity:     r.TotalQuantity(),
		LowStockThreshold: r.LowStockThreshold,
		IsLowStock:        r.IsLowStock(),
		IsOutOfStock:      r.IsOutOfStock(),
		Batches:           batchesDTO(r.Batches),
		UpdatedAt:         r.UpdatedAt,
	}
}

// FromTransactions mapea el historial conservando el orden.
func FromTransactions(rows []*entity.InventoryTransaction) []TransactionDTO {
	out := make([]TransactionDTO, len(rows))
	for i, t := range rows {
		out[i] = TransactionDTO{
			ID:               t.ID,
			ChangeType:       t.ChangeType,
			Quantity:         t.Quantity,
			Reason:           t.Reason,
			BatchNumber:      t.BatchNumber,
			PreviousQuantity: t.PreviousQuantity,
			NewQuantity:      t.NewQuantity,
			Reference:        t.Reference,
			StoreID:          t.StoreID,
			CreatedAt:        t.CreatedAt,
		}
	}
	return out
}

// FromLowStock mapea la lista de stock bajo.
func FromLowStock(items []inventory.LowStockItem) []LowStockDTO {
	out := make([]LowStockDTO, len(items))
	for i, it := range items {
		out[i] = LowStockDTO{
			ProductID:         it.Record.ProductID,
			StoreID:           it.Record.StoreID,
			TotalQuantity:     it.Total,
			LowStockThreshold: it.Record.LowStockThreshold,
			SuggestedOrderQty: it.SuggestedOrderQty,
		}
	}
	return out
}

// FromExpiring mapea la lista de lotes por vencer.
func FromExpiring(items []inventory.ExpiringItem) []ExpiringDTO {
	out := make([]ExpiringDTO, len(items))
	for i, it := range items {
		out[i] = ExpiringDTO{ProductID: it.ProductID, StoreID: it.StoreID, Batches: batchesDTO(it.Batches)}
	}
	return out
}

// FromAlerts mapea el resumen de alertas.
func FromAlerts(a *inventory.Alerts) AlertsDTO {
	return AlertsDTO{
		LowStock:      FromLowStock(a.LowStock),
		Expiring:      FromExpiring(a.Expiring),
		LowStockCount: a.LowStockCount,
		ExpiringCount: a.ExpiringCount,
	}
}
