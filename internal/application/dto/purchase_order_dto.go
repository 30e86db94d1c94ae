package dto

import (
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/purchasing"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PurchaseOrderItemRequest línea de una orden de compra nueva.
type PurchaseOrderItemRequest struct {
	ProductID            string          `json:"product_id"`
	BatchNumber          string          `json:"batch_number"`
	Quantity             decimal.Decimal `json:"quantity"`
	ExpectedDeliveryDate string          `json:"expected_delivery_date,omitempty"`
	ExpiryDate           string          `json:"expiry_date,omitempty"`
}

// CreatePurchaseOrderRequest body para POST /api/stores/:storeId/purchase-orders.
type CreatePurchaseOrderRequest struct {
	SupplierName string                     `json:"supplier_name"`
	Items        []PurchaseOrderItemRequest `json:"items"`
}

// ToInput convierte el request; falla si alguna fecha no se puede interpretar.
func (r CreatePurchaseOrderRequest) ToInput(storeID, userID string) (purchasing.CreateInput, error) {
	in := purchasing.CreateInput{StoreID: storeID, UserID: userID, SupplierName: r.SupplierName}
	for _, it := range r.Items {
		expected, err := ParseDate(it.ExpectedDeliveryDate)
		if err != nil {
			return in, err
		}
		expiry, err := ParseDate(it.ExpiryDate)
		if err != nil {
			return in, err
		}
		in.Items = append(in.Items, purchasing.ItemInput{
			ProductID:            it.ProductID,
			BatchNumber:          it.BatchNumber,
			Quantity:             it.Quantity,
			ExpectedDeliveryDate: expected,
			ExpiryDate:           expiry,
		})
	}
	return in, nil
}

// PurchaseOrderItemDTO línea de la orden de compra.
type PurchaseOrderItemDTO struct {
	ProductID            string          `json:"product_id"`
	BatchNumber          string          `json:"batch_number"`
	Quantity             decimal.Decimal `json:"quantity"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	ExpiryDate           *time.Time      `json:"expiry_date,omitempty"`
}

// PurchaseOrderDTO orden de compra.
type PurchaseOrderDTO struct {
	ID           string                 `json:"id"`
	StoreID      string                 `json:"store_id"`
	SupplierName string                 `json:"supplier_name"`
	Status       string                 `json:"status"`
	Items        []PurchaseOrderItemDTO `json:"items"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// FromPurchaseOrder mapea la orden de compra.
func FromPurchaseOrder(po *entity.PurchaseOrder) PurchaseOrderDTO {
	items := make([]PurchaseOrderItemDTO, len(po.Items))
	for i, it := range po.Items {
		items[i] = PurchaseOrderItemDTO{
			ProductID:            it.ProductID,
			BatchNumber:          it.BatchNumber,
			Quantity:             it.Quantity,
			ExpectedDeliveryDate: it.ExpectedDeliveryDate,
			ExpiryDate:           it.ExpiryDate,
		}
	}
	return PurchaseOrderDTO{
		ID:           po.ID,
		StoreID:      po.StoreID,
		SupplierName: po.SupplierName,
		Status:       po.Status,
		Items:        items,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}

// FromPurchaseOrders mapea un listado.
func FromPurchaseOrders(list []*entity.PurchaseOrder) []PurchaseOrderDTO {
	out := make([]PurchaseOrderDTO, len(list))
	for i, po := range list {
		out[i] = FromPurchaseOrder(po)
	}
	return out
}
