package entity

import "time"

// Acciones de auditoría emitidas por el núcleo.
const (
	AuditInventoryAdjust     = "INVENTORY_ADJUST"
	AuditInventoryBatchAdd   = "INVENTORY_BATCH_ADD"
	AuditCheckoutComplete    = "CHECKOUT_COMPLETE"
	AuditPaymentRecorded     = "PAYMENT_RECORDED"
	AuditPurchaseOrderCreate = "PURCHASE_ORDER_CREATE"
	AuditPurchaseOrderRecv   = "PURCHASE_ORDER_RECEIVE"
	AuditPurchaseOrderCancel = "PURCHASE_ORDER_CANCEL"
	AuditIntegrityViolation  = "INTEGRITY_VIOLATION"
)

// Tipos de entidad auditada.
const (
	AuditEntityInventory     = "INVENTORY"
	AuditEntityOrder         = "ORDER"
	AuditEntityPayment       = "PAYMENT"
	AuditEntityPurchaseOrder = "PURCHASE_ORDER"
)

// Severidades.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// AuditEvent entrada de auditoría de observabilidad (distinta de InventoryTransaction).
type AuditEvent struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	StoreID    string         `json:"store_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Severity   string         `json:"severity"`
	Message    string         `json:"message,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
