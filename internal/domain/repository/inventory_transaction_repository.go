package repository

import (
	"context"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

// InventoryTransactionRepository historial append-only de movimientos por lote.
type InventoryTransactionRepository interface {
	// Create asigna Seq y persiste la fila.
	Create(ctx context.Context, tx *entity.InventoryTransaction) error
	// ListByProduct devuelve el historial más reciente primero; storeID vacío incluye todas las tiendas.
	ListByProduct(ctx context.Context, productID, storeID string) ([]*entity.InventoryTransaction, error)
}
