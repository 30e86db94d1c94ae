package repository

import (
	"context"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

// InventoryRecordRepository define el puerto de persistencia para InventoryRecord con sus lotes.
// Get y GetForUpdate devuelven (nil, nil) si el registro no existe.
type InventoryRecordRepository interface {
	Get(ctx context.Context, productID, storeID string) (*entity.InventoryRecord, error)
	// GetForUpdate bloquea la clave (productID, storeID) hasta el fin de la transacción,
	// incluso si el registro todavía no existe.
	GetForUpdate(ctx context.Context, productID, storeID string) (*entity.InventoryRecord, error)
	// Save inserta o reemplaza el registro y su lista completa de lotes.
	Save(ctx context.Context, rec *entity.InventoryRecord) error
	// List devuelve los registros de la tienda; storeID vacío devuelve todos.
	List(ctx context.Context, storeID string) ([]*entity.InventoryRecord, error)
}
