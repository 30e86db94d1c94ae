package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
)

var _ repository.InventoryTransactionRepository = (*InventoryTransactionRepo)(nil)

// InventoryTransactionRepo historial append-only de movimientos.
type InventoryTransactionRepo struct {
	q Querier
}

// NewInventoryTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryTransactionRepository(q Querier) *InventoryTransactionRepo {
	return &InventoryTransactionRepo{q: q}
}

// Create inserta la fila y asigna Seq.
func (r *InventoryTransactionRepo) Create(ctx context.Context, row *entity.InventoryTransaction) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO inventory_transactions
			(id, product_id, store_id, change_type, quantity, reason, batch_number,
			 previous_quantity, new_quantity, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq`,
		row.ID, row.ProductID, row.StoreID, row.ChangeType, row.Quantity, row.Reason, row.BatchNumber,
		row.PreviousQuantity, row.NewQuantity, row.Reference, row.CreatedAt,
	).Scan(&row.Seq)
	if err != nil {
		return fmt.Errorf("insert inventory transaction: %w", err)
	}
	return nil
}

// ListByProduct más reciente primero; storeID vacío incluye todas las tiendas.
func (r *InventoryTransactionRepo) ListByProduct(ctx context.Context, productID, storeID string) ([]*entity.InventoryTransaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT seq, id, product_id, store_id, change_type, quantity, reason, batch_number,
		       previous_quantity, new_quantity, reference, created_at
		FROM inventory_transactions
		WHERE product_id = $1 AND ($2 = '' OR store_id = $2)
		ORDER BY created_at DESC, seq DESC`, productID, storeID)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.InventoryTransaction, error) {
		var t entity.InventoryTransaction
		err := row.Scan(&t.Seq, &t.ID, &t.ProductID, &t.StoreID, &t.ChangeType, &t.Quantity, &t.Reason,
			&t.BatchNumber, &t.PreviousQuantity, &t.NewQuantity, &t.Reference, &t.CreatedAt)
		return &t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan inventory transactions: %w", err)
	}
	return out, nil
}
