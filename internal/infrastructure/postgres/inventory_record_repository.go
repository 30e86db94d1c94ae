package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

// InventoryRecordRepo registros de inventario y sus lotes (usable con pool o tx).
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

const recordColumns = `id, product_id, store_id, low_stock_threshold, created_at, updated_at`

// Get lee el registro con sus lotes; (nil, nil) si no existe.
func (r *InventoryRecordRepo) Get(ctx context.Context, productID, storeID string) (*entity.InventoryRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM inventory_records WHERE product_id = $1 AND store_id = $2`
	return r.get(ctx, query, productID, storeID)
}

// GetForUpdate serializa a los escritores de (productID, storeID) hasta el fin de la tx.
// El advisory lock cubre también el caso en que el registro todavía no existe.
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, productID, storeID string) (*entity.InventoryRecord, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, advisoryKey("inventory", productID, storeID)); err != nil {
		return nil, fmt.Errorf("lock inventory record: %w", err)
	}
	query := `SELECT ` + recordColumns + ` FROM inventory_records WHERE product_id = $1 AND store_id = $2 FOR UPDATE`
	return r.get(ctx, query, productID, storeID)
}

func (r *InventoryRecordRepo) get(ctx context.Context, query, productID, storeID string) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := r.q.QueryRow(ctx, query, productID, storeID).Scan(
		&rec.ID, &rec.ProductID, &rec.StoreID, &rec.LowStockThreshold, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	batches, err := r.batches(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Batches = batches
	return &rec, nil
}

func (r *InventoryRecordRepo) batches(ctx context.Context, recordID string) ([]entity.Batch, error) {
	rows, err := r.q.Query(ctx, `
		SELECT batch_number, quantity, expiry_date, received_date
		FROM inventory_batches WHERE record_id = $1 ORDER BY position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	out := []entity.Batch{}
	for rows.Next() {
		var (
			b      entity.Batch
			expiry *time.Time
		)
		if err := rows.Scan(&b.BatchNumber, &b.Quantity, &expiry, &b.ReceivedDate); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.ExpiryDate = expiry
		out = append(out, b)
	}
	return out, rows.Err()
}

// Save inserta o actualiza el registro y reemplaza sus lotes conservando el orden de inserción.
func (r *InventoryRecordRepo) Save(ctx context.Context, rec *entity.InventoryRecord) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO inventory_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, store_id)
		DO UPDATE SET low_stock_threshold = EXCLUDED.low_stock_threshold, updated_at = EXCLUDED.updated_at
		RETURNING id`,
		rec.ID, rec.ProductID, rec.StoreID, rec.LowStockThreshold, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("upsert inventory record: %w", err)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM inventory_batches WHERE record_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("clear batches: %w", err)
	}
	for i, b := range rec.Batches {
		_, err := r.q.Exec(ctx, `
			INSERT INTO inventory_batches (record_id, position, batch_number, quantity, expiry_date, received_date)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.ID, i, b.BatchNumber, b.Quantity, b.ExpiryDate, b.ReceivedDate,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("lote %s duplicado en %s: %w", b.BatchNumber, rec.ID, err)
			}
			return fmt.Errorf("insert batch: %w", err)
		}
	}
	return nil
}

// List registros de la tienda con sus lotes.
func (r *InventoryRecordRepo) List(ctx context.Context, storeID string) ([]*entity.InventoryRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+recordColumns+` FROM inventory_records
		WHERE ($1 = '' OR store_id = $1) ORDER BY store_id, product_id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list inventory records: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.InventoryRecord, error) {
		var rec entity.InventoryRecord
		err := row.Scan(&rec.ID, &rec.ProductID, &rec.StoreID, &rec.LowStockThreshold, &rec.CreatedAt, &rec.UpdatedAt)
		return &rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan inventory records: %w", err)
	}
	for _, rec := range records {
		if rec.Batches, err = r.batches(ctx, rec.ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}
