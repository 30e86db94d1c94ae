package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra a proveedor.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

const poColumns = `id, store_id, supplier_name, status, created_at, updated_at`

func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	_, err := r.q.Exec(ctx, `INSERT INTO purchase_orders (`+poColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		po.ID, po.StoreID, po.SupplierName, po.Status, po.CreatedAt, po.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("orden de compra %s duplicada: %w", po.ID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	for i, it := range po.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO purchase_order_items
				(purchase_order_id, position, product_id, batch_number, quantity, expected_delivery_date, expiry_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			po.ID, i, it.ProductID, it.BatchNumber, it.Quantity, it.ExpectedDeliveryDate, it.ExpiryDate,
		)
		if err != nil {
			return fmt.Errorf("insert purchase order item: %w", err)
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila hasta el fin de la tx.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PurchaseOrderRepo) get(ctx context.Context, query, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.q.QueryRow(ctx, query, id).Scan(&po.ID, &po.StoreID, &po.SupplierName, &po.Status, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	if po.Items, err = r.items(ctx, po.ID); err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseOrderRepo) items(ctx context.Context, id string) ([]entity.PurchaseOrderItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT product_id, batch_number, quantity, expected_delivery_date, expiry_date
		FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list purchase order items: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.PurchaseOrderItem, error) {
		var it entity.PurchaseOrderItem
		err := row.Scan(&it.ProductID, &it.BatchNumber, &it.Quantity, &it.ExpectedDeliveryDate, &it.ExpiryDate)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan purchase order items: %w", err)
	}
	return out, nil
}

func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.q.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPONotFound
	}
	return nil
}

func (r *PurchaseOrderRepo) List(ctx context.Context, filter repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+poColumns+` FROM purchase_orders
		WHERE ($1 = '' OR store_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC`, filter.StoreID, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.PurchaseOrder, error) {
		var po entity.PurchaseOrder
		err := row.Scan(&po.ID, &po.StoreID, &po.SupplierName, &po.Status, &po.CreatedAt, &po.UpdatedAt)
		return &po, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan purchase orders: %w", err)
	}
	for _, po := range out {
		if po.Items, err = r.items(ctx, po.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}
