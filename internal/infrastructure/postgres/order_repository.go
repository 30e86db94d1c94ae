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

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes de venta con líneas y pagos.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// Create inserta cabecera, líneas y pagos. Debe ejecutarse dentro de la tx del checkout.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (id, store_id, user_id, subtotal, tax, total, amount_paid, change, transaction_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.StoreID, o.UserID, o.Subtotal, o.Tax, o.Total, o.AmountPaid, o.Change,
		o.TransactionID, o.Status, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("orden %s duplicada: %w", o.ID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	for i, it := range o.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, sku, name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, i, it.ProductID, it.SKU, it.Name, it.Quantity, it.UnitPrice, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	for i, p := range o.Payments {
		_, err := r.q.Exec(ctx, `
			INSERT INTO order_payments (order_id, position, method, amount) VALUES ($1, $2, $3, $4)`,
			o.ID, i, p.Method, p.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert order payment: %w", err)
		}
	}
	return nil
}

// GetByID (nil, nil) si no existe.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	var o entity.Order
	err := r.q.QueryRow(ctx, `
		SELECT id, store_id, user_id, subtotal, tax, total, amount_paid, change, transaction_id, status, created_at
		FROM orders WHERE id = $1`, id).Scan(
		&o.ID, &o.StoreID, &o.UserID, &o.Subtotal, &o.Tax, &o.Total, &o.AmountPaid, &o.Change,
		&o.TransactionID, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, sku, name, quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.OrderItem, error) {
		var it entity.OrderItem
		err := row.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Quantity, &it.UnitPrice, &it.LineTotal)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan order items: %w", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT method, amount FROM order_payments WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list order payments: %w", err)
	}
	o.Payments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Payment, error) {
		var p entity.Payment
		err := row.Scan(&p.Method, &p.Amount)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan order payments: %w", err)
	}
	return &o, nil
}
