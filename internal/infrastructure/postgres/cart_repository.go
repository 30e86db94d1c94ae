package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
)

var _ repository.CartRepository = (*CartRepo)(nil)

// CartRepo carritos con sus líneas.
type CartRepo struct {
	q Querier
}

// NewCartRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCartRepository(q Querier) *CartRepo {
	return &CartRepo{q: q}
}

func (r *CartRepo) Get(ctx context.Context, storeID, userID string) (*entity.Cart, error) {
	return r.get(ctx, `
		SELECT id, store_id, user_id, subtotal, created_at, updated_at
		FROM carts WHERE store_id = $1 AND user_id = $2`, storeID, userID)
}

// GetForUpdate bloquea el carrito (exista o no) hasta el fin de la tx.
func (r *CartRepo) GetForUpdate(ctx context.Context, storeID, userID string) (*entity.Cart, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, advisoryKey("cart", storeID, userID)); err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	return r.get(ctx, `
		SELECT id, store_id, user_id, subtotal, created_at, updated_at
		FROM carts WHERE store_id = $1 AND user_id = $2 FOR UPDATE`, storeID, userID)
}

func (r *CartRepo) get(ctx context.Context, query, storeID, userID string) (*entity.Cart, error) {
	var c entity.Cart
	err := r.q.QueryRow(ctx, query, storeID, userID).Scan(
		&c.ID, &c.StoreID, &c.UserID, &c.Subtotal, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, sku, name, quantity, unit_price, line_total
		FROM cart_items WHERE cart_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	c.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.CartItem, error) {
		var it entity.CartItem
		err := row.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Quantity, &it.UnitPrice, &it.LineTotal)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan cart items: %w", err)
	}
	return &c, nil
}

// Save persiste el carrito completo: cabecera y líneas.
func (r *CartRepo) Save(ctx context.Context, c *entity.Cart) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO carts (id, store_id, user_id, subtotal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (store_id, user_id)
		DO UPDATE SET subtotal = EXCLUDED.subtotal, updated_at = EXCLUDED.updated_at
		RETURNING id`,
		c.ID, c.StoreID, c.UserID, c.Subtotal, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	for i, it := range c.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO cart_items (cart_id, position, product_id, sku, name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, i, it.ProductID, it.SKU, it.Name, it.Quantity, it.UnitPrice, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}
	return nil
}
