package repository

import (
	"context"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

// CartRepository persiste el carrito borrador de cada (tienda, usuario).
type CartRepository interface {
	Get(ctx context.Context, storeID, userID string) (*entity.Cart, error)
	GetForUpdate(ctx context.Context, storeID, userID string) (*entity.Cart, error)
	Save(ctx context.Context, cart *entity.Cart) error
}
