package repository

import (
	"context"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

// ProductRepository catálogo de solo lectura que consulta el carrito.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
