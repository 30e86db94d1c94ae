package repository

import (
	"context"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

// OrderRepository las órdenes son inmutables: solo se crean y se consultan.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
}
