package repository

import (
	"context"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

// AuditRepository almacén de eventos de auditoría.
type AuditRepository interface {
	Create(ctx context.Context, ev *entity.AuditEvent) error
}
