package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo tabla audit_logs.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Create inserta el evento; Before y After se guardan como JSONB.
func (r *AuditRepo) Create(ctx context.Context, ev *entity.AuditEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, store_id, user_id, severity, message, before, after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ev.ID, ev.Action, ev.EntityType, ev.EntityID, ev.StoreID, ev.UserID, ev.Severity, ev.Message,
		ev.Before, ev.After, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
