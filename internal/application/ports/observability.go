package ports

import (
	"context"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Auditor recibe eventos de auditoría. Record no bloquea ni devuelve error:
// la entrega es best-effort y nunca afecta a la operación que la originó.
type Auditor interface {
	Record(ctx context.Context, ev entity.AuditEvent)
}

// NopAuditor descarta los eventos.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, entity.AuditEvent) {}

// Metrics contadores de negocio del núcleo.
type Metrics interface {
	StockMovement(changeType, reason string, quantity decimal.Decimal)
	CheckoutCompleted(storeID string, total decimal.Decimal, elapsed time.Duration)
	CheckoutFailed(stage, kind string)
	IntegrityViolation(check string)
}

// NopMetrics no registra nada.
type NopMetrics struct{}

func (NopMetrics) StockMovement(string, string, decimal.Decimal)             {}
func (NopMetrics) CheckoutCompleted(string, decimal.Decimal, time.Duration) {}
func (NopMetrics) CheckoutFailed(string, string)                            {}
func (NopMetrics) IntegrityViolation(string)                                {}
