package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
)

var _ ports.Auditor = (*Dispatcher)(nil)

// Sink destino de eventos de auditoría (log, Kafka, tabla audit_logs).
type Sink interface {
	Write(ctx context.Context, ev entity.AuditEvent) error
}

// SinkFunc adapta una función a Sink.
type SinkFunc func(ctx context.Context, ev entity.AuditEvent) error

func (f SinkFunc) Write(ctx context.Context, ev entity.AuditEvent) error { return f(ctx, ev) }

// Dispatcher entrega cada evento al sink en su propia goroutine, con timeout propio y
// desacoplado de la cancelación del request. Los errores se registran en debug y se descartan.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	ids     ports.IDGenerator
	clock   ports.Clock
	log     *logger.Logger
	wg      sync.WaitGroup
}

// NewDispatcher construye el despachador. timeout <= 0 usa 2s.
func NewDispatcher(sink Sink, timeout time.Duration, ids ports.IDGenerator, clock ports.Clock, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{sink: sink, timeout: timeout, ids: ids, clock: clock, log: log}
}

// Record completa ID/CreatedAt/Severity si faltan y despacha el evento sin bloquear.
func (d *Dispatcher) Record(ctx context.Context, ev entity.AuditEvent) {
	if d == nil || d.sink == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = d.ids.NewID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = d.clock.Now()
	}
	if ev.Severity == "" {
		ev.Severity = entity.SeverityLow
	}

	// Conserva valores del request (trace) pero no su cancelación.
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.WithContext(base).Debug().Str("action", ev.Action).Interface("panic", r).Msg("audit sink panic")
			}
		}()
		wctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		if err := d.sink.Write(wctx, ev); err != nil {
			d.log.WithContext(base).Debug().Err(err).Str("action", ev.Action).Msg("audit write failed")
		}
	}()
}

// Wait bloquea hasta que terminen los envíos en curso (apagado ordenado y tests).
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Multi reparte el evento a todos los sinks y combina los errores.
type Multi []Sink

func (m Multi) Write(ctx context.Context, ev entity.AuditEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Write(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink escribe el evento en el log estructurado. CRITICAL se registra en nivel error.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink construye el sink de log.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Write(ctx context.Context, ev entity.AuditEvent) error {
	if s.log == nil {
		return fmt.Errorf("log sink sin logger")
	}
	zl := s.log.WithContext(ctx)
	e := zl.Info()
	if ev.Severity == entity.SeverityCritical || ev.Severity == entity.SeverityHigh {
		e = zl.Error()
	}
	e.Str("audit_id", ev.ID).
		Str("action", ev.Action).
		Str("entity_type", ev.EntityType).
		Str("entity_id", ev.EntityID).
		Str("store_id", ev.StoreID).
		Str("user_id", ev.UserID).
		Str("severity", ev.Severity).
		Interface("after", ev.After).
		Msg(ev.Message)
	return nil
}

// IntegrityViolation construye el evento CRITICAL que escala una violación de integridad.
func IntegrityViolation(err error, entityType, entityID, storeID, userID string) entity.AuditEvent {
	after := map[string]any{"error": err.Error()}
	var ie *domain.IntegrityError
	if errors.As(err, &ie) {
		after["check"] = ie.Check
		after["expected"] = ie.Expected.String()
		after["actual"] = ie.Actual.String()
	}
	return entity.AuditEvent{
		Action:     entity.AuditIntegrityViolation,
		EntityType: entityType,
		EntityID:   entityID,
		StoreID:    storeID,
		UserID:     userID,
		Severity:   entity.SeverityCritical,
		Message:    "integrity violation",
		After:      after,
	}
}

// RepositorySink persiste el evento en audit_logs.
type RepositorySink struct {
	repo repository.AuditRepository
}

// NewRepositorySink construye el sink de persistencia.
func NewRepositorySink(repo repository.AuditRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Write(ctx context.Context, ev entity.AuditEvent) error {
	if err := s.repo.Create(ctx, &ev); err != nil {
		return fmt.Errorf("persistir auditoría %s: %w", ev.Action, err)
	}
	return nil
}
