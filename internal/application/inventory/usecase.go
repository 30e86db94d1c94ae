package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/audit"
	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("perecederos-pos/inventory")

// UseCase expone el inventario por lotes a los callers: ajustes manuales y consultas.
type UseCase struct {
	txRunner     ports.TxRunner
	records      repository.InventoryRecordRepository
	transactions repository.InventoryTransactionRepository
	ledger       *Ledger
	auditor      ports.Auditor
	clock        ports.Clock
	log          *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	txRunner ports.TxRunner,
	records repository.InventoryRecordRepository,
	transactions repository.InventoryTransactionRepository,
	ledger *Ledger,
	auditor ports.Auditor,
	clock ports.Clock,
	log *logger.Logger,
) *UseCase {
	if auditor == nil {
		auditor = ports.NopAuditor{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		txRunner:     txRunner,
		records:      records,
		transactions: transactions,
		ledger:       ledger,
		auditor:      auditor,
		clock:        clock,
		log:          log,
	}
}

// AdjustInput ajuste manual de stock.
// IN requiere BatchNumber; OUT consume FIFO y BatchNumber se ignora.
type AdjustInput struct {
	ProductID   string
	StoreID     string
	UserID      string
	ChangeType  string
	Quantity    decimal.Decimal
	Reason      string // vacío = MANUAL
	BatchNumber string
	ExpiryDate  *time.Time
}

// Adjust aplica un ajuste IN u OUT en una sola transacción y devuelve el registro actualizado.
func (uc *UseCase) Adjust(ctx context.Context, in AdjustInput) (*entity.InventoryRecord, error) {
	ctx, span := tracer.Start(ctx, "inventory.adjust")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", in.ProductID),
		attribute.String("store.id", in.StoreID),
		attribute.String("inventory.change_type", in.ChangeType),
	)

	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.StoreID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.ChangeType != entity.ChangeTypeIN && in.ChangeType != entity.ChangeTypeOUT {
		return nil, domain.ErrInvalidChangeType
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	reason := in.Reason
	if reason == "" {
		reason = entity.ReasonManual
	}
	if !entity.ValidReason(reason) {
		return nil, domain.ErrInvalidReason
	}
	if in.ChangeType == entity.ChangeTypeIN && strings.TrimSpace(in.BatchNumber) == "" {
		return nil, domain.ErrBatchNumberRequired
	}

	var (
		before decimal.Decimal
		rec    *entity.InventoryRecord
	)
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		current, err := repos.Records.GetForUpdate(ctx, in.ProductID, in.StoreID)
		if err != nil {
			return err
		}
		before = current.TotalQuantity()

		if in.ChangeType == entity.ChangeTypeIN {
			rec, _, err = uc.ledger.AddStockInTx(ctx, repos, AddStockInput{
				ProductID:   in.ProductID,
				StoreID:     in.StoreID,
				BatchNumber: in.BatchNumber,
				Quantity:    in.Quantity,
				ExpiryDate:  in.ExpiryDate,
				Reason:      reason,
			})
			return err
		}
		rec, _, err = uc.ledger.RemoveStockFIFOInTx(ctx, repos, RemoveStockInput{
			ProductID: in.ProductID,
			StoreID:   in.StoreID,
			Quantity:  in.Quantity,
			Reason:    reason,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "adjust failed")
		uc.logFailure(ctx, err, "inventory adjust failed", in.ProductID, in.StoreID)
		if domain.IsIntegrityViolation(err) {
			uc.auditor.Record(ctx, audit.IntegrityViolation(err, entity.AuditEntityInventory, in.ProductID, in.StoreID, in.UserID))
		}
		return nil, err
	}

	action := entity.AuditInventoryAdjust
	if in.ChangeType == entity.ChangeTypeIN {
		action = entity.AuditInventoryBatchAdd
	}
	uc.auditor.Record(ctx, entity.AuditEvent{
		Action:     action,
		EntityType: entity.AuditEntityInventory,
		EntityID:   rec.ID,
		StoreID:    in.StoreID,
		UserID:     in.UserID,
		Severity:   entity.SeverityMedium,
		Before:     map[string]any{"quantity": before.String()},
		After: map[string]any{
			"quantity":     rec.TotalQuantity().String(),
			"change_type":  in.ChangeType,
			"reason":       reason,
			"batch_number": strings.TrimSpace(in.BatchNumber),
			"product_id":   in.ProductID,
		},
	})
	uc.log.WithContext(ctx).Info().
		Str("product_id", in.ProductID).
		Str("store_id", in.StoreID).
		Str("change_type", in.ChangeType).
		Str("quantity", in.Quantity.String()).
		Str("total", rec.TotalQuantity().String()).
		Msg("inventory adjusted")
	return rec, nil
}

// GetAvailableQuantity total de los lotes; 0 si no existe registro.
func (uc *UseCase) GetAvailableQuantity(ctx context.Context, productID, storeID string) (decimal.Decimal, error) {
	rec, err := uc.records.Get(ctx, productID, storeID)
	if err != nil {
		return decimal.Zero, err
	}
	return rec.TotalQuantity(), nil
}

// GetRecord devuelve el registro con sus lotes o ErrNotFound.
func (uc *UseCase) GetRecord(ctx context.Context, productID, storeID string) (*entity.InventoryRecord, error) {
	rec, err := uc.records.Get(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// GetHistory historial de movimientos del producto, más reciente primero.
// storeID vacío incluye todas las tiendas.
func (uc *UseCase) GetHistory(ctx context.Context, productID, storeID string) ([]*entity.InventoryTransaction, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.transactions.ListByProduct(ctx, productID, storeID)
}

func (uc *UseCase) logFailure(ctx context.Context, err error, msg, productID, storeID string) {
	zl := uc.log.WithContext(ctx)
	e := zl.Debug()
	if domain.IsIntegrityViolation(err) {
		e = zl.Error()
	} else if domain.KindOf(err) == domain.KindUnknown {
		e = zl.Warn()
	}
	e.Err(err).Str("product_id", productID).Str("store_id", storeID).Msg(msg)
}
