package purchasing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/audit"
	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
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

var tracer = otel.Tracer("perecederos-pos/purchasing")

// UseCase gestiona órdenes de compra a proveedor y su recepción en inventario.
type UseCase struct {
	txRunner ports.TxRunner
	orders   repository.PurchaseOrderRepository
	ledger   *inventory.Ledger
	auditor  ports.Auditor
	clock    ports.Clock
	ids      ports.IDGenerator
	log      *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	txRunner ports.TxRunner,
	orders repository.PurchaseOrderRepository,
	ledger *inventory.Ledger,
	auditor ports.Auditor,
	clock ports.Clock,
	ids ports.IDGenerator,
	log *logger.Logger,
) *UseCase {
	if auditor == nil {
		auditor = ports.NopAuditor{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		txRunner: txRunner,
		orders:   orders,
		ledger:   ledger,
		auditor:  auditor,
		clock:    clock,
		ids:      ids,
		log:      log,
	}
}

// ItemInput línea solicitada al proveedor.
type ItemInput struct {
	ProductID            string
	BatchNumber          string
	Quantity             decimal.Decimal
	ExpectedDeliveryDate *time.Time
	ExpiryDate           *time.Time
}

// CreateInput datos de una orden de compra nueva.
type CreateInput struct {
	StoreID      string
	UserID       string
	SupplierName string
	Items        []ItemInput
}

// Create registra la orden en estado PENDING.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*entity.PurchaseOrder, error) {
	if strings.TrimSpace(in.StoreID) == "" || strings.TrimSpace(in.SupplierName) == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	items := make([]entity.PurchaseOrderItem, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		batch := strings.TrimSpace(it.BatchNumber)
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, domain.ErrInvalidInput
		}
		if batch == "" {
			return nil, domain.ErrBatchNumberRequired
		}
		if it.Quantity.LessThan(decimal.NewFromInt(1)) {
			return nil, domain.ErrInvalidQuantity
		}
		k := it.ProductID + "/" + batch
		if seen[k] {
			return nil, domain.ErrInvalidInput
		}
		seen[k] = true
		items = append(items, entity.PurchaseOrderItem{
			ProductID:            it.ProductID,
			BatchNumber:          batch,
			Quantity:             it.Quantity,
			ExpectedDeliveryDate: it.ExpectedDeliveryDate,
			ExpiryDate:           it.ExpiryDate,
		})
	}

	now := uc.clock.Now()
	po := &entity.PurchaseOrder{
		ID:           uc.ids.NewID(),
		StoreID:      in.StoreID,
		SupplierName: strings.TrimSpace(in.SupplierName),
		Items:        items,
		Status:       entity.POStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.orders.Create(ctx, po); err != nil {
		return nil, err
	}
	uc.auditor.Record(ctx, entity.AuditEvent{
		Action:     entity.AuditPurchaseOrderCreate,
		EntityType: entity.AuditEntityPurchaseOrder,
		EntityID:   po.ID,
		StoreID:    po.StoreID,
		UserID:     in.UserID,
		Severity:   entity.SeverityLow,
		After:      map[string]any{"supplier": po.SupplierName, "items": len(po.Items)},
	})
	return po, nil
}

// Get devuelve la orden de la tienda o ErrPONotFound.
func (uc *UseCase) Get(ctx context.Context, poID, storeID string) (*entity.PurchaseOrder, error) {
	po, err := uc.orders.GetByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po == nil || (storeID != "" && po.StoreID != storeID) {
		return nil, domain.ErrPONotFound
	}
	return po, nil
}

// List órdenes filtradas por tienda y estado, más recientes primero.
func (uc *UseCase) List(ctx context.Context, storeID, status string) ([]*entity.PurchaseOrder, error) {
	switch status {
	case "", entity.POStatusPending, entity.POStatusReceived, entity.POStatusCancelled:
	default:
		return nil, domain.ErrInvalidInput
	}
	return uc.orders.List(ctx, repository.PurchaseOrderFilter{StoreID: storeID, Status: status})
}

// Receive ingresa todas las líneas al inventario y marca la orden RECEIVED en una sola
// transacción. Si cualquier línea falla no se ingresa ninguna.
func (uc *UseCase) Receive(ctx context.Context, poID, storeID, userID string) (*entity.PurchaseOrder, error) {
	ctx, span := tracer.Start(ctx, "purchasing.receive")
	defer span.End()
	span.SetAttributes(attribute.String("purchase_order.id", poID), attribute.String("store.id", storeID))

	var received *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		po, err := uc.lockPending(ctx, repos, poID, storeID)
		if err != nil {
			return err
		}

		// Mismo orden de bloqueo que el checkout.
		items := append([]entity.PurchaseOrderItem(nil), po.Items...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		for _, it := range items {
			if _, _, err := uc.ledger.AddStockInTx(ctx, repos, inventory.AddStockInput{
				ProductID:   it.ProductID,
				StoreID:     po.StoreID,
				BatchNumber: it.BatchNumber,
				Quantity:    it.Quantity,
				ExpiryDate:  it.BatchExpiry(),
				Reason:      entity.ReasonPOReceipt,
				Reference:   po.ID,
			}); err != nil {
				return err
			}
		}
		if err := repos.PurchaseOrders.UpdateStatus(ctx, po.ID, entity.POStatusReceived); err != nil {
			return err
		}
		po.Status = entity.POStatusReceived
		po.UpdatedAt = uc.clock.Now()
		received = po
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receive failed")
		uc.logFailure(ctx, err, "purchase order receive failed", poID)
		if domain.IsIntegrityViolation(err) {
			uc.auditor.Record(ctx, audit.IntegrityViolation(err, entity.AuditEntityPurchaseOrder, poID, storeID, userID))
		}
		return nil, err
	}

	total := decimal.Zero
	for _, it := range received.Items {
		total = total.Add(it.Quantity)
	}
	uc.auditor.Record(ctx, entity.AuditEvent{
		Action:     entity.AuditPurchaseOrderRecv,
		EntityType: entity.AuditEntityPurchaseOrder,
		EntityID:   received.ID,
		StoreID:    received.StoreID,
		UserID:     userID,
		Severity:   entity.SeverityMedium,
		Before:     map[string]any{"status": entity.POStatusPending},
		After:      map[string]any{"status": entity.POStatusReceived, "items": len(received.Items), "quantity": total.String()},
	})
	uc.log.WithContext(ctx).Info().
		Str("purchase_order_id", received.ID).
		Str("store_id", received.StoreID).
		Int("items", len(received.Items)).
		Msg("purchase order received")
	return received, nil
}

// Cancel pasa una orden PENDING a CANCELLED.
func (uc *UseCase) Cancel(ctx context.Context, poID, storeID, userID string) (*entity.PurchaseOrder, error) {
	var cancelled *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		po, err := uc.lockPending(ctx, repos, poID, storeID)
		if err != nil {
			return err
		}
		if err := repos.PurchaseOrders.UpdateStatus(ctx, po.ID, entity.POStatusCancelled); err != nil {
			return err
		}
		po.Status = entity.POStatusCancelled
		po.UpdatedAt = uc.clock.Now()
		cancelled = po
		return nil
	})
	if err != nil {
		uc.logFailure(ctx, err, "purchase order cancel failed", poID)
		return nil, err
	}
	uc.auditor.Record(ctx, entity.AuditEvent{
		Action:     entity.AuditPurchaseOrderCancel,
		EntityType: entity.AuditEntityPurchaseOrder,
		EntityID:   cancelled.ID,
		StoreID:    cancelled.StoreID,
		UserID:     userID,
		Severity:   entity.SeverityLow,
		Before:     map[string]any{"status": entity.POStatusPending},
		After:      map[string]any{"status": entity.POStatusCancelled},
	})
	return cancelled, nil
}

func (uc *UseCase) lockPending(ctx context.Context, repos ports.TxRepos, poID, storeID string) (*entity.PurchaseOrder, error) {
	po, err := repos.PurchaseOrders.GetForUpdate(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po == nil || (storeID != "" && po.StoreID != storeID) {
		return nil, domain.ErrPONotFound
	}
	if po.Status != entity.POStatusPending {
		return nil, &domain.InvalidPOStateError{Current: po.Status}
	}
	return po, nil
}

func (uc *UseCase) logFailure(ctx context.Context, err error, msg, poID string) {
	zl := uc.log.WithContext(ctx)
	e := zl.Debug()
	if domain.IsIntegrityViolation(err) {
		e = zl.Error()
	} else if domain.KindOf(err) == domain.KindUnknown {
		e = zl.Warn()
	}
	e.Err(err).Str("purchase_order_id", poID).Msg(msg)
}
