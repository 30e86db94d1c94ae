package checkout

import (
	"context"
	"errors"
	"sort"
	"strings"

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

var tracer = otel.Tracer("perecederos-pos/checkout")

// Etapas del checkout, en orden. Se usan como etiqueta de métricas y en los logs.
const (
	StageValidatePayments = "validate_payments"
	StageLoadCart         = "load_cart"
	StageVerifyTotals     = "verify_totals"
	StageValidateStock    = "validate_stock"
	StageAtomic           = "atomic"
)

// DefaultTolerance diferencia máxima aceptada entre subtotal cacheado y recalculado.
var DefaultTolerance = decimal.RequireFromString("0.01")

// Input pagos e impuesto informados por el caller.
type Input struct {
	StoreID  string
	UserID   string
	Payments []entity.Payment
	Tax      decimal.Decimal
}

// Deps colaboradores del checkout.
type Deps struct {
	TxRunner  ports.TxRunner
	Carts     repository.CartRepository
	Records   repository.InventoryRecordRepository
	Orders    repository.OrderRepository
	Ledger    *inventory.Ledger
	Clock     ports.Clock
	IDs       ports.IDGenerator
	TxnIDs    ports.TransactionIDGenerator
	Auditor   ports.Auditor
	Metrics   ports.Metrics
	Logger    *logger.Logger
	Tolerance decimal.Decimal // cero = DefaultTolerance
}

// UseCase convierte un carrito en una orden: descuenta inventario FIFO de todas las líneas,
// registra la orden y vacía el carrito como una sola unidad atómica.
type UseCase struct {
	d Deps
}

// NewUseCase construye el caso de uso completando los opcionales.
func NewUseCase(d Deps) *UseCase {
	if d.Auditor == nil {
		d.Auditor = ports.NopAuditor{}
	}
	if d.Metrics == nil {
		d.Metrics = ports.NopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.TxnIDs == nil {
		d.TxnIDs = ports.TxnIDGenerator{}
	}
	if d.Tolerance.IsZero() {
		d.Tolerance = DefaultTolerance
	}
	return &UseCase{d: d}
}

// totals resultado de RECOMPUTE_AND_VERIFY_TOTALS.
type totals struct {
	subtotal   decimal.Decimal
	total      decimal.Decimal
	amountPaid decimal.Decimal
	change     decimal.Decimal
}

// Checkout ejecuta la secuencia completa. Ante cualquier error no queda ningún efecto:
// ni descuentos de lotes, ni orden, ni carrito vaciado.
func (uc *UseCase) Checkout(ctx context.Context, in Input) (*entity.Order, error) {
	ctx, span := tracer.Start(ctx, "checkout")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", in.StoreID), attribute.String("user.id", in.UserID))
	started := uc.d.Clock.Now()

	stage := StageValidatePayments
	fail := func(err error) (*entity.Order, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		uc.onFailure(ctx, in, stage, err)
		return nil, err
	}

	if strings.TrimSpace(in.StoreID) == "" || strings.TrimSpace(in.UserID) == "" {
		return fail(domain.ErrInvalidInput)
	}
	if err := validatePayments(in.Payments); err != nil {
		return fail(err)
	}
	if in.Tax.IsNegative() {
		return fail(domain.ErrInvalidInput)
	}

	stage = StageLoadCart
	cart, err := uc.d.Carts.Get(ctx, in.StoreID, in.UserID)
	if err != nil {
		return fail(err)
	}
	if cart == nil {
		return fail(domain.ErrCartNotFound)
	}
	if len(cart.Items) == 0 {
		return fail(domain.ErrCartEmpty)
	}

	stage = StageVerifyTotals
	t, err := uc.verifyTotals(cart, in)
	if err != nil {
		return fail(err)
	}

	// Lectura fresca por línea: corta temprano, la garantía real es el descuento atómico.
	stage = StageValidateStock
	for _, it := range cart.Items {
		rec, err := uc.d.Records.Get(ctx, it.ProductID, in.StoreID)
		if err != nil {
			return fail(err)
		}
		if available := rec.TotalQuantity(); available.LessThan(it.Quantity) {
			return fail(domain.NewInsufficientStock(it.ProductID, in.StoreID, available, it.Quantity))
		}
	}

	stage = StageAtomic
	var order *entity.Order
	err = uc.d.TxRunner.Run(ctx, func(repos ports.TxRepos) error {
		locked, err := repos.Carts.GetForUpdate(ctx, in.StoreID, in.UserID)
		if err != nil {
			return err
		}
		if locked == nil || len(locked.Items) == 0 {
			return domain.ErrCartEmpty
		}
		if !locked.ComputeSubtotal().Equal(t.subtotal) || len(locked.Items) != len(cart.Items) {
			return domain.ErrCartModified
		}

		// Orden determinista de bloqueo entre checkouts concurrentes.
		lines := append([]entity.CartItem(nil), locked.Items...)
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		now := uc.d.Clock.Now()
		order = &entity.Order{
			ID:            uc.d.IDs.NewID(),
			StoreID:       in.StoreID,
			UserID:        in.UserID,
			Items:         snapshotItems(locked.Items),
			Subtotal:      t.subtotal,
			Tax:           in.Tax,
			Total:         t.total,
			Payments:      append([]entity.Payment(nil), in.Payments...),
			AmountPaid:    t.amountPaid,
			Change:        t.change,
			TransactionID: uc.d.TxnIDs.NewTransactionID(now),
			Status:        entity.OrderStatusCompleted,
			CreatedAt:     now,
		}

		for _, line := range lines {
			_, _, err := uc.d.Ledger.RemoveStockFIFOInTx(ctx, repos, inventory.RemoveStockInput{
				ProductID: line.ProductID,
				StoreID:   in.StoreID,
				Quantity:  line.Quantity,
				Reason:    entity.ReasonSale,
				Reference: order.ID,
			})
			if err != nil {
				return err
			}
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		locked.Empty(now)
		return repos.Carts.Save(ctx, locked)
	})
	if err != nil {
		return fail(err)
	}

	elapsed := uc.d.Clock.Now().Sub(started)
	uc.d.Metrics.CheckoutCompleted(in.StoreID, order.Total, elapsed)
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.transaction_id", order.TransactionID))
	uc.recordCompleted(ctx, order)
	uc.d.Logger.WithContext(ctx).Info().
		Str("order_id", order.ID).
		Str("transaction_id", order.TransactionID).
		Str("store_id", order.StoreID).
		Str("total", order.Total.StringFixed(2)).
		Int("items", len(order.Items)).
		Dur("elapsed", elapsed).
		Msg("checkout completed")
	return order, nil
}

// GetOrder devuelve una orden de la tienda o ErrNotFound.
func (uc *UseCase) GetOrder(ctx context.Context, orderID, storeID string) (*entity.Order, error) {
	o, err := uc.d.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || (storeID != "" && o.StoreID != storeID) {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func validatePayments(payments []entity.Payment) error {
	if len(payments) == 0 {
		return &domain.InvalidPaymentError{Index: -1, Reason: "se requiere al menos un pago"}
	}
	for i, p := range payments {
		if !entity.ValidPaymentMethod(p.Method) {
			return &domain.InvalidPaymentError{Index: i, Method: p.Method, Reason: "método no soportado"}
		}
		if !p.Amount.GreaterThan(decimal.Zero) {
			return &domain.InvalidPaymentError{Index: i, Method: p.Method, Reason: "el monto debe ser mayor que cero"}
		}
	}
	return nil
}

func (uc *UseCase) verifyTotals(cart *entity.Cart, in Input) (totals, error) {
	recomputed := cart.ComputeSubtotal()
	if cart.Subtotal.Sub(recomputed).Abs().GreaterThan(uc.d.Tolerance) {
		return totals{}, domain.NewIntegrityError(domain.ErrCartIntegrity, "subtotal del carrito", recomputed, cart.Subtotal)
	}
	total := recomputed.Add(in.Tax)

	amountPaid := decimal.Zero
	for _, p := range in.Payments {
		amountPaid = amountPaid.Add(p.Amount)
	}
	if amountPaid.LessThan(total) {
		return totals{}, &domain.InsufficientPaymentError{Total: total, Paid: amountPaid}
	}

	// Segunda suma independiente de los pagos.
	resum := decimal.Sum(decimal.Zero, paymentAmounts(in.Payments)...)
	if resum.Sub(amountPaid).Abs().GreaterThan(uc.d.Tolerance) {
		return totals{}, domain.NewIntegrityError(domain.ErrPaymentIntegrity, "suma de pagos", amountPaid, resum)
	}

	return totals{
		subtotal:   recomputed,
		total:      total,
		amountPaid: amountPaid,
		change:     amountPaid.Sub(total),
	}, nil
}

func paymentAmounts(payments []entity.Payment) []decimal.Decimal {
	out := make([]decimal.Decimal, len(payments))
	for i, p := range payments {
		out[i] = p.Amount
	}
	return out
}

func snapshotItems(items []entity.CartItem) []entity.OrderItem {
	out := make([]entity.OrderItem, len(items))
	for i, it := range items {
		out[i] = entity.OrderItem{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		}
	}
	return out
}

func (uc *UseCase) recordCompleted(ctx context.Context, o *entity.Order) {
	uc.d.Auditor.Record(ctx, entity.AuditEvent{
		Action:     entity.AuditCheckoutComplete,
		EntityType: entity.AuditEntityOrder,
		EntityID:   o.ID,
		StoreID:    o.StoreID,
		UserID:     o.UserID,
		Severity:   entity.SeverityMedium,
		After: map[string]any{
			"order_id":       o.ID,
			"total":          o.Total.StringFixed(2),
			"items_count":    len(o.Items),
			"transaction_id": o.TransactionID,
		},
	})

	payments := make([]map[string]any, len(o.Payments))
	for i, p := range o.Payments {
		payments[i] = map[string]any{"method": p.Method, "amount": p.Amount.StringFixed(2)}
	}
	uc.d.Auditor.Record(ctx, entity.AuditEvent{
		Action:     entity.AuditPaymentRecorded,
		EntityType: entity.AuditEntityPayment,
		EntityID:   o.TransactionID,
		StoreID:    o.StoreID,
		UserID:     o.UserID,
		Severity:   entity.SeverityMedium,
		After: map[string]any{
			"transaction_id": o.TransactionID,
			"amount_paid":    o.AmountPaid.StringFixed(2),
			"payments":       payments,
			"change":         o.Change.StringFixed(2),
		},
	})
}

func (uc *UseCase) onFailure(ctx context.Context, in Input, stage string, err error) {
	kind := domain.KindOf(err)
	uc.d.Metrics.CheckoutFailed(stage, kindLabel(kind))

	zl := uc.d.Logger.WithContext(ctx)
	switch kind {
	case domain.KindIntegrity:
		var ie *domain.IntegrityError
		check := stage
		if errors.As(err, &ie) {
			check = ie.Check
		}
		uc.d.Metrics.IntegrityViolation(check)
		uc.d.Auditor.Record(ctx, audit.IntegrityViolation(err, entity.AuditEntityOrder, "", in.StoreID, in.UserID))
		zl.Error().Err(err).Str("stage", stage).Str("store_id", in.StoreID).Str("user_id", in.UserID).Msg("checkout integrity violation")
	case domain.KindUnknown:
		zl.Warn().Err(err).Str("stage", stage).Str("store_id", in.StoreID).Msg("checkout aborted")
	default:
		zl.Debug().Err(err).Str("stage", stage).Str("store_id", in.StoreID).Msg("checkout rejected")
	}
}

func kindLabel(k domain.Kind) string {
	switch k {
	case domain.KindValidation:
		return "validation"
	case domain.KindConflict:
		return "conflict"
	case domain.KindIntegrity:
		return "integrity"
	}
	return "internal"
}
