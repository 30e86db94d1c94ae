package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind agrupa los errores de dominio según cómo debe reaccionar el caller.
type Kind int

const (
	KindUnknown    Kind = iota
	KindValidation      // culpa del caller, no se reintenta
	KindConflict        // resultado esperable de actividad concurrente
	KindIntegrity       // bug o manipulación: escalar con severidad alta
)

// Errores de validación.
var (
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInvalidChangeType   = errors.New("tipo de movimiento inválido, debe ser IN u OUT")
	ErrInvalidReason       = errors.New("motivo de movimiento inválido")
	ErrBatchNumberRequired = errors.New("batchNumber es obligatorio para entradas (IN)")
	ErrInvalidQuantity     = errors.New("la cantidad debe ser mayor que cero")
	ErrInvalidPayment      = errors.New("pago inválido")
)

// Conflictos de estado.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrInsufficientPayment = errors.New("pago insuficiente")
	ErrCartNotFound        = errors.New("carrito no encontrado")
	ErrCartEmpty           = errors.New("el carrito está vacío o ya fue pagado")
	ErrCartModified        = errors.New("el carrito cambió durante el checkout")
	ErrItemNotFound        = errors.New("el producto no está en el carrito")
	ErrProductNotFound     = errors.New("producto no encontrado")
	ErrPONotFound          = errors.New("orden de compra no encontrada")
	ErrInvalidPOState      = errors.New("estado de la orden de compra no permite la operación")
)

// Violaciones de integridad.
var (
	ErrCartIntegrity    = errors.New("violación de integridad del carrito")
	ErrPaymentIntegrity = errors.New("violación de integridad de pagos")
	ErrLedgerIntegrity  = errors.New("violación de integridad del inventario por lotes")
)

var validationErrs = []error{
	ErrInvalidInput, ErrInvalidChangeType, ErrInvalidReason,
	ErrBatchNumberRequired, ErrInvalidQuantity, ErrInvalidPayment,
}

var conflictErrs = []error{
	ErrNotFound, ErrInsufficientStock, ErrInsufficientPayment, ErrCartNotFound, ErrCartEmpty, ErrCartModified,
	ErrItemNotFound, ErrProductNotFound, ErrPONotFound, ErrInvalidPOState,
}

var integrityErrs = []error{ErrCartIntegrity, ErrPaymentIntegrity, ErrLedgerIntegrity}

// KindOf clasifica err recorriendo la cadena de wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, target := range integrityErrs {
		if errors.Is(err, target) {
			return KindIntegrity
		}
	}
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return KindValidation
		}
	}
	for _, target := range conflictErrs {
		if errors.Is(err, target) {
			return KindConflict
		}
	}
	return KindUnknown
}

// IsIntegrityViolation indica si err debe escalarse como violación de integridad.
func IsIntegrityViolation(err error) bool {
	return KindOf(err) == KindIntegrity
}

// InsufficientStockError detalla el faltante de stock para un producto en una tienda.
type InsufficientStockError struct {
	ProductID string
	StoreID   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s para %s: disponible %s, solicitado %s",
		ErrInsufficientStock.Error(), e.ProductID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NewInsufficientStock construye el error tipado de stock insuficiente.
func NewInsufficientStock(productID, storeID string, available, requested decimal.Decimal) error {
	return &InsufficientStockError{
		ProductID: productID,
		StoreID:   storeID,
		Available: available,
		Requested: requested,
	}
}

// InsufficientPaymentError detalla el total a pagar frente a lo recibido.
type InsufficientPaymentError struct {
	Total decimal.Decimal
	Paid  decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("%s: total %s, pagado %s",
		ErrInsufficientPayment.Error(), e.Total.StringFixed(2), e.Paid.StringFixed(2))
}

func (e *InsufficientPaymentError) Unwrap() error { return ErrInsufficientPayment }

// IntegrityError describe un agregado cacheado que no coincide con su valor recalculado.
type IntegrityError struct {
	Kind     error // ErrCartIntegrity, ErrPaymentIntegrity o ErrLedgerIntegrity
	Check    string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s (esperado %s, obtenido %s)",
		e.Kind.Error(), e.Check, e.Expected.String(), e.Actual.String())
}

func (e *IntegrityError) Unwrap() error { return e.Kind }

// NewIntegrityError construye una violación de integridad de la clase indicada.
func NewIntegrityError(kind error, check string, expected, actual decimal.Decimal) error {
	return &IntegrityError{Kind: kind, Check: check, Expected: expected, Actual: actual}
}

// InvalidPaymentError indica qué pago de la lista es inválido.
type InvalidPaymentError struct {
	Index  int
	Method string
	Reason string
}

func (e *InvalidPaymentError) Error() string {
	return fmt.Sprintf("%s #%d (%s): %s", ErrInvalidPayment.Error(), e.Index, e.Method, e.Reason)
}

func (e *InvalidPaymentError) Unwrap() error { return ErrInvalidPayment }

// InvalidPOStateError indica el estado actual que impide la transición.
type InvalidPOStateError struct {
	Current string
}

func (e *InvalidPOStateError) Error() string {
	return fmt.Sprintf("%s: la orden ya está %s", ErrInvalidPOState.Error(), e.Current)
}

func (e *InvalidPOStateError) Unwrap() error { return ErrInvalidPOState }
