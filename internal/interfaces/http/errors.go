package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/perecederos-pos/internal/application/audit"
	"github.com/jhoicas/perecederos-pos/internal/application/dto"
	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
)

// errorStatus código HTTP y código de negocio para cada sentinela.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrBatchNumberRequired, fiber.StatusBadRequest, "BATCH_NUMBER_REQUIRED"},
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrInvalidChangeType, fiber.StatusBadRequest, "INVALID_CHANGE_TYPE"},
	{domain.ErrInvalidReason, fiber.StatusBadRequest, "INVALID_REASON"},
	{domain.ErrInvalidPayment, fiber.StatusBadRequest, "INVALID_PAYMENT"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInsufficientPayment, fiber.StatusBadRequest, "INSUFFICIENT_PAYMENT"},
	{domain.ErrCartNotFound, fiber.StatusNotFound, "CART_NOT_FOUND"},
	{domain.ErrItemNotFound, fiber.StatusNotFound, "ITEM_NOT_FOUND"},
	{domain.ErrProductNotFound, fiber.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{domain.ErrPONotFound, fiber.StatusNotFound, "PURCHASE_ORDER_NOT_FOUND"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrCartEmpty, fiber.StatusConflict, "CART_EMPTY"},
	{domain.ErrCartModified, fiber.StatusConflict, "CART_MODIFIED"},
	{domain.ErrInvalidPOState, fiber.StatusConflict, "INVALID_PURCHASE_ORDER_STATE"},
}

// errorResponder traduce errores de dominio a respuestas HTTP. Las violaciones de integridad
// que no escala el caso de uso se escalan aquí a la auditoría con severidad CRITICAL.
type errorResponder struct {
	auditor ports.Auditor
	log     *logger.Logger
}

// escalation datos del recurso afectado para el evento de auditoría.
type escalation struct {
	entityType string
	entityID   string
	storeID    string
}

func (r errorResponder) fail(c *fiber.Ctx, err error, esc *escalation) error {
	ctx := c.UserContext()
	if domain.IsIntegrityViolation(err) {
		r.log.WithContext(ctx).Error().Err(err).Str("path", c.Path()).Msg("integrity violation")
		if esc != nil && r.auditor != nil {
			r.auditor.Record(ctx, audit.IntegrityViolation(err, esc.entityType, esc.entityID, esc.storeID, GetUserID(c)))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code:    "INTEGRITY_VIOLATION",
			Message: "inconsistencia de datos detectada; la operación no se aplicó",
		})
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: err.Error(),
			Details: map[string]any{
				"product_id": stockErr.ProductID,
				"available":  stockErr.Available,
				"requested":  stockErr.Requested,
			},
		})
	}
	var payErr *domain.InsufficientPaymentError
	if errors.As(err, &payErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_PAYMENT",
			Message: err.Error(),
			Details: map[string]any{"total": payErr.Total, "paid": payErr.Paid},
		})
	}

	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}

	r.log.WithContext(ctx).Warn().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
