package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/perecederos-pos/internal/application/dto"
	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
	"github.com/jhoicas/perecederos-pos/internal/domain"
)

// InventoryHandler ajustes y consultas del inventario por lotes.
type InventoryHandler struct {
	uc                *inventory.UseCase
	expiryWarningDays int
	errorResponder
}

// NewInventoryHandler construye el handler. expiryWarningDays es la ventana por defecto de alertas.
func NewInventoryHandler(uc *inventory.UseCase, expiryWarningDays int, er errorResponder) *InventoryHandler {
	if expiryWarningDays <= 0 {
		expiryWarningDays = 7
	}
	return &InventoryHandler{uc: uc, expiryWarningDays: expiryWarningDays, errorResponder: er}
}

// Adjust POST /api/inventory/adjust
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	expiry, err := dto.ParseDate(in.ExpiryDate)
	if err != nil {
		return h.fail(c, domain.ErrInvalidInput, nil)
	}
	rec, err := h.uc.Adjust(c.UserContext(), inventory.AdjustInput{
		ProductID:   in.ProductID,
		StoreID:     in.StoreID,
		UserID:      GetUserID(c),
		ChangeType:  strings.ToUpper(strings.TrimSpace(in.ChangeType)),
		Quantity:    in.Quantity,
		Reason:      strings.ToUpper(strings.TrimSpace(in.Reason)),
		BatchNumber: in.BatchNumber,
		ExpiryDate:  expiry,
	})
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.Status(fiber.StatusOK).JSON(dto.FromRecord(rec))
}

// GetRecord GET /api/inventory/:productId?store_id=
func (h *InventoryHandler) GetRecord(c *fiber.Ctx) error {
	rec, err := h.uc.GetRecord(c.UserContext(), c.Params("productId"), c.Query("store_id"))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.FromRecord(rec))
}

// Available GET /api/inventory/:productId/available?store_id=
func (h *InventoryHandler) Available(c *fiber.Ctx) error {
	storeID := c.Query("store_id")
	if storeID == "" {
		return h.fail(c, domain.ErrInvalidInput, nil)
	}
	q, err := h.uc.GetAvailableQuantity(c.UserContext(), c.Params("productId"), storeID)
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(fiber.Map{"product_id": c.Params("productId"), "store_id": storeID, "available": q})
}

// History GET /api/inventory/:productId/history?store_id=
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	rows, err := h.uc.GetHistory(c.UserContext(), c.Params("productId"), c.Query("store_id"))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.NewList(dto.FromTransactions(rows)))
}

// LowStock GET /api/inventory/low-stock?store_id=
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.uc.ListLowStock(c.UserContext(), c.Query("store_id"))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.NewList(dto.FromLowStock(items)))
}

// Alerts GET /api/inventory/alerts?store_id=&days=
func (h *InventoryHandler) Alerts(c *fiber.Ctx) error {
	days := c.QueryInt("days", h.expiryWarningDays)
	if days < 0 {
		return h.fail(c, domain.ErrInvalidInput, nil)
	}
	alerts, err := h.uc.GetAlerts(c.UserContext(), c.Query("store_id"), days)
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.FromAlerts(alerts))
}
