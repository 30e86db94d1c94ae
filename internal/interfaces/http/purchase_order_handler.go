package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/perecederos-pos/internal/application/dto"
	"github.com/jhoicas/perecederos-pos/internal/application/purchasing"
	"github.com/jhoicas/perecederos-pos/internal/domain"
)

// PurchaseOrderHandler órdenes de compra de una tienda.
type PurchaseOrderHandler struct {
	uc *purchasing.UseCase
	errorResponder
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(uc *purchasing.UseCase, er errorResponder) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{uc: uc, errorResponder: er}
}

// Create POST /api/stores/:storeId/purchase-orders
func (h *PurchaseOrderHandler) Create(c *fiber.Ctx) error {
	var req dto.CreatePurchaseOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput(c.Params("storeId"), GetUserID(c))
	if err != nil {
		return h.fail(c, domain.ErrInvalidInput, nil)
	}
	po, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromPurchaseOrder(po))
}

// List GET /api/stores/:storeId/purchase-orders?status=
func (h *PurchaseOrderHandler) List(c *fiber.Ctx) error {
	list, err := h.uc.List(c.UserContext(), c.Params("storeId"), strings.ToUpper(c.Query("status")))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.NewList(dto.FromPurchaseOrders(list)))
}

// Get GET /api/stores/:storeId/purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *fiber.Ctx) error {
	po, err := h.uc.Get(c.UserContext(), c.Params("id"), c.Params("storeId"))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.FromPurchaseOrder(po))
}

// Receive POST /api/stores/:storeId/purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *fiber.Ctx) error {
	po, err := h.uc.Receive(c.UserContext(), c.Params("id"), c.Params("storeId"), GetUserID(c))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.FromPurchaseOrder(po))
}

// Cancel POST /api/stores/:storeId/purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *fiber.Ctx) error {
	po, err := h.uc.Cancel(c.UserContext(), c.Params("id"), c.Params("storeId"), GetUserID(c))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.FromPurchaseOrder(po))
}
