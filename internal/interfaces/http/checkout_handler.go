package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/perecederos-pos/internal/application/checkout"
	"github.com/jhoicas/perecederos-pos/internal/application/dto"
)

// CheckoutHandler cobro del carrito y consulta de órdenes.
type CheckoutHandler struct {
	uc *checkout.UseCase
	errorResponder
}

// NewCheckoutHandler construye el handler.
func NewCheckoutHandler(uc *checkout.UseCase, er errorResponder) *CheckoutHandler {
	return &CheckoutHandler{uc: uc, errorResponder: er}
}

// Checkout POST /api/stores/:storeId/checkout
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var in dto.CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	order, err := h.uc.Checkout(c.UserContext(), checkout.Input{
		StoreID:  c.Params("storeId"),
		UserID:   GetUserID(c),
		Payments: in.ToPayments(),
		Tax:      in.Tax,
	})
	if err != nil {
		// El caso de uso ya auditó la violación de integridad.
		return h.fail(c, err, nil)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromOrder(order))
}

// GetOrder GET /api/stores/:storeId/orders/:id
func (h *CheckoutHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.uc.GetOrder(c.UserContext(), c.Params("id"), c.Params("storeId"))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return c.JSON(dto.FromOrder(order))
}
