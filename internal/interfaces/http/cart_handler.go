package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/perecederos-pos/internal/application/cart"
	"github.com/jhoicas/perecederos-pos/internal/application/dto"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

// CartHandler carrito del cajero en una tienda.
type CartHandler struct {
	uc *cart.UseCase
	errorResponder
}

// NewCartHandler construye el handler.
func NewCartHandler(uc *cart.UseCase, er errorResponder) *CartHandler {
	return &CartHandler{uc: uc, errorResponder: er}
}

// El caso de uso de carrito no audita: las violaciones de integridad se escalan aquí.
func (h *CartHandler) esc(c *fiber.Ctx) *escalation {
	return &escalation{entityType: "CART", entityID: GetUserID(c), storeID: c.Params("storeId")}
}

func (h *CartHandler) reply(c *fiber.Ctx, status int, ct *entity.Cart, err error) error {
	if err != nil {
		return h.fail(c, err, h.esc(c))
	}
	return c.Status(status).JSON(dto.FromCart(ct))
}

// Get GET /api/stores/:storeId/cart
func (h *CartHandler) Get(c *fiber.Ctx) error {
	ct, err := h.uc.GetOrCreate(c.UserContext(), c.Params("storeId"), GetUserID(c))
	return h.reply(c, fiber.StatusOK, ct, err)
}

// AddItem POST /api/stores/:storeId/cart/items
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var in dto.AddCartItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ct, err := h.uc.AddItem(c.UserContext(), c.Params("storeId"), GetUserID(c), in.ProductID, in.Quantity)
	return h.reply(c, fiber.StatusOK, ct, err)
}

// UpdateItem PUT /api/stores/:storeId/cart/items/:productId
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	var in dto.UpdateCartItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ct, err := h.uc.UpdateItemQuantity(c.UserContext(), c.Params("storeId"), GetUserID(c), c.Params("productId"), in.Quantity)
	return h.reply(c, fiber.StatusOK, ct, err)
}

// RemoveItem DELETE /api/stores/:storeId/cart/items/:productId
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	ct, err := h.uc.RemoveItem(c.UserContext(), c.Params("storeId"), GetUserID(c), c.Params("productId"))
	return h.reply(c, fiber.StatusOK, ct, err)
}

// Clear DELETE /api/stores/:storeId/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	ct, err := h.uc.Clear(c.UserContext(), c.Params("storeId"), GetUserID(c))
	return h.reply(c, fiber.StatusOK, ct, err)
}
