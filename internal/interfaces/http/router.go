package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/perecederos-pos/internal/application/cart"
	"github.com/jhoicas/perecederos-pos/internal/application/checkout"
	"github.com/jhoicas/perecederos-pos/internal/application/dto"
	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/application/purchasing"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/metrics"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	InventoryUC       *inventory.UseCase
	CartUC            *cart.UseCase
	CheckoutUC        *checkout.UseCase
	PurchasingUC      *purchasing.UseCase
	Auditor           ports.Auditor
	Metrics           *metrics.Collector // nil desactiva /metrics
	Logger            *logger.Logger
	ExpiryWarningDays int
	// Ping verifica el almacenamiento para /health; nil = siempre sano.
	Ping func(ctx context.Context) error
}

// NewApp crea la app Fiber con el manejador de errores y los middlewares globales.
func NewApp(appName string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: appName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Code: "HTTP_ERROR", Message: err.Error()})
		},
	})
	app.Use(recover.New())
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	er := errorResponder{auditor: deps.Auditor, log: deps.Logger}

	app.Use(Tracing(), Metrics(deps.Metrics), Identity())

	app.Get("/health", healthHandler(deps.Ping))
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Inventario. Las rutas fijas van antes de /:productId.
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.InventoryUC, deps.ExpiryWarningDays, er)
	inv.Post("/adjust", requireUser(), inventoryHandler.Adjust)
	inv.Get("/low-stock", inventoryHandler.LowStock)
	inv.Get("/alerts", inventoryHandler.Alerts)
	inv.Get("/:productId/history", inventoryHandler.History)
	inv.Get("/:productId/available", inventoryHandler.Available)
	inv.Get("/:productId", inventoryHandler.GetRecord)

	// Todo lo de una tienda requiere identificar al cajero.
	store := api.Group("/stores/:storeId", requireUser())

	cartHandler := NewCartHandler(deps.CartUC, er)
	store.Get("/cart", cartHandler.Get)
	store.Delete("/cart", cartHandler.Clear)
	store.Post("/cart/items", cartHandler.AddItem)
	store.Put("/cart/items/:productId", cartHandler.UpdateItem)
	store.Delete("/cart/items/:productId", cartHandler.RemoveItem)

	checkoutHandler := NewCheckoutHandler(deps.CheckoutUC, er)
	store.Post("/checkout", checkoutHandler.Checkout)
	store.Get("/orders/:id", checkoutHandler.GetOrder)

	poHandler := NewPurchaseOrderHandler(deps.PurchasingUC, er)
	store.Post("/purchase-orders", poHandler.Create)
	store.Get("/purchase-orders", poHandler.List)
	store.Get("/purchase-orders/:id", poHandler.Get)
	store.Post("/purchase-orders/:id/receive", poHandler.Receive)
	store.Post("/purchase-orders/:id/cancel", poHandler.Cancel)
}

func healthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
