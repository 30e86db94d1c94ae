package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/perecederos-pos/internal/application/audit"
	"github.com/jhoicas/perecederos-pos/internal/application/cart"
	"github.com/jhoicas/perecederos-pos/internal/application/checkout"
	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
	"github.com/jhoicas/perecederos-pos/internal/application/purchasing"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/memory"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/perecederos-pos/internal/interfaces/http"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testUser = "cajero-1"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%03d", s.n)
}

type testEnv struct {
	app   *fiber.App
	store *memory.Store
	disp  *audit.Dispatcher
}

func newEnv(t *testing.T, ping func(context.Context) error) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clock := fixedClock{time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	ids := &seqIDs{}
	disp := audit.NewDispatcher(audit.NewRepositorySink(store.Audit()), time.Second, ids, clock, logger.Nop())
	collector := metrics.NewCollector()
	ledger := inventory.NewLedger(store, clock, ids, entity.DefaultLowStockThreshold, collector)
	repos := store.Repos()

	store.Products().Put(&entity.Product{ID: "p1", SKU: "LECHE", Name: "Leche", Price: decimal.RequireFromString("2.99")})

	app := apphttp.NewApp("test")
	apphttp.Router(app, apphttp.RouterDeps{
		InventoryUC: inventory.NewUseCase(store, repos.Records, repos.Transactions, ledger, disp, clock, logger.Nop()),
		CartUC:      cart.NewUseCase(store, store.Products(), clock, ids, logger.Nop()),
		CheckoutUC: checkout.NewUseCase(checkout.Deps{
			TxRunner: store, Carts: repos.Carts, Records: repos.Records, Orders: repos.Orders,
			Ledger: ledger, Clock: clock, IDs: ids, Auditor: disp, Metrics: collector,
		}),
		PurchasingUC: purchasing.NewUseCase(store, repos.PurchaseOrders, ledger, disp, clock, ids, logger.Nop()),
		Auditor:      disp,
		Metrics:      collector,
		Logger:       logger.Nop(),
		Ping:         ping,
	})
	return &testEnv{app: app, store: store, disp: disp}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apphttp.HeaderUserID, testUser)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (e *testEnv) restock(t *testing.T, qty string) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, "/api/inventory/adjust", map[string]any{
		"product_id": "p1", "store_id": "s1", "change_type": "in", "quantity": qty,
		"batch_number": "L1", "expiry_date": "2026-06-20",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTP_CarritoYCheckout(t *testing.T) {
	e := newEnv(t, nil)
	e.restock(t, "10")

	resp, body := e.do(t, http.MethodPost, "/api/stores/s1/cart/items", map[string]any{"product_id": "p1", "quantity": 3})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "8.97", body["subtotal"])

	resp, body = e.do(t, http.MethodPost, "/api/stores/s1/checkout", map[string]any{
		"payments": []map[string]any{{"method": "CASH", "amount": "10.00"}},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "8.97", body["total"])
	assert.Equal(t, "1.03", body["change"])
	assert.Regexp(t, `^TXN-\d+-[A-Z0-9]{9}$`, body["transaction_id"])
	orderID := body["id"].(string)

	resp, body = e.do(t, http.MethodGet, "/api/inventory/p1/available?store_id=s1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "7", body["available"])

	resp, body = e.do(t, http.MethodGet, "/api/stores/s1/orders/"+orderID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, orderID, body["id"])

	resp, body = e.do(t, http.MethodGet, "/api/stores/s1/cart", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["items"])

	resp, body = e.do(t, http.MethodGet, "/api/inventory/p1/history?store_id=s1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])
}

func TestHTTP_SinUsuarioEs401(t *testing.T) {
	e := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/stores/s1/cart", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Mapeo de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTP_StockInsuficienteEs409ConDetalle(t *testing.T) {
	e := newEnv(t, nil)
	e.restock(t, "2")

	resp, body := e.do(t, http.MethodPost, "/api/stores/s1/cart/items", map[string]any{"product_id": "p1", "quantity": 5})

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2", details["available"])
	assert.Equal(t, "5", details["requested"])
}

func TestHTTP_Validaciones(t *testing.T) {
	e := newEnv(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"entrada sin lote", http.MethodPost, "/api/inventory/adjust", map[string]any{"product_id": "p1", "store_id": "s1", "change_type": "IN", "quantity": 1}, 400, "BATCH_NUMBER_REQUIRED"},
		{"tipo inválido", http.MethodPost, "/api/inventory/adjust", map[string]any{"product_id": "p1", "store_id": "s1", "change_type": "MOVE", "quantity": 1}, 400, "INVALID_CHANGE_TYPE"},
		{"fecha inválida", http.MethodPost, "/api/inventory/adjust", map[string]any{"product_id": "p1", "store_id": "s1", "change_type": "IN", "quantity": 1, "batch_number": "L1", "expiry_date": "ayer"}, 400, "VALIDATION"},
		{"producto inexistente", http.MethodPost, "/api/stores/s1/cart/items", map[string]any{"product_id": "zz", "quantity": 1}, 404, "PRODUCT_NOT_FOUND"},
		{"checkout sin carrito", http.MethodPost, "/api/stores/s1/checkout", map[string]any{"payments": []map[string]any{{"method": "CASH", "amount": 1}}}, 404, "CART_NOT_FOUND"},
		{"pago inválido", http.MethodPost, "/api/stores/s1/checkout", map[string]any{"payments": []map[string]any{{"method": "CHEQUE", "amount": 1}}}, 400, "INVALID_PAYMENT"},
		{"orden de compra inexistente", http.MethodPost, "/api/stores/s1/purchase-orders/nope/receive", nil, 404, "PURCHASE_ORDER_NOT_FOUND"},
		{"registro inexistente", http.MethodGet, "/api/inventory/p9?store_id=s1", nil, 404, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := e.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestHTTP_IntegridadDelCarritoSeEscalaComoCritica(t *testing.T) {
	e := newEnv(t, nil)
	e.restock(t, "10")
	resp, _ := e.do(t, http.MethodPost, "/api/stores/s1/cart/items", map[string]any{"product_id": "p1", "quantity": 1})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Subtotal persistido manipulado fuera del caso de uso.
	ctx := context.Background()
	c, err := e.store.Repos().Carts.Get(ctx, "s1", testUser)
	require.NoError(t, err)
	c.Subtotal = decimal.RequireFromString("0.50")
	require.NoError(t, e.store.Repos().Carts.Save(ctx, c))

	resp, body := e.do(t, http.MethodPost, "/api/stores/s1/checkout", map[string]any{
		"payments": []map[string]any{{"method": "CARD", "amount": "5"}},
	})

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTEGRITY_VIOLATION", body["code"])
	e.disp.Wait()
	var critical int
	for _, ev := range e.store.Audit().Events() {
		if ev.Action == entity.AuditIntegrityViolation && ev.Severity == entity.SeverityCritical {
			critical++
		}
	}
	assert.Equal(t, 1, critical, "una sola escalación: la del caso de uso")
}

// ──────────────────────────────────────────────────────────────────────────────
// Órdenes de compra, alertas, health y métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTP_OrdenDeCompraCrearYRecibir(t *testing.T) {
	e := newEnv(t, nil)

	resp, body := e.do(t, http.MethodPost, "/api/stores/s1/purchase-orders", map[string]any{
		"supplier_name": "Lácteos del Valle",
		"items": []map[string]any{
			{"product_id": "p1", "batch_number": "PO-L1", "quantity": 24, "expected_delivery_date": "2026-06-03"},
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", body["status"])
	id := body["id"].(string)

	resp, body = e.do(t, http.MethodPost, "/api/stores/s1/purchase-orders/"+id+"/receive", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "RECEIVED", body["status"])

	resp, body = e.do(t, http.MethodPost, "/api/stores/s1/purchase-orders/"+id+"/cancel", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_PURCHASE_ORDER_STATE", body["code"])

	resp, body = e.do(t, http.MethodGet, "/api/inventory/alerts?store_id=s1&days=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["expiring_count"], "el lote vence con la fecha de entrega")

	resp, body = e.do(t, http.MethodGet, "/api/stores/s1/purchase-orders?status=received", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"])
}

func TestHTTP_Health(t *testing.T) {
	ok := newEnv(t, nil)
	resp, body := ok.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	down := newEnv(t, func(context.Context) error { return errors.New("db caída") })
	resp, _ = down.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTP_MetricasExpuestas(t *testing.T) {
	e := newEnv(t, nil)
	e.restock(t, "3")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `pos_stock_movements_total{change_type="IN",reason="MANUAL"} 1`)
	assert.Contains(t, string(raw), "pos_http_requests_total")
}
