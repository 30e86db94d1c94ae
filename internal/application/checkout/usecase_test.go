package checkout_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/audit"
	"github.com/jhoicas/perecederos-pos/internal/application/cart"
	"github.com/jhoicas/perecederos-pos/internal/application/checkout"
	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/memory"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

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

type fixedTxn struct{}

func (fixedTxn) NewTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%d-ABCDEFGHI", now.UnixMilli())
}

type recordingSink struct {
	mu     sync.Mutex
	events []entity.AuditEvent
}

func (r *recordingSink) Write(_ context.Context, ev entity.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Action
	}
	return out
}

// hookRunner ejecuta before justo antes de abrir la transacción atómica del checkout.
type hookRunner struct {
	inner  ports.TxRunner
	before func()
}

func (h *hookRunner) Run(ctx context.Context, fn func(ports.TxRepos) error) error {
	if h.before != nil {
		b := h.before
		h.before = nil
		b()
	}
	return h.inner.Run(ctx, fn)
}

type fixture struct {
	store  *memory.Store
	ledger *inventory.Ledger
	carts  *cart.UseCase
	inv    *inventory.UseCase
	uc     *checkout.UseCase
	runner *hookRunner
	sink   *recordingSink
	disp   *audit.Dispatcher
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := fixedClock{t0}
	ids := &seqIDs{}
	sink := &recordingSink{}
	disp := audit.NewDispatcher(sink, time.Second, ids, clock, logger.Nop())
	ledger := inventory.NewLedger(store, clock, ids, entity.DefaultLowStockThreshold, nil)
	repos := store.Repos()
	runner := &hookRunner{inner: store}

	for _, p := range []*entity.Product{
		{ID: "p1", SKU: "LECHE", Name: "Leche", Price: dec("2.99")},
		{ID: "p2", SKU: "PAN", Name: "Pan", Price: dec("1.50")},
		{ID: "p3", SKU: "QUESO", Name: "Queso", Price: dec("4.00")},
	} {
		store.Products().Put(p)
	}

	return &fixture{
		store:  store,
		ledger: ledger,
		carts:  cart.NewUseCase(store, store.Products(), clock, ids, logger.Nop()),
		inv:    inventory.NewUseCase(store, repos.Records, repos.Transactions, ledger, disp, clock, logger.Nop()),
		uc: checkout.NewUseCase(checkout.Deps{
			TxRunner: runner,
			Carts:    repos.Carts,
			Records:  repos.Records,
			Orders:   repos.Orders,
			Ledger:   ledger,
			Clock:    clock,
			IDs:      ids,
			TxnIDs:   fixedTxn{},
			Auditor:  disp,
			Logger:   logger.Nop(),
		}),
		runner: runner,
		sink:   sink,
		disp:   disp,
	}
}

func (f *fixture) stock(t *testing.T, productID string, q string) {
	t.Helper()
	_, _, err := f.ledger.AddStock(context.Background(), inventory.AddStockInput{
		ProductID: productID, StoreID: "s1", BatchNumber: "L-" + productID, Quantity: dec(q),
	})
	require.NoError(t, err)
}

func (f *fixture) available(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	q, err := f.inv.GetAvailableQuantity(context.Background(), productID, "s1")
	require.NoError(t, err)
	return q
}

func cash(amount string) []entity.Payment {
	return []entity.Payment{{Method: entity.PaymentCash, Amount: dec(amount)}}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario principal
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckout_EscenarioEfectivoConVuelto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "10")
	_, err := f.carts.AddItem(ctx, "s1", "u1", "p1", dec("3"))
	require.NoError(t, err)

	order, err := f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("10.00")})

	require.NoError(t, err)
	assert.True(t, order.Subtotal.Equal(dec("8.97")))
	assert.True(t, order.Total.Equal(dec("8.97")))
	assert.True(t, order.AmountPaid.Equal(dec("10")))
	assert.True(t, order.Change.Equal(dec("1.03")))
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, fmt.Sprintf("TXN-%d-ABCDEFGHI", t0.UnixMilli()), order.TransactionID)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].LineTotal.Equal(dec("8.97")))

	assert.True(t, f.available(t, "p1").Equal(dec("7")))
	c, err := f.carts.GetOrCreate(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Subtotal.IsZero())

	stored, err := f.uc.GetOrder(ctx, order.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, order.TransactionID, stored.TransactionID)
	_, err = f.uc.GetOrder(ctx, order.ID, "otra-tienda")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	history, err := f.inv.GetHistory(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, history[0].Reference)
	assert.Equal(t, entity.ReasonSale, history[0].Reason)

	f.disp.Wait()
	assert.ElementsMatch(t, []string{entity.AuditCheckoutComplete, entity.AuditPaymentRecorded}, f.sink.actions())
}

func TestCheckout_PagoMixtoConImpuesto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p2", "10")
	_, err := f.carts.AddItem(ctx, "s1", "u1", "p2", dec("4"))
	require.NoError(t, err)

	order, err := f.uc.Checkout(ctx, checkout.Input{
		StoreID: "s1", UserID: "u1", Tax: dec("0.60"),
		Payments: []entity.Payment{
			{Method: entity.PaymentCard, Amount: dec("5.00")},
			{Method: entity.PaymentEWallet, Amount: dec("1.60")},
		},
	})

	require.NoError(t, err)
	assert.True(t, order.Total.Equal(dec("6.60")))
	assert.True(t, order.Change.IsZero())
	assert.Len(t, order.Payments, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validaciones previas
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckout_PagosInvalidos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		payments []entity.Payment
	}{
		{"sin pagos", nil},
		{"método desconocido", []entity.Payment{{Method: "BITCOIN", Amount: dec("5")}}},
		{"monto cero", []entity.Payment{{Method: entity.PaymentCash, Amount: dec("0")}}},
		{"monto negativo", []entity.Payment{{Method: entity.PaymentCard, Amount: dec("-1")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: tc.payments})
			assert.ErrorIs(t, err, domain.ErrInvalidPayment)
		})
	}
}

func TestCheckout_CarritoInexistenteOVacio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("1")})
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = f.carts.GetOrCreate(ctx, "s1", "u1")
	require.NoError(t, err)
	_, err = f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("1")})
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
}

func TestCheckout_PagoInsuficiente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "10")
	_, err := f.carts.AddItem(ctx, "s1", "u1", "p1", dec("3"))
	require.NoError(t, err)

	_, err = f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("8.96")})

	var payErr *domain.InsufficientPaymentError
	require.ErrorAs(t, err, &payErr)
	assert.True(t, payErr.Total.Equal(dec("8.97")))
	assert.True(t, f.available(t, "p1").Equal(dec("10")))
}

func TestCheckout_SubtotalAlteradoEsViolacionDeIntegridad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "10")
	c, err := f.carts.AddItem(ctx, "s1", "u1", "p1", dec("3"))
	require.NoError(t, err)

	c.Subtotal = dec("1.00")
	require.NoError(t, f.store.Repos().Carts.Save(ctx, c))

	_, err = f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("10")})

	assert.ErrorIs(t, err, domain.ErrCartIntegrity)
	assert.True(t, domain.IsIntegrityViolation(err))
	assert.Empty(t, f.store.Orders())
	assert.True(t, f.available(t, "p1").Equal(dec("10")))

	f.disp.Wait()
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, entity.AuditIntegrityViolation, f.sink.events[0].Action)
	assert.Equal(t, entity.SeverityCritical, f.sink.events[0].Severity)
}

func TestCheckout_DiferenciaDentroDeToleranciaSeAcepta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "10")
	c, err := f.carts.AddItem(ctx, "s1", "u1", "p1", dec("3"))
	require.NoError(t, err)
	c.Subtotal = dec("8.96")
	require.NoError(t, f.store.Repos().Carts.Save(ctx, c))

	order, err := f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("10")})

	require.NoError(t, err)
	assert.True(t, order.Subtotal.Equal(dec("8.97")), "se usa el subtotal recalculado")
}

func TestCheckout_StockInsuficienteEnRevalidacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "5")
	_, err := f.carts.AddItem(ctx, "s1", "u1", "p1", dec("4"))
	require.NoError(t, err)
	_, err = f.inv.Adjust(ctx, inventory.AdjustInput{ProductID: "p1", StoreID: "s1", ChangeType: entity.ChangeTypeOUT, Quantity: dec("2"), Reason: entity.ReasonDamage})
	require.NoError(t, err)

	_, err = f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("20")})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Available.Equal(dec("3")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad y concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckout_FalloEnSegundaLineaRevierteLaPrimera(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "10")
	f.stock(t, "p2", "10")
	f.stock(t, "p3", "10")
	for _, p := range []string{"p1", "p2", "p3"} {
		_, err := f.carts.AddItem(ctx, "s1", "u1", p, dec("2"))
		require.NoError(t, err)
	}

	// Otro proceso consume p2 entre la revalidación y la unidad atómica.
	f.runner.before = func() {
		_, _, err := f.ledger.RemoveStockFIFO(ctx, inventory.RemoveStockInput{ProductID: "p2", StoreID: "s1", Quantity: dec("9")})
		require.NoError(t, err)
	}

	_, err := f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("100")})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.available(t, "p1").Equal(dec("10")), "la línea 1 debe revertirse")
	assert.True(t, f.available(t, "p2").Equal(dec("1")))
	assert.True(t, f.available(t, "p3").Equal(dec("10")))
	assert.Empty(t, f.store.Orders())
	c, err := f.carts.GetOrCreate(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 3, "el carrito no se vacía")
	history, err := f.inv.GetHistory(ctx, "p1", "s1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "no quedan filas OUT de la línea revertida")
}

func TestCheckout_DobleCheckoutDelMismoCarrito(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "10")
	_, err := f.carts.AddItem(ctx, "s1", "u1", "p1", dec("1"))
	require.NoError(t, err)

	// El carrito se paga por otra vía justo antes de la unidad atómica.
	f.runner.before = func() {
		_, err := f.carts.Clear(ctx, "s1", "u1")
		require.NoError(t, err)
	}
	_, err = f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: "u1", Payments: cash("5")})

	assert.ErrorIs(t, err, domain.ErrCartEmpty)
	assert.True(t, f.available(t, "p1").Equal(dec("10")))
}

func TestCheckout_ConcurrentesSobreElMismoStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "p1", "5")
	_, err := f.carts.AddItem(ctx, "s1", "u1", "p1", dec("4"))
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "s1", "u2", "p1", dec("3"))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, results[i] = f.uc.Checkout(ctx, checkout.Input{StoreID: "s1", UserID: user, Payments: cash("20")})
		}(i, user)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.store.Orders(), 1)

	remaining := f.available(t, "p1")
	assert.True(t, remaining.Equal(dec("1")) || remaining.Equal(dec("2")), "remaining=%s", remaining)
	assert.False(t, remaining.IsNegative())
}
