package cart_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/cart"
	"github.com/jhoicas/perecederos-pos/internal/application/inventory"
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

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store  *memory.Store
	ledger *inventory.Ledger
	uc     *cart.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := fixedClock{t0}
	ids := &seqIDs{}
	store.Products().Put(&entity.Product{ID: "p1", SKU: "LECHE-1L", Name: "Leche 1L", Price: dec("2.99")})
	store.Products().Put(&entity.Product{ID: "p2", SKU: "PAN", Name: "Pan", Price: dec("1.50")})
	ledger := inventory.NewLedger(store, clock, ids, entity.DefaultLowStockThreshold, nil)
	_, _, err := ledger.AddStock(context.Background(), inventory.AddStockInput{ProductID: "p1", StoreID: "s1", BatchNumber: "L1", Quantity: dec("5")})
	require.NoError(t, err)
	_, _, err = ledger.AddStock(context.Background(), inventory.AddStockInput{ProductID: "p2", StoreID: "s1", BatchNumber: "L1", Quantity: dec("100")})
	require.NoError(t, err)
	return &fixture{
		store:  store,
		ledger: ledger,
		uc:     cart.NewUseCase(store, store.Products(), clock, ids, logger.Nop()),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestGetOrCreate_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c1, err := f.uc.GetOrCreate(ctx, "s1", "u1")
	require.NoError(t, err)
	c2, err := f.uc.GetOrCreate(ctx, "s1", "u1")
	require.NoError(t, err)
	other, err := f.uc.GetOrCreate(ctx, "s1", "u2")
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)
	assert.NotEqual(t, c1.ID, other.ID)
	assert.Empty(t, c1.Items)
	assert.True(t, c1.Subtotal.IsZero())
}

func TestAddItem_CalculaLineaYSubtotal(t *testing.T) {
	f := newFixture(t)

	c, err := f.uc.AddItem(context.Background(), "s1", "u1", "p1", dec("3"))

	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "LECHE-1L", c.Items[0].SKU)
	assert.True(t, c.Items[0].UnitPrice.Equal(dec("2.99")))
	assert.True(t, c.Items[0].LineTotal.Equal(dec("8.97")))
	assert.True(t, c.Subtotal.Equal(dec("8.97")))
}

func TestAddItem_FusionaYValidaCantidadCombinada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.AddItem(ctx, "s1", "u1", "p1", dec("3"))
	require.NoError(t, err)

	// 3 + 3 > 5 aunque 3 sola cabría.
	_, err = f.uc.AddItem(ctx, "s1", "u1", "p1", dec("3"))
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Requested.Equal(dec("6")))
	assert.True(t, stockErr.Available.Equal(dec("5")))

	c, err := f.uc.AddItem(ctx, "s1", "u1", "p1", dec("2"))
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, c.Items[0].Quantity.Equal(dec("5")))
	assert.True(t, c.Subtotal.Equal(dec("14.95")))
}

func TestAddItem_PrecioSeCongelaAlAgregar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.AddItem(ctx, "s1", "u1", "p2", dec("2"))
	require.NoError(t, err)

	f.store.Products().Put(&entity.Product{ID: "p2", SKU: "PAN", Name: "Pan", Price: dec("9.99")})
	c, err := f.uc.GetOrCreate(ctx, "s1", "u1")
	require.NoError(t, err)

	assert.True(t, c.Items[0].UnitPrice.Equal(dec("1.50")))
	assert.True(t, c.Subtotal.Equal(dec("3.00")))
}

func TestAddItem_Errores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.AddItem(ctx, "s1", "u1", "p1", dec("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.uc.AddItem(ctx, "s1", "u1", "nope", dec("1"))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.uc.AddItem(ctx, "s2", "u1", "p1", dec("1"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "sin inventario en la tienda")

	_, err = f.uc.AddItem(ctx, "", "u1", "p1", dec("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.UpdateItemQuantity(ctx, "s1", "u1", "p1", dec("2"))
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = f.uc.AddItem(ctx, "s1", "u1", "p1", dec("1"))
	require.NoError(t, err)

	_, err = f.uc.UpdateItemQuantity(ctx, "s1", "u1", "p2", dec("2"))
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.uc.UpdateItemQuantity(ctx, "s1", "u1", "p1", dec("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.uc.UpdateItemQuantity(ctx, "s1", "u1", "p1", dec("6"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	c, err := f.uc.UpdateItemQuantity(ctx, "s1", "u1", "p1", dec("4"))
	require.NoError(t, err)
	assert.True(t, c.Items[0].Quantity.Equal(dec("4")))
	assert.True(t, c.Subtotal.Equal(dec("11.96")))
}

func TestRemoveItemYClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.RemoveItem(ctx, "s1", "u1", "p1")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = f.uc.AddItem(ctx, "s1", "u1", "p1", dec("1"))
	require.NoError(t, err)
	_, err = f.uc.AddItem(ctx, "s1", "u1", "p2", dec("2"))
	require.NoError(t, err)

	_, err = f.uc.RemoveItem(ctx, "s1", "u1", "zzz")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	c, err := f.uc.RemoveItem(ctx, "s1", "u1", "p1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, c.Subtotal.Equal(dec("3")))

	c, err = f.uc.Clear(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Subtotal.IsZero())
}
