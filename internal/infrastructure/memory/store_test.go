package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
	"github.com/jhoicas/perecederos-pos/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func record(qty int64) *entity.InventoryRecord {
	rec := entity.NewInventoryRecord("rec-1", "p1", "s1", entity.DefaultLowStockThreshold, t0)
	rec.Batches = []entity.Batch{{BatchNumber: "L1", Quantity: decimal.NewFromInt(qty), ReceivedDate: t0}}
	return rec
}

func TestRun_CommitAplicaTodasLasEscrituras(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	row := &entity.InventoryTransaction{ID: "t1", ProductID: "p1", StoreID: "s1", ChangeType: entity.ChangeTypeIN, Quantity: decimal.NewFromInt(5), CreatedAt: t0}
	err := s.Run(ctx, func(r ports.TxRepos) error {
		require.NoError(t, r.Records.Save(ctx, record(5)))
		require.NoError(t, r.Transactions.Create(ctx, row))

		// Dentro de la transacción se leen las escrituras propias.
		got, err := r.Records.Get(ctx, "p1", "s1")
		require.NoError(t, err)
		assert.True(t, got.TotalQuantity().Equal(decimal.NewFromInt(5)))
		return nil
	})
	require.NoError(t, err)

	got, err := s.Repos().Records.Get(ctx, "p1", "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TotalQuantity().Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(1), row.Seq, "el commit asigna Seq")
}

func TestRun_ErrorDescartaEscrituras(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(r ports.TxRepos) error {
		require.NoError(t, r.Records.Save(ctx, record(5)))
		require.NoError(t, r.Carts.Save(ctx, &entity.Cart{ID: "c", StoreID: "s1", UserID: "u1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, _ := s.Repos().Records.Get(ctx, "p1", "s1")
	assert.Nil(t, rec)
	cart, _ := s.Repos().Carts.Get(ctx, "s1", "u1")
	assert.Nil(t, cart)
}

func TestRun_ContextoCanceladoNoConfirma(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, func(r ports.TxRepos) error {
		require.NoError(t, r.Records.Save(ctx, record(5)))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	rec, _ := s.Repos().Records.Get(context.Background(), "p1", "s1")
	assert.Nil(t, rec)
}

func TestGetForUpdate_SerializaEscritores(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.Repos().Records.Save(ctx, record(0)))

	// Cada escritor lee, espera y escribe total+1: sin bloqueo se perderían incrementos.
	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Run(ctx, func(r ports.TxRepos) error {
				rec, err := r.Records.GetForUpdate(ctx, "p1", "s1")
				if err != nil {
					return err
				}
				time.Sleep(time.Millisecond)
				rec.Batches[0].Quantity = rec.Batches[0].Quantity.Add(decimal.NewFromInt(1))
				return r.Records.Save(ctx, rec)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, _ := s.Repos().Records.Get(ctx, "p1", "s1")
	assert.True(t, rec.TotalQuantity().Equal(decimal.NewFromInt(writers)), "total=%s", rec.TotalQuantity())
}

func TestGetForUpdate_ReentranteYCancelable(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, func(r ports.TxRepos) error {
			_, err := r.Records.GetForUpdate(ctx, "p1", "s1")
			assert.NoError(t, err)
			_, err = r.Records.GetForUpdate(ctx, "p1", "s1")
			assert.NoError(t, err, "el mismo tx puede volver a pedir el bloqueo")
			close(holding)
			<-done
			return nil
		})
	}()
	<-holding

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := s.Run(waitCtx, func(r ports.TxRepos) error {
		_, err := r.Records.GetForUpdate(waitCtx, "p1", "s1")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(done)
}

func TestListByProduct_MasRecientePrimero(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	repo := s.Repos().Transactions

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &entity.InventoryTransaction{
			ID: id, ProductID: "p1", StoreID: "s1", CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Misma marca de tiempo que "c": desempata el orden de inserción.
	require.NoError(t, repo.Create(ctx, &entity.InventoryTransaction{ID: "d", ProductID: "p1", StoreID: "s1", CreatedAt: t0.Add(2 * time.Minute)}))
	require.NoError(t, repo.Create(ctx, &entity.InventoryTransaction{ID: "x", ProductID: "p1", StoreID: "s2", CreatedAt: t0}))

	rows, err := repo.ListByProduct(ctx, "p1", "s1")
	require.NoError(t, err)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids)

	all, err := repo.ListByProduct(ctx, "p1", "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestPurchaseOrders_ListFiltraYOrdena(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	repo := s.Repos().PurchaseOrders

	require.NoError(t, repo.Create(ctx, &entity.PurchaseOrder{ID: "po1", StoreID: "s1", Status: entity.POStatusPending, CreatedAt: t0}))
	require.NoError(t, repo.Create(ctx, &entity.PurchaseOrder{ID: "po2", StoreID: "s1", Status: entity.POStatusPending, CreatedAt: t0.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &entity.PurchaseOrder{ID: "po3", StoreID: "s2", Status: entity.POStatusPending, CreatedAt: t0}))
	assert.Error(t, repo.Create(ctx, &entity.PurchaseOrder{ID: "po1", StoreID: "s1"}))
	require.NoError(t, repo.UpdateStatus(ctx, "po1", entity.POStatusCancelled))

	list, err := repo.List(ctx, repository.PurchaseOrderFilter{StoreID: "s1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "po2", list[0].ID)

	pending, err := repo.List(ctx, repository.PurchaseOrderFilter{StoreID: "s1", Status: entity.POStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "po2", pending[0].ID)
}

func TestRepos_DevuelvenCopias(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.Repos().Records.Save(ctx, record(5)))

	rec, _ := s.Repos().Records.Get(ctx, "p1", "s1")
	rec.Batches[0].Quantity = decimal.NewFromInt(999)

	again, _ := s.Repos().Records.Get(ctx, "p1", "s1")
	assert.True(t, again.TotalQuantity().Equal(decimal.NewFromInt(5)))
}
