package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
)

var _ ports.TxRunner = (*Store)(nil)

// Store almacenamiento en proceso con semántica transaccional: las escrituras de una
// transacción se aplican juntas en el commit y los bloqueos de GetForUpdate se liberan
// después del commit o rollback.
type Store struct {
	mu             sync.RWMutex
	records        map[string]*entity.InventoryRecord
	history        []*entity.InventoryTransaction
	seq            int64
	carts          map[string]*entity.Cart
	orders         map[string]*entity.Order
	purchaseOrders map[string]*entity.PurchaseOrder
	products       map[string]*entity.Product
	audit          []entity.AuditEvent

	lockMu sync.Mutex
	locks  map[string]chan struct{}
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		records:        make(map[string]*entity.InventoryRecord),
		carts:          make(map[string]*entity.Cart),
		orders:         make(map[string]*entity.Order),
		purchaseOrders: make(map[string]*entity.PurchaseOrder),
		products:       make(map[string]*entity.Product),
		locks:          make(map[string]chan struct{}),
	}
}

func key(parts ...string) string { return strings.Join(parts, "\x00") }

func (s *Store) lockChan(k string) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	ch, ok := s.locks[k]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[k] = ch
	}
	return ch
}

// Run ejecuta fn con repositorios atados a una transacción nueva. Commit si fn devuelve nil
// y ctx sigue vigente; en otro caso se descartan las escrituras.
func (s *Store) Run(ctx context.Context, fn func(repos ports.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	t := newTxn(s)
	defer t.release()

	if err := fn(t.repos()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	t.commit()
	return nil
}

// Repos devuelve repositorios en modo autocommit (cada escritura se aplica al instante).
func (s *Store) Repos() ports.TxRepos {
	return ports.TxRepos{
		Records:        &recordRepo{s: s},
		Transactions:   &transactionRepo{s: s},
		Carts:          &cartRepo{s: s},
		Orders:         &orderRepo{s: s},
		PurchaseOrders: &purchaseOrderRepo{s: s},
	}
}

// Products catálogo en memoria.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Audit almacén de auditoría en memoria.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// txn escrituras pendientes y bloqueos tomados por una transacción.
type txn struct {
	s              *Store
	held           map[string]chan struct{}
	records        map[string]*entity.InventoryRecord
	history        []*entity.InventoryTransaction
	carts          map[string]*entity.Cart
	orders         map[string]*entity.Order
	purchaseOrders map[string]*entity.PurchaseOrder
}

func newTxn(s *Store) *txn {
	return &txn{
		s:              s,
		held:           make(map[string]chan struct{}),
		records:        make(map[string]*entity.InventoryRecord),
		carts:          make(map[string]*entity.Cart),
		orders:         make(map[string]*entity.Order),
		purchaseOrders: make(map[string]*entity.PurchaseOrder),
	}
}

func (t *txn) repos() ports.TxRepos {
	return ports.TxRepos{
		Records:        &recordRepo{s: t.s, t: t},
		Transactions:   &transactionRepo{s: t.s, t: t},
		Carts:          &cartRepo{s: t.s, t: t},
		Orders:         &orderRepo{s: t.s, t: t},
		PurchaseOrders: &purchaseOrderRepo{s: t.s, t: t},
	}
}

// lock toma el bloqueo de la clave; es reentrante dentro de la misma transacción.
func (t *txn) lock(ctx context.Context, k string) error {
	if _, ok := t.held[k]; ok {
		return nil
	}
	ch := t.s.lockChan(k)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("lock %q: %w", strings.ReplaceAll(k, "\x00", "/"), ctx.Err())
	}
	t.held[k] = ch
	return nil
}

func (t *txn) release() {
	for k, ch := range t.held {
		<-ch
		delete(t.held, k)
	}
}

func (t *txn) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range t.records {
		s.records[k] = rec
	}
	for _, row := range t.history {
		s.seq++
		row.Seq = s.seq
		cp := *row
		s.history = append(s.history, &cp)
	}
	for k, c := range t.carts {
		s.carts[k] = c
	}
	for id, o := range t.orders {
		s.orders[id] = o
	}
	for id, po := range t.purchaseOrders {
		s.purchaseOrders[id] = po
	}
}
