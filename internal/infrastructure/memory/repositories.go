package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
)

var (
	_ repository.InventoryRecordRepository      = (*recordRepo)(nil)
	_ repository.InventoryTransactionRepository = (*transactionRepo)(nil)
	_ repository.CartRepository                 = (*cartRepo)(nil)
	_ repository.OrderRepository                = (*orderRepo)(nil)
	_ repository.PurchaseOrderRepository        = (*purchaseOrderRepo)(nil)
	_ repository.ProductRepository              = (*ProductRepo)(nil)
	_ repository.AuditRepository                = (*AuditRepo)(nil)
)

// Todos los repositorios devuelven y guardan copias: nada de lo que recibe el caller
// comparte memoria con el almacén. t == nil significa autocommit.

// ──────────────────────────────────────────────────────────────────────────────
// Inventory records
// ──────────────────────────────────────────────────────────────────────────────

type recordRepo struct {
	s *Store
	t *txn
}

func (r *recordRepo) Get(_ context.Context, productID, storeID string) (*entity.InventoryRecord, error) {
	k := key(productID, storeID)
	if r.t != nil {
		if rec, ok := r.t.records[k]; ok {
			return rec.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.records[k].Clone(), nil
}

func (r *recordRepo) GetForUpdate(ctx context.Context, productID, storeID string) (*entity.InventoryRecord, error) {
	if r.t != nil {
		if err := r.t.lock(ctx, key("record", productID, storeID)); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, productID, storeID)
}

func (r *recordRepo) Save(_ context.Context, rec *entity.InventoryRecord) error {
	if rec == nil || rec.ProductID == "" || rec.StoreID == "" {
		return domain.ErrInvalidInput
	}
	k := key(rec.ProductID, rec.StoreID)
	if r.t != nil {
		r.t.records[k] = rec.Clone()
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.records[k] = rec.Clone()
	return nil
}

func (r *recordRepo) List(_ context.Context, storeID string) ([]*entity.InventoryRecord, error) {
	r.s.mu.RLock()
	merged := make(map[string]*entity.InventoryRecord, len(r.s.records))
	for k, rec := range r.s.records {
		merged[k] = rec
	}
	r.s.mu.RUnlock()
	if r.t != nil {
		for k, rec := range r.t.records {
			merged[k] = rec
		}
	}

	out := make([]*entity.InventoryRecord, 0, len(merged))
	for _, rec := range merged {
		if storeID != "" && rec.StoreID != storeID {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventory transactions
// ──────────────────────────────────────────────────────────────────────────────

type transactionRepo struct {
	s *Store
	t *txn
}

func (r *transactionRepo) Create(_ context.Context, row *entity.InventoryTransaction) error {
	if row == nil || row.ID == "" {
		return domain.ErrInvalidInput
	}
	if r.t != nil {
		r.t.history = append(r.t.history, row)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	row.Seq = r.s.seq
	cp := *row
	r.s.history = append(r.s.history, &cp)
	return nil
}

func (r *transactionRepo) ListByProduct(_ context.Context, productID, storeID string) ([]*entity.InventoryTransaction, error) {
	match := func(row *entity.InventoryTransaction) bool {
		return row.ProductID == productID && (storeID == "" || row.StoreID == storeID)
	}

	// Orden de inserción: confirmadas por Seq y luego las pendientes de la transacción.
	var chrono []*entity.InventoryTransaction
	r.s.mu.RLock()
	for _, row := range r.s.history {
		if match(row) {
			cp := *row
			chrono = append(chrono, &cp)
		}
	}
	r.s.mu.RUnlock()
	if r.t != nil {
		for _, row := range r.t.history {
			if match(row) {
				cp := *row
				chrono = append(chrono, &cp)
			}
		}
	}

	out := make([]*entity.InventoryTransaction, 0, len(chrono))
	for i := len(chrono) - 1; i >= 0; i-- {
		out = append(out, chrono[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Carts
// ──────────────────────────────────────────────────────────────────────────────

type cartRepo struct {
	s *Store
	t *txn
}

func (r *cartRepo) Get(_ context.Context, storeID, userID string) (*entity.Cart, error) {
	k := key(storeID, userID)
	if r.t != nil {
		if c, ok := r.t.carts[k]; ok {
			return c.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.carts[k].Clone(), nil
}

func (r *cartRepo) GetForUpdate(ctx context.Context, storeID, userID string) (*entity.Cart, error) {
	if r.t != nil {
		if err := r.t.lock(ctx, key("cart", storeID, userID)); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, storeID, userID)
}

func (r *cartRepo) Save(_ context.Context, c *entity.Cart) error {
	if c == nil || c.StoreID == "" || c.UserID == "" {
		return domain.ErrInvalidInput
	}
	k := key(c.StoreID, c.UserID)
	if r.t != nil {
		r.t.carts[k] = c.Clone()
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.carts[k] = c.Clone()
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Orders
// ──────────────────────────────────────────────────────────────────────────────

type orderRepo struct {
	s *Store
	t *txn
}

func (r *orderRepo) Create(_ context.Context, o *entity.Order) error {
	if o == nil || o.ID == "" {
		return domain.ErrInvalidInput
	}
	r.s.mu.RLock()
	_, exists := r.s.orders[o.ID]
	r.s.mu.RUnlock()
	if r.t != nil {
		if _, staged := r.t.orders[o.ID]; staged {
			exists = true
		}
	}
	if exists {
		return fmt.Errorf("create order %s: duplicado", o.ID)
	}
	if r.t != nil {
		r.t.orders[o.ID] = o.Clone()
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[o.ID] = o.Clone()
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	if r.t != nil {
		if o, ok := r.t.orders[id]; ok {
			return o.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.orders[id].Clone(), nil
}

// Orders devuelve todas las órdenes confirmadas (tests y diagnóstico).
func (s *Store) Orders() []*entity.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Purchase orders
// ──────────────────────────────────────────────────────────────────────────────

type purchaseOrderRepo struct {
	s *Store
	t *txn
}

func (r *purchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	if po == nil || po.ID == "" {
		return domain.ErrInvalidInput
	}
	if existing, _ := r.GetByID(ctx, po.ID); existing != nil {
		return fmt.Errorf("create purchase order %s: duplicado", po.ID)
	}
	r.put(po)
	return nil
}

func (r *purchaseOrderRepo) put(po *entity.PurchaseOrder) {
	if r.t != nil {
		r.t.purchaseOrders[po.ID] = po.Clone()
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.purchaseOrders[po.ID] = po.Clone()
}

func (r *purchaseOrderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	if r.t != nil {
		if po, ok := r.t.purchaseOrders[id]; ok {
			return po.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.purchaseOrders[id].Clone(), nil
}

func (r *purchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if r.t != nil {
		if err := r.t.lock(ctx, key("po", id)); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *purchaseOrderRepo) UpdateStatus(ctx context.Context, id, status string) error {
	po, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if po == nil {
		return domain.ErrPONotFound
	}
	po.Status = status
	r.put(po)
	return nil
}

func (r *purchaseOrderRepo) List(_ context.Context, filter repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	merged := make(map[string]*entity.PurchaseOrder, len(r.s.purchaseOrders))
	for id, po := range r.s.purchaseOrders {
		merged[id] = po
	}
	r.s.mu.RUnlock()
	if r.t != nil {
		for id, po := range r.t.purchaseOrders {
			merged[id] = po
		}
	}

	out := make([]*entity.PurchaseOrder, 0, len(merged))
	for _, po := range merged {
		if filter.StoreID != "" && po.StoreID != filter.StoreID {
			continue
		}
		if filter.Status != "" && po.Status != filter.Status {
			continue
		}
		out = append(out, po.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Products y auditoría
// ──────────────────────────────────────────────────────────────────────────────

// ProductRepo catálogo en memoria.
type ProductRepo struct {
	s *Store
}

// Put agrega o reemplaza un producto.
func (r *ProductRepo) Put(p *entity.Product) {
	cp := *p
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = &cp
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// AuditRepo eventos de auditoría en memoria.
type AuditRepo struct {
	s *Store
}

func (r *AuditRepo) Create(_ context.Context, ev *entity.AuditEvent) error {
	if ev == nil {
		return domain.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *ev)
	return nil
}

// Events devuelve una copia de los eventos registrados.
func (r *AuditRepo) Events() []entity.AuditEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]entity.AuditEvent(nil), r.s.audit...)
}
