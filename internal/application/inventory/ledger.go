package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/perecederos-pos/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// AddStockInput entrada de un ingreso a lote.
type AddStockInput struct {
	ProductID   string
	StoreID     string
	BatchNumber string
	Quantity    decimal.Decimal
	ExpiryDate  *time.Time
	Reason      string // vacío = RESTOCK
	Reference   string
}

// RemoveStockInput entrada de una salida FIFO.
type RemoveStockInput struct {
	ProductID string
	StoreID   string
	Quantity  decimal.Decimal
	Reason    string // vacío = SALE
	Reference string
}

// Ledger es el único camino que modifica cantidades de lotes. Cada operación persiste el
// registro y las filas de historial con los repositorios de la transacción recibida,
// de modo que ambos se confirman o se descartan juntos.
type Ledger struct {
	txRunner  ports.TxRunner
	clock     ports.Clock
	ids       ports.IDGenerator
	threshold decimal.Decimal
	metrics   ports.Metrics
}

// NewLedger construye el ledger. threshold es el umbral de stock bajo de los registros nuevos.
func NewLedger(txRunner ports.TxRunner, clock ports.Clock, ids ports.IDGenerator, threshold decimal.Decimal, metrics ports.Metrics) *Ledger {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Ledger{txRunner: txRunner, clock: clock, ids: ids, threshold: threshold, metrics: metrics}
}

// AddStockInTx bloquea el registro (creándolo si no existe), suma al lote y escribe una fila IN.
func (l *Ledger) AddStockInTx(ctx context.Context, repos ports.TxRepos, in AddStockInput) (*entity.InventoryRecord, *entity.InventoryTransaction, error) {
	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.StoreID) == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	reason := in.Reason
	if reason == "" {
		reason = entity.ReasonRestock
	}
	if !entity.ValidReason(reason) {
		return nil, nil, domain.ErrInvalidReason
	}

	now := l.clock.Now()
	rec, err := repos.Records.GetForUpdate(ctx, in.ProductID, in.StoreID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		rec = entity.NewInventoryRecord(l.ids.NewID(), in.ProductID, in.StoreID, l.threshold, now)
	}

	mv, err := domaininv.AddToBatch(rec, in.BatchNumber, in.Quantity, in.ExpiryDate, now)
	if err != nil {
		return nil, nil, err
	}
	if err := repos.Records.Save(ctx, rec); err != nil {
		return nil, nil, err
	}

	row := &entity.InventoryTransaction{
		ID:               l.ids.NewID(),
		ProductID:        in.ProductID,
		StoreID:          in.StoreID,
		ChangeType:       entity.ChangeTypeIN,
		Quantity:         mv.Quantity,
		Reason:           reason,
		BatchNumber:      mv.BatchNumber,
		PreviousQuantity: mv.Previous,
		NewQuantity:      mv.New,
		Reference:        in.Reference,
		CreatedAt:        now,
	}
	if err := repos.Transactions.Create(ctx, row); err != nil {
		return nil, nil, err
	}
	l.metrics.StockMovement(entity.ChangeTypeIN, reason, mv.Quantity)
	return rec, row, nil
}

// RemoveStockFIFOInTx bloquea el registro y descuenta por vencimiento más próximo,
// escribiendo una fila OUT por lote tocado. Sin registro equivale a stock cero.
func (l *Ledger) RemoveStockFIFOInTx(ctx context.Context, repos ports.TxRepos, in RemoveStockInput) (*entity.InventoryRecord, []*entity.InventoryTransaction, error) {
	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.StoreID) == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, nil, domain.ErrInvalidQuantity
	}
	reason := in.Reason
	if reason == "" {
		reason = entity.ReasonSale
	}
	if !entity.ValidReason(reason) {
		return nil, nil, domain.ErrInvalidReason
	}

	rec, err := repos.Records.GetForUpdate(ctx, in.ProductID, in.StoreID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, domain.NewInsufficientStock(in.ProductID, in.StoreID, decimal.Zero, in.Quantity)
	}

	now := l.clock.Now()
	movements, err := domaininv.RemoveFIFO(rec, in.Quantity, now)
	if err != nil {
		return nil, nil, err
	}
	if err := repos.Records.Save(ctx, rec); err != nil {
		return nil, nil, err
	}

	rows := make([]*entity.InventoryTransaction, 0, len(movements))
	for _, mv := range movements {
		row := &entity.InventoryTransaction{
			ID:               l.ids.NewID(),
			ProductID:        in.ProductID,
			StoreID:          in.StoreID,
			ChangeType:       entity.ChangeTypeOUT,
			Quantity:         mv.Quantity,
			Reason:           reason,
			BatchNumber:      mv.BatchNumber,
			PreviousQuantity: mv.Previous,
			NewQuantity:      mv.New,
			Reference:        in.Reference,
			CreatedAt:        now,
		}
		if err := repos.Transactions.Create(ctx, row); err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	l.metrics.StockMovement(entity.ChangeTypeOUT, reason, in.Quantity)
	return rec, rows, nil
}

// AddStock ejecuta AddStockInTx en su propia transacción.
func (l *Ledger) AddStock(ctx context.Context, in AddStockInput) (*entity.InventoryRecord, *entity.InventoryTransaction, error) {
	var (
		rec *entity.InventoryRecord
		row *entity.InventoryTransaction
	)
	err := l.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		rec, row, err = l.AddStockInTx(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, row, nil
}

// RemoveStockFIFO ejecuta RemoveStockFIFOInTx en su propia transacción.
func (l *Ledger) RemoveStockFIFO(ctx context.Context, in RemoveStockInput) (*entity.InventoryRecord, []*entity.InventoryTransaction, error) {
	var (
		rec  *entity.InventoryRecord
		rows []*entity.InventoryTransaction
	)
	err := l.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		rec, rows, err = l.RemoveStockFIFOInTx(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, rows, nil
}
