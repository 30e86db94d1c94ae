package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Movement efecto de una operación del ledger sobre un lote concreto.
// Previous/New son el total agregado del registro antes y después de ese lote.
type Movement struct {
	BatchNumber string
	Quantity    decimal.Decimal
	Previous    decimal.Decimal
	New         decimal.Decimal
}

// ConsumptionOrder devuelve los índices de batches en orden de consumo FIFO por vencimiento:
// vencimiento ascendente, lotes sin vencimiento al final, empates por fecha de recepción.
func ConsumptionOrder(batches []entity.Batch) []int {
	idx := make([]int, len(batches))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return consumesBefore(batches[idx[a]], batches[idx[b]])
	})
	return idx
}

func consumesBefore(a, b entity.Batch) bool {
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate != nil:
		if !a.ExpiryDate.Equal(*b.ExpiryDate) {
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	case a.ExpiryDate != nil:
		return true
	case b.ExpiryDate != nil:
		return false
	}
	return a.ReceivedDate.Before(b.ReceivedDate)
}

// AddToBatch suma quantity al lote batchNumber, creándolo si no existe (ReceivedDate = now).
// Es la única forma de aumentar stock.
func AddToBatch(rec *entity.InventoryRecord, batchNumber string, quantity decimal.Decimal, expiry *time.Time, now time.Time) (Movement, error) {
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return Movement{}, domain.ErrBatchNumberRequired
	}
	if !quantity.GreaterThan(decimal.Zero) {
		return Movement{}, domain.ErrInvalidQuantity
	}
	if err := checkBatches(rec); err != nil {
		return Movement{}, err
	}

	before := rec.TotalQuantity()
	if i := rec.FindBatch(batchNumber); i >= 0 {
		rec.Batches[i].Quantity = rec.Batches[i].Quantity.Add(quantity)
	} else {
		var exp *time.Time
		if expiry != nil {
			e := *expiry
			exp = &e
		}
		rec.Batches = append(rec.Batches, entity.Batch{
			BatchNumber:  batchNumber,
			Quantity:     quantity,
			ExpiryDate:   exp,
			ReceivedDate: now,
		})
	}
	rec.UpdatedAt = now

	after := rec.TotalQuantity()
	if !after.Equal(before.Add(quantity)) {
		return Movement{}, domain.NewIntegrityError(domain.ErrLedgerIntegrity, "total tras entrada", before.Add(quantity), after)
	}
	return Movement{BatchNumber: batchNumber, Quantity: quantity, Previous: before, New: after}, nil
}

// RemoveFIFO descuenta quantity recorriendo los lotes en orden de consumo.
// Devuelve un Movement por lote tocado. Si no alcanza el stock el registro queda intacto.
// Los lotes que quedan en cero se eliminan.
func RemoveFIFO(rec *entity.InventoryRecord, quantity decimal.Decimal, now time.Time) ([]Movement, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	if err := checkBatches(rec); err != nil {
		return nil, err
	}

	before := rec.TotalQuantity()
	if before.LessThan(quantity) {
		return nil, domain.NewInsufficientStock(rec.ProductID, rec.StoreID, before, quantity)
	}

	// Se trabaja sobre una copia y solo se asigna al final.
	work := rec.Clone().Batches
	remaining := quantity
	running := before
	movements := make([]Movement, 0, 2)
	for _, i := range ConsumptionOrder(work) {
		if remaining.IsZero() {
			break
		}
		b := &work[i]
		if !b.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		take := decimal.Min(b.Quantity, remaining)
		b.Quantity = b.Quantity.Sub(take)
		movements = append(movements, Movement{
			BatchNumber: b.BatchNumber,
			Quantity:    take,
			Previous:    running,
			New:         running.Sub(take),
		})
		running = running.Sub(take)
		remaining = remaining.Sub(take)
	}
	if remaining.GreaterThan(decimal.Zero) {
		return nil, domain.NewInsufficientStock(rec.ProductID, rec.StoreID, before, quantity)
	}

	kept := work[:0]
	for _, b := range work {
		if b.Quantity.GreaterThan(decimal.Zero) {
			kept = append(kept, b)
		}
	}
	rec.Batches = kept
	rec.UpdatedAt = now

	after := rec.TotalQuantity()
	if !after.Equal(before.Sub(quantity)) || !after.Equal(running) {
		return nil, domain.NewIntegrityError(domain.ErrLedgerIntegrity, "total tras salida FIFO", before.Sub(quantity), after)
	}
	return movements, nil
}

// checkBatches rechaza registros con lotes negativos o números de lote duplicados.
func checkBatches(rec *entity.InventoryRecord) error {
	seen := make(map[string]struct{}, len(rec.Batches))
	for _, b := range rec.Batches {
		if b.Quantity.LessThan(decimal.Zero) {
			return domain.NewIntegrityError(domain.ErrLedgerIntegrity, "lote "+b.BatchNumber+" negativo", decimal.Zero, b.Quantity)
		}
		if _, dup := seen[b.BatchNumber]; dup {
			return domain.NewIntegrityError(domain.ErrLedgerIntegrity, "lote "+b.BatchNumber+" duplicado", decimal.Zero, decimal.Zero)
		}
		seen[b.BatchNumber] = struct{}{}
	}
	return nil
}

// Replay reconstruye el total a partir de cero aplicando las filas en orden cronológico.
// Devuelve error de integridad si alguna fila no encadena con la anterior.
func Replay(rows []*entity.InventoryTransaction) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range rows {
		if !t.PreviousQuantity.Equal(total) {
			return total, domain.NewIntegrityError(domain.ErrLedgerIntegrity, "fila "+t.ID+" no encadena", total, t.PreviousQuantity)
		}
		total = total.Add(t.Delta())
		if !t.NewQuantity.Equal(total) {
			return total, domain.NewIntegrityError(domain.ErrLedgerIntegrity, "fila "+t.ID+" con total inconsistente", total, t.NewQuantity)
		}
	}
	return total, nil
}
