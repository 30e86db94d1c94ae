package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// idealStockFactor nivel objetivo de reposición respecto al umbral de stock bajo.
var idealStockFactor = decimal.NewFromFloat(1.5)

// LowStockItem registro bajo umbral con la cantidad sugerida para reponer.
type LowStockItem struct {
	Record            *entity.InventoryRecord
	Total             decimal.Decimal
	SuggestedOrderQty decimal.Decimal // umbral*1.5 - total
}

// ExpiringItem registro con los lotes que vencen dentro de la ventana.
// Batches contiene solo esos lotes, el más próximo primero.
type ExpiringItem struct {
	ProductID string
	StoreID   string
	Batches   []entity.Batch
}

// Alerts resumen de alertas de una tienda.
type Alerts struct {
	LowStock      []LowStockItem
	Expiring      []ExpiringItem
	LowStockCount int
	ExpiringCount int
}

// ListLowStock registros con 0 < total <= umbral, de menor a mayor total.
// storeID vacío considera todas las tiendas.
func (uc *UseCase) ListLowStock(ctx context.Context, storeID string) ([]LowStockItem, error) {
	records, err := uc.records.List(ctx, storeID)
	if err != nil {
		return nil, err
	}
	items := make([]LowStockItem, 0)
	for _, rec := range records {
		if !rec.IsLowStock() {
			continue
		}
		total := rec.TotalQuantity()
		suggested := rec.LowStockThreshold.Mul(idealStockFactor).Sub(total).Ceil()
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		items = append(items, LowStockItem{Record: rec, Total: total, SuggestedOrderQty: suggested})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Total.LessThan(items[j].Total)
	})
	return items, nil
}

// ListExpiring lotes con stock que vencen en [ahora, ahora+days]. Los ya vencidos no se incluyen.
func (uc *UseCase) ListExpiring(ctx context.Context, storeID string, days int) ([]ExpiringItem, error) {
	if days < 0 {
		days = 0
	}
	records, err := uc.records.List(ctx, storeID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	limit := now.Add(time.Duration(days) * 24 * time.Hour)

	items := make([]ExpiringItem, 0)
	for _, rec := range records {
		var batches []entity.Batch
		for _, b := range rec.Batches {
			if b.ExpiryDate == nil || !b.Quantity.GreaterThan(decimal.Zero) {
				continue
			}
			if b.ExpiryDate.Before(now) || b.ExpiryDate.After(limit) {
				continue
			}
			batches = append(batches, b)
		}
		if len(batches) == 0 {
			continue
		}
		sort.SliceStable(batches, func(i, j int) bool {
			return batches[i].ExpiryDate.Before(*batches[j].ExpiryDate)
		})
		items = append(items, ExpiringItem{ProductID: rec.ProductID, StoreID: rec.StoreID, Batches: batches})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Batches[0].ExpiryDate.Before(*items[j].Batches[0].ExpiryDate)
	})
	return items, nil
}

// GetAlerts combina stock bajo y próximos vencimientos.
func (uc *UseCase) GetAlerts(ctx context.Context, storeID string, days int) (*Alerts, error) {
	low, err := uc.ListLowStock(ctx, storeID)
	if err != nil {
		return nil, err
	}
	expiring, err := uc.ListExpiring(ctx, storeID, days)
	if err != nil {
		return nil, err
	}
	return &Alerts{
		LowStock:      low,
		Expiring:      expiring,
		LowStockCount: len(low),
		ExpiringCount: len(expiring),
	}, nil
}
