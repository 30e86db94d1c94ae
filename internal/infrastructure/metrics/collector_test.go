package metrics_test

import (
	"testing"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RegistraMovimientosYCheckouts(t *testing.T) {
	c := metrics.NewCollector()

	c.StockMovement("OUT", "SALE", decimal.NewFromInt(3))
	c.StockMovement("OUT", "SALE", decimal.NewFromInt(2))
	c.CheckoutCompleted("s1", decimal.RequireFromString("8.97"), 40*time.Millisecond)
	c.CheckoutFailed("validate_stock", "conflict")
	c.IntegrityViolation("subtotal del carrito")

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["pos_stock_movements_total"])
	assert.True(t, names["pos_checkout_duration_seconds"])
	assert.True(t, names["go_goroutines"])

	n, err := testutil.GatherAndCount(c.Registry(), "pos_stock_movements_total", "pos_checkout_failures_total", "pos_integrity_violations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var units float64
	for _, f := range families {
		if f.GetName() == "pos_stock_units_total" {
			units = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.InDelta(t, 5, units, 1e-9)
}

func TestCollector_MetricasHTTP(t *testing.T) {
	c := metrics.NewCollector()

	c.HTTPRequests.WithLabelValues("POST", "/api/stores/:storeId/checkout", "201").Inc()
	c.HTTPRequests.WithLabelValues("POST", "/api/stores/:storeId/checkout", "409").Inc()

	assert.Equal(t, 2, testutil.CollectAndCount(c.HTTPRequests))
	assert.InDelta(t, 1, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/api/stores/:storeId/checkout", "409")), 1e-9)
}
