package metrics

import (
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
)

var _ ports.Metrics = (*Collector)(nil)

// Collector métricas de negocio en un registro propio, expuesto por /metrics.
type Collector struct {
	registry *prometheus.Registry

	stockMovements   *prometheus.CounterVec
	stockUnits       *prometheus.CounterVec
	checkouts        *prometheus.CounterVec
	checkoutRevenue  *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	checkoutFailures *prometheus.CounterVec
	integrity        *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// NewCollector registra todas las métricas, más las del runtime de Go y del proceso.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_stock_movements_total",
			Help: "Filas de historial escritas por tipo y motivo.",
		}, []string{"change_type", "reason"}),
		stockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_stock_units_total",
			Help: "Unidades movidas por tipo y motivo.",
		}, []string{"change_type", "reason"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_checkouts_total",
			Help: "Checkouts confirmados por tienda.",
		}, []string{"store_id"}),
		checkoutRevenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_checkout_revenue_total",
			Help: "Suma de totales de órdenes confirmadas por tienda.",
		}, []string{"store_id"}),
		checkoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pos_checkout_duration_seconds",
			Help:    "Duración de checkouts confirmados.",
			Buckets: prometheus.DefBuckets,
		}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_checkout_failures_total",
			Help: "Checkouts rechazados por etapa y clase de error.",
		}, []string{"stage", "kind"}),
		integrity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_integrity_violations_total",
			Help: "Violaciones de integridad detectadas.",
		}, []string{"check"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_http_requests_total",
			Help: "Requests HTTP por método, ruta y status.",
		}, []string{"method", "route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pos_http_request_duration_seconds",
			Help:    "Latencia de requests HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.stockMovements, c.stockUnits,
		c.checkouts, c.checkoutRevenue, c.checkoutDuration, c.checkoutFailures,
		c.integrity,
		c.HTTPRequests, c.HTTPLatency,
	)
	return c
}

// Registry para el handler de /metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) StockMovement(changeType, reason string, quantity decimal.Decimal) {
	c.stockMovements.WithLabelValues(changeType, reason).Inc()
	c.stockUnits.WithLabelValues(changeType, reason).Add(quantity.InexactFloat64())
}

func (c *Collector) CheckoutCompleted(storeID string, total decimal.Decimal, elapsed time.Duration) {
	c.checkouts.WithLabelValues(storeID).Inc()
	c.checkoutRevenue.WithLabelValues(storeID).Add(total.InexactFloat64())
	c.checkoutDuration.Observe(elapsed.Seconds())
}

func (c *Collector) CheckoutFailed(stage, kind string) {
	c.checkoutFailures.WithLabelValues(stage, kind).Inc()
}

func (c *Collector) IntegrityViolation(check string) {
	c.integrity.WithLabelValues(check).Inc()
}
