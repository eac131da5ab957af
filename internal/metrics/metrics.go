package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settlement outcomes used as the "outcome" label.
const (
	OutcomeSuccess           = "success"
	OutcomeInvalidRequest    = "invalid_request"
	OutcomeProductNotFound   = "product_not_found"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeStoreFailure      = "store_failure"
)

// Registry owns the service collectors. A nil *Registry discards observations.
type Registry struct {
	reg             *prometheus.Registry
	Settlements     *prometheus.CounterVec
	SettleLatency   prometheus.Histogram
	UnitsSold       prometheus.Counter
	ProductsCreated prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_settlements_total",
		Help: "Sale settlements by outcome.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_settle_duration_seconds",
		Help:    "Time spent settling a sale, including rollbacks.",
		Buckets: prometheus.DefBuckets,
	})
	unitsSold := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sales_units_sold_total",
		Help: "Units of stock consumed by committed sales.",
	})
	productsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sales_products_created_total",
		Help: "Products added to the catalog.",
	})

	r.MustRegister(settlements, latency, unitsSold, productsCreated)
	return &Registry{
		reg:             r,
		Settlements:     settlements,
		SettleLatency:   latency,
		UnitsSold:       unitsSold,
		ProductsCreated: productsCreated,
	}
}

// ObserveSettlement records one settlement attempt.
func (r *Registry) ObserveSettlement(outcome string, elapsed time.Duration, units int) {
	if r == nil {
		return
	}
	r.Settlements.WithLabelValues(outcome).Inc()
	r.SettleLatency.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess && units > 0 {
		r.UnitsSold.Add(float64(units))
	}
}

// ObserveProductCreated records a new catalog entry.
func (r *Registry) ObserveProductCreated() {
	if r == nil {
		return
	}
	r.ProductsCreated.Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
