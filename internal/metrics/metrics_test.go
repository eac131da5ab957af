package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSettlement(t *testing.T) {
	r := NewRegistry()

	r.ObserveSettlement(OutcomeSuccess, 10*time.Millisecond, 3)
	r.ObserveSettlement(OutcomeSuccess, 5*time.Millisecond, 2)
	r.ObserveSettlement(OutcomeInsufficientStock, time.Millisecond, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Settlements.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Settlements.WithLabelValues(OutcomeInsufficientStock)))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.UnitsSold), "failed settlements must not count sold units")
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveSettlement(OutcomeSuccess, time.Second, 1)
	r.ObserveProductCreated()
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveProductCreated()

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "sales_products_created_total 1"))
}
