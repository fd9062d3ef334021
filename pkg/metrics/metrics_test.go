package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.OrderPlaced(10 * time.Millisecond)
	m.OrderPlaced(20 * time.Millisecond)
	m.OrderFailed("insufficient_stock", time.Millisecond)
	m.StatusChanged("SHIPPED")
	m.Reconciled("merged", 3)
	m.Reconciled("replayed", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderFailures.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("SHIPPED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.mergedLines))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciliations.WithLabelValues("replayed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.OrderPlaced(time.Second)
	m.OrderFailed("error", time.Second)
	m.StatusChanged("CANCELLED")
	m.Reconciled("merged", 1)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OrderPlaced(time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "storefront_orders_placed_total 1"))
}
