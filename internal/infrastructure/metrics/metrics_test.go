package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coridor/backend/internal/infrastructure/event"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ event.DeliveryObserver = (*Registry)(nil)

func TestRegistry_Deliveries(t *testing.T) {
	r := New()
	ctx := context.Background()

	r.EventDelivered(ctx, "RegularizationCommitted")
	r.EventDelivered(ctx, "RegularizationCommitted")
	r.EventFailed(ctx, "RegularizationCommitted", false)
	r.EventFailed(ctx, "RegularizationCommitted", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.deliveries.WithLabelValues("RegularizationCommitted", ResultDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.deliveries.WithLabelValues("RegularizationCommitted", ResultRetry)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.deliveries.WithLabelValues("RegularizationCommitted", ResultDead)))
}

func TestRegistry_ObserveHTTP(t *testing.T) {
	r := New()

	r.ObserveHTTP(http.MethodPost, "/api/v1/leases/:id/regularization", http.StatusCreated, 15*time.Millisecond)
	r.ObserveHTTP(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("POST", "/api/v1/leases/:id/regularization", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.EventDelivered(context.Background(), "RegularizationDocumentSent")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `coridor_outbox_deliveries_total{event_type="RegularizationDocumentSent",result="delivered"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
