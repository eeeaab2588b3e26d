package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	outbox := NewOutboxMetrics(reg)
	outbox.Outcome("order_created", "published")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `brewcart_outbox_events_total{event_type="order_created",outcome="published"} 1`)
}

func TestServeWithoutPortIsNoop(t *testing.T) {
	stop := Serve(t.Context(), "", prometheus.NewRegistry(), nil)
	require.NotNil(t, stop)
	stop()
}
