package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/store/{slug}/checkout", 201, 40*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, 1.0, counter(t, mfs, "brewcart_http_requests_total", labels{"route": "/api/store/{slug}/checkout", "status": "201"}))
	require.Equal(t, 1.0, counter(t, mfs, "brewcart_http_requests_total", labels{"route": "unmatched", "status": "404"}))

	sum, count := histogram(t, mfs, "brewcart_http_request_duration_seconds", labels{"method": "POST"})
	require.InDelta(t, 0.04, sum, 1e-9)
	require.Equal(t, uint64(1), count)
}

func TestCommerceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCommerceMetrics(reg)
	m.OrderPlaced("card")
	m.OrderPlaced("card")
	m.CheckoutRejected("INSUFFICIENT_STOCK")
	m.PushResult("unregistered")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, 2.0, counter(t, mfs, "brewcart_orders_placed_total", labels{"payment_method": "card"}))
	require.Equal(t, 1.0, counter(t, mfs, "brewcart_checkout_rejected_total", labels{"code": "INSUFFICIENT_STOCK"}))
	require.Equal(t, 1.0, counter(t, mfs, "brewcart_push_messages_total", labels{"outcome": "unregistered"}))

	var nilMetrics *CommerceMetrics
	nilMetrics.OrderPlaced("cash_on_delivery")
}
