package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request counts and latency by route pattern.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "route"})
	reg.MustRegister(requests, latency)
	return &HTTPMetrics{requests: requests, latency: latency}
}

// Observe records one finished request.
func (h *HTTPMetrics) Observe(method, route string, status int, duration time.Duration) {
	if h == nil || h.requests == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// CommerceMetrics counts business outcomes that dashboards alert on.
type CommerceMetrics struct {
	ordersPlaced     *prometheus.CounterVec
	checkoutRejected *prometheus.CounterVec
	pushSent         *prometheus.CounterVec
}

// NewCommerceMetrics registers order and push counters on reg.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Orders committed by checkout, by payment method.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_rejected_total",
		Help:      "Checkouts rejected, by error code.",
	}, []string{"code"})
	push := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_messages_total",
		Help:      "Push sends by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(placed, rejected, push)
	return &CommerceMetrics{ordersPlaced: placed, checkoutRejected: rejected, pushSent: push}
}

func (c *CommerceMetrics) OrderPlaced(paymentMethod string) {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.WithLabelValues(paymentMethod).Inc()
}

func (c *CommerceMetrics) CheckoutRejected(code string) {
	if c == nil || c.checkoutRejected == nil {
		return
	}
	c.checkoutRejected.WithLabelValues(code).Inc()
}

func (c *CommerceMetrics) PushResult(outcome string) {
	if c == nil || c.pushSent == nil {
		return
	}
	c.pushSent.WithLabelValues(outcome).Inc()
}
