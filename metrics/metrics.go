// Package metrics holds the Prometheus collectors for the storefront and training APIs.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "liftworks",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftworks",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "liftworks",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftworks",
			Subsystem: "lookup",
			Name:      "decodes_total",
			Help:      "Serial/VIN decode requests by brand and outcome.",
		},
		[]string{"brand", "outcome"},
	)

	examSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftworks",
			Subsystem: "exam",
			Name:      "sessions_total",
			Help:      "Final exam session events by outcome.",
		},
		[]string{"outcome"},
	)

	seatClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftworks",
			Subsystem: "enterprise",
			Name:      "seat_claims_total",
			Help:      "Invitation redemptions by outcome.",
		},
		[]string{"outcome"},
	)

	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "liftworks",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		lookups,
		examSessions,
		seatClaims,
		orders,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry as a fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency keyed by the matched route template.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		method := strings.ToUpper(c.Method())
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordLookup counts a decode. outcome is one of matched, unmatched, invalid.
func RecordLookup(brand, outcome string) {
	lookups.WithLabelValues(brand, outcome).Inc()
}

// RecordExamSession counts started, resumed, passed, failed and expired sessions.
func RecordExamSession(outcome string) {
	examSessions.WithLabelValues(outcome).Inc()
}

// RecordSeatClaim counts redemption outcomes.
func RecordSeatClaim(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	seatClaims.WithLabelValues(outcome).Inc()
}

// RecordOrder counts an order reaching status.
func RecordOrder(status string) {
	orders.WithLabelValues(strings.ToLower(status)).Inc()
}
