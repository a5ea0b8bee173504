package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once
	reqTotal    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	reqInFlight *prometheus.GaugeVec
)

// Metrics records per-route request counts, latencies, and in-flight gauges.
// Routes are labelled by their Echo template path to keep cardinality low.
func Metrics() echo.MiddlewareFunc {
	metricsOnce.Do(func() {
		reqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dexpilot_http_requests_total",
			Help: "HTTP requests by route, method, and status.",
		}, []string{"route", "method", "status"})
		reqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dexpilot_http_request_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "method"})
		reqInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dexpilot_http_in_flight_requests",
			Help: "Requests currently being served.",
		}, []string{"route", "method"})
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method

			reqInFlight.WithLabelValues(route, method).Inc()
			start := time.Now()
			err := next(c)
			reqInFlight.WithLabelValues(route, method).Dec()

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			reqTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			reqDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
