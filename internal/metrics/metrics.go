// Package metrics holds the gateway's Prometheus instrumentation so that
// both the HTTP transport (internal/gateway) and domain services
// (internal/domain/sales) can record against it without either depending
// on the other — generalized from the teacher's nap_* registration in
// internal/registry/handler/metrics.go onto this gateway's own counters:
// requests, agent executions, and stock-allocation retries.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	agentExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_executions_total",
		Help: "Total agent executions by agent, action, and outcome.",
	}, []string{"agent", "action", "outcome"})

	stockAllocationRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_allocation_retries_total",
		Help: "Total optimistic stock-allocation CAS retries across all sale creations.",
	})
)

// Middleware records per-request metrics for every gateway route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		gatewayRequestsTotal.WithLabelValues(method, path, status).Inc()
		gatewayRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// Handler serves the /metrics scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAgentExecution records one agent.Execute outcome.
func RecordAgentExecution(agent, action, outcome string) {
	agentExecutionsTotal.WithLabelValues(agent, action, outcome).Inc()
}

// RecordStockAllocationRetry records one optimistic-CAS retry during sale
// creation's stock allocation step.
func RecordStockAllocationRetry() {
	stockAllocationRetriesTotal.Inc()
}
