// Package metrics exposes prometheus collectors for the chat server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Destroy reasons used as the rooms_destroyed_total label.
const (
	ReasonExpired   = "expired"
	ReasonDestroyed = "destroyed"
)

// Metrics groups the server's collectors on one registry.
type Metrics struct {
	registry *prometheus.Registry

	WSConnections       prometheus.Gauge
	RoomsCreated        prometheus.Counter
	RoomsDestroyed      *prometheus.CounterVec
	MessagesTotal       prometheus.Counter
	EventsPublished     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "burnroom_ws_connections",
			Help: "Current number of active websocket connections",
		}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burnroom_rooms_created_total",
			Help: "Total number of rooms created",
		}),
		RoomsDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "burnroom_rooms_destroyed_total",
			Help: "Total number of rooms destroyed",
		}, []string{"reason"}),
		MessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burnroom_messages_total",
			Help: "Total number of chat messages stored",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "burnroom_events_published_total",
			Help: "Total number of realtime events published",
		}, []string{"event"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	m.registry.MustRegister(
		m.WSConnections,
		m.RoomsCreated,
		m.RoomsDestroyed,
		m.MessagesTotal,
		m.EventsPublished,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		m.HTTPRequestsTotal.With(labels).Inc()
		m.HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
