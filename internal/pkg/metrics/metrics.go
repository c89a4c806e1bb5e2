package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "navfence",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "navfence",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Boundary publisher metrics
	BoundaryRecordsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "publisher",
		Name:      "boundary_records_total",
		Help:      "Total boundary records emitted to the channel",
	}, []string{"channel"})

	BoundaryEmitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "publisher",
		Name:      "boundary_emit_errors_total",
		Help:      "Total boundary records that failed to reach the channel",
	}, []string{"channel"})

	PublishCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "publisher",
		Name:      "publish_cycles_total",
		Help:      "Total publish cycles fired by the interval gate",
	}, []string{"channel"})

	PublishCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "navfence",
		Subsystem: "publisher",
		Name:      "publish_cycle_duration_seconds",
		Help:      "Duration of one publish cycle",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
	}, []string{"channel"})

	// Zone registry metrics
	ZonesRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "navfence",
		Subsystem: "zones",
		Name:      "registered",
		Help:      "Zones currently held by the registry",
	})

	ZonesPublishable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "navfence",
		Subsystem: "zones",
		Name:      "publishable",
		Help:      "Zones that are active and have at least three points",
	})

	ZoneMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "zones",
		Name:      "mutations_total",
		Help:      "Zone mutations by operation and result",
	}, []string{"op", "result"})

	ZoneCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "zones",
		Name:      "remote_commands_total",
		Help:      "Zone commands received over the message bus",
	}, []string{"action", "result"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "navfence",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "navfence",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "navfence",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "navfence",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "navfence",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from a pgxpool.Stat.
// It takes an interface so this package does not import pgx.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}

// SetZoneCounts updates the registry gauges.
func SetZoneCounts(total, publishable int) {
	ZonesRegistered.Set(float64(total))
	ZonesPublishable.Set(float64(publishable))
}
