package monitoring

import (
	"context"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_ingested_total",
			Help: "Events created per source",
		},
		[]string{"source"},
	)

	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_duplicates_skipped_total",
			Help: "Events skipped as duplicates of existing records",
		},
	)

	EventsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_rejected_total",
			Help: "Events rejected during normalization or validation",
		},
	)

	sourceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_runs_total",
			Help: "Ingestion runs per source and outcome",
		},
		[]string{"source", "status"},
	)

	sourceRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_run_duration_seconds",
			Help:    "Duration of ingestion runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"source"},
	)

	syncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_depth",
			Help: "Jobs currently scheduled in the sync queue",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

// ObserveSourceRun records the outcome and duration of one ingestion run.
func ObserveSourceRun(source string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	sourceRuns.WithLabelValues(source, status).Inc()
	sourceRunDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

// QueueDepth is polled by the sync queue; anything reporting a depth sets
// the gauge through this.
type QueueDepth interface {
	Depth(ctx context.Context) (int64, error)
}

type Monitor struct {
	redis *redis.Client
	queue QueueDepth
}

func NewMonitor(redisClient *redis.Client, queue QueueDepth) *Monitor {
	monitor := &Monitor{redis: redisClient, queue: queue}
	go monitor.collectMetrics()
	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		goroutineCount.Set(float64(runtime.NumGoroutine()))

		if m.queue != nil {
			if depth, err := m.queue.Depth(ctx); err == nil {
				syncQueueDepth.Set(float64(depth))
			}
		}
	}
}

// StartMetricsServer serves /metrics and /health on its own port, apart
// from the application API.
func (m *Monitor) StartMetricsServer(port string) {
	e := echo.New()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		if m.redis != nil {
			if err := m.redis.Ping(c.Request().Context()).Err(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	server := &http.Server{Addr: ":" + port, Handler: e}
	go func() {
		log.Printf("[Monitor] Metrics server listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Monitor] Metrics server stopped: %v", err)
		}
	}()
}
