package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "HTTP response size in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 5),
	}, []string{"method", "path"})

	HTTPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Total number of HTTP requests rejected by the rate limiter",
	})

	// gRPC метрики
	GRPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grpc_requests_total",
		Help: "Total number of gRPC requests",
	}, []string{"method", "status"})

	GRPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grpc_request_duration_seconds",
		Help:    "gRPC request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	// DB метрики
	DBQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Database query duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	DBActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_active_connections",
		Help: "Number of active database connections",
	})

	DBIdleConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_idle_connections",
		Help: "Number of idle database connections",
	})

	// метрики приёма измерений
	IngestReadingsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_readings_received_total",
		Help: "Total number of temperature readings received, by source",
	}, []string{"source"})

	IngestReadingsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_readings_stored_total",
		Help: "Total number of temperature readings successfully stored",
	})

	IngestReadingsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_readings_failed_total",
		Help: "Total number of temperature readings failed during storing",
	})

	IngestReadingsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_readings_dropped_total",
		Help: "Total number of readings dropped before storing, by reason",
	}, []string{"reason"})

	IngestProcessingTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_reading_processing_seconds",
		Help:    "Histogram of reading processing durations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // от 1ms до ~16 секунд
	})

	IngestActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_active_workers",
		Help: "Current number of active workers storing readings",
	})

	// метрики обновления сводки
	RefreshResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_results_total",
		Help: "Refresh outcomes: committed, stale (discarded as older than the committed generation) or failed",
	}, []string{"refresher", "result"})

	ChartPointsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chart_points_returned",
		Help:    "Number of chart points returned per transformer detail request",
		Buckets: prometheus.ExponentialBuckets(8, 2, 10),
	})
)
