package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/ingest"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/service"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxBodySize ограничение тела запроса на приём измерений
const maxBodySize = 1 << 20

type MonitorService interface {
	Summaries(ctx context.Context, query, sortKey, order string) ([]domain.SummaryRow, error)
	RefreshSummaries(ctx context.Context) (bool, error)
	TransformerDetail(ctx context.Context, id, window string, maxPoints int) (*domain.TransformerDetail, error)
	Readings(ctx context.Context, id string, start, end time.Time) ([]domain.TemperatureReading, error)
	IngestBatch(ctx context.Context, readings []domain.TemperatureReading) (int, error)
	RecordInspection(ctx context.Context, inspection domain.Inspection) (*domain.Inspection, error)
	SimulateDay(ctx context.Context) (int, error)
	Backfill(ctx context.Context) (int, error)
	ImportCSV(ctx context.Context, id, objectKey string) (*ingest.ImportResult, error)
	CheckDBConnection(ctx context.Context) error
	MaxChartPoints() int
}

type HTTPServer struct {
	server  *http.Server
	service MonitorService
	logger  *zap.Logger
}

// NewHTTPServer собирает маршруты; limiter может быть nil
func NewHTTPServer(addr string, service MonitorService, limiter *RateLimiter, logger *zap.Logger) *HTTPServer {
	router := mux.NewRouter()

	s := &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	// Middleware регистрации
	router.Use(s.metricsMiddleware)
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/health", s.healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	if limiter != nil {
		api.Use(limiter.Middleware)
	}

	api.HandleFunc("/transformers", s.listTransformers).Methods("GET")
	api.HandleFunc("/transformers/refresh", s.refreshTransformers).Methods("POST")
	api.HandleFunc("/transformers/{id}", s.getTransformer).Methods("GET")
	api.HandleFunc("/transformers/{id}/readings", s.getReadings).Methods("GET")
	api.HandleFunc("/transformers/{id}/imports", s.importCSV).Methods("POST")
	api.HandleFunc("/readings", s.postReadings).Methods("POST")
	api.HandleFunc("/readings/simulate", s.simulateReadings).Methods("POST")
	api.HandleFunc("/readings/backfill", s.backfillReadings).Methods("POST")
	api.HandleFunc("/inspections", s.postInspection).Methods("POST")

	return s
}

// Handler нужен для тестов и встраивания
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// responseWriter для отслеживания статус кода и размера
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// middleware для сбора метрик HTTP запросов с использованием шаблона пути
func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		method := r.Method
		status := strconv.Itoa(rw.statusCode)

		// Получаем шаблон пути из mux (если доступен)
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		metrics.HTTPRequests.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
		metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(rw.size))
	})
}

// middleware для логирования HTTP запросов
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("ip", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
			zap.Int("status", rw.statusCode),
			zap.Int("response_size", rw.size),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError переводит ошибку сервиса в HTTP статус; причина 5xx пишется только в лог
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case service.IsInvalidInput(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrTransformerNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, service.ErrImportsDisabled):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	default:
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *HTTPServer) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CheckDBConnection(r.Context()); err != nil {
		s.logger.Error("Health check failed", zap.Error(err))
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *HTTPServer) listTransformers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rows, err := s.service.Summaries(r.Context(), q.Get("q"), q.Get("sort"), q.Get("order"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, rows)
}

func (s *HTTPServer) refreshTransformers(w http.ResponseWriter, r *http.Request) {
	applied, err := s.service.RefreshSummaries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

func (s *HTTPServer) getTransformer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()

	// window (ISO-8601) приоритетнее именованного range
	window := q.Get("range")
	if custom := q.Get("window"); custom != "" {
		window = custom
	}

	maxPoints := s.service.MaxChartPoints()
	if raw := q.Get("maxPoints"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "maxPoints must be an integer", http.StatusBadRequest)
			return
		}
		maxPoints = parsed
	}

	detail, err := s.service.TransformerDetail(r.Context(), id, window, maxPoints)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, detail)
}

func (s *HTTPServer) getReadings(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		http.Error(w, "start and end parameters are required", http.StatusBadRequest)
		return
	}

	start, err := utils.ParseTimestamp(startStr)
	if err != nil {
		s.logger.Debug("invalid start time format",
			zap.Error(err),
			zap.String("received_start", startStr))
		http.Error(w, "invalid start time format", http.StatusBadRequest)
		return
	}

	end, err := utils.ParseTimestamp(endStr)
	if err != nil {
		s.logger.Debug("invalid end time format",
			zap.Error(err),
			zap.String("received_end", endStr))
		http.Error(w, "invalid end time format", http.StatusBadRequest)
		return
	}

	readings, err := s.service.Readings(r.Context(), id, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if readings == nil {
		readings = []domain.TemperatureReading{}
	}
	s.writeJSON(w, http.StatusOK, readings)
}

type importRequest struct {
	ObjectKey string `json:"objectKey"`
}

func (s *HTTPServer) importCSV(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req importRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.service.ImportCSV(r.Context(), id, req.ObjectKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) postReadings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	readings, err := ingest.DecodeReadings(body, "", time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	metrics.IngestReadingsReceived.WithLabelValues(ingest.SourceHTTP).Add(float64(len(readings)))

	n, err := s.service.IngestBatch(r.Context(), readings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]int{"count": n})
}

func (s *HTTPServer) simulateReadings(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.SimulateDay(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]int{"count": n})
}

func (s *HTTPServer) backfillReadings(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.Backfill(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]int{"count": n})
}

func (s *HTTPServer) postInspection(w http.ResponseWriter, r *http.Request) {
	var inspection domain.Inspection
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&inspection); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.service.RecordInspection(r.Context(), inspection)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, saved)
}
