package grpc

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/service"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/pkg/utils"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MonitorService описывает бизнес-логику, доступную через gRPC
type MonitorService interface {
	Summaries(ctx context.Context, query, sortKey, order string) ([]domain.SummaryRow, error)
	TransformerDetail(ctx context.Context, id, window string, maxPoints int) (*domain.TransformerDetail, error)
	IngestReading(ctx context.Context, reading domain.TemperatureReading) error
	MaxChartPoints() int
}

// GRPCServer реализует gRPC сервер с метриками и логированием
type GRPCServer struct {
	server  *grpc.Server
	service MonitorService
	logger  *zap.Logger
	now     func() time.Time
}

var _ TransformerMonitorServer = (*GRPCServer)(nil)

func NewGRPCServer(service MonitorService, logger *zap.Logger) *GRPCServer {
	loggingInterceptor := logging.UnaryServerInterceptor(interceptorLogger(logger))
	metricsInterceptor := grpc_prometheus.UnaryServerInterceptor
	customMetricsInterceptor := unaryMetricsInterceptor()

	chain := grpc.ChainUnaryInterceptor(
		loggingInterceptor,
		metricsInterceptor,
		customMetricsInterceptor,
	)

	s := &GRPCServer{
		server:  grpc.NewServer(chain),
		service: service,
		logger:  logger,
		now:     time.Now,
	}

	RegisterTransformerMonitorServer(s.server, s)

	grpc_prometheus.Register(s.server)
	grpc_prometheus.EnableHandlingTimeHistogram()

	return s
}

func (s *GRPCServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(lis)
}

// Serve обслуживает уже открытый listener
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
	return s.server.Serve(lis)
}

func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down gRPC server")

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

// Custom metrics interceptor для детального отслеживания статусов и длительности
func unaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		statusCode := status.Code(err).String()
		duration := time.Since(start).Seconds()

		metrics.GRPCRequests.WithLabelValues(info.FullMethod, statusCode).Inc()
		metrics.GRPCRequestDuration.WithLabelValues(info.FullMethod, statusCode).Observe(duration)

		return resp, err
	}
}

// Logger adapter для grpc middleware
func interceptorLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(_ context.Context, lvl logging.Level, msg string, fields ...any) {
		f := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			f = append(f, zap.Any(key, fields[i+1]))
		}
		logger := l.WithOptions(zap.AddCallerSkip(1)).With(f...)

		switch lvl {
		case logging.LevelDebug:
			logger.Debug(msg)
		case logging.LevelInfo:
			logger.Info(msg)
		case logging.LevelWarn:
			logger.Warn(msg)
		case logging.LevelError:
			logger.Error(msg)
		default:
			logger.Info(msg)
		}
	})
}

// toStatus переводит ошибки сервиса в коды gRPC
func (s *GRPCServer) toStatus(err error, msg string) error {
	switch {
	case service.IsInvalidInput(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrTransformerNotFound):
		return status.Error(codes.NotFound, "transformer not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(msg, zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) ListSummaries(ctx context.Context, req *ListSummariesRequest) (*ListSummariesResponse, error) {
	rows, err := s.service.Summaries(ctx, req.Query, req.Sort, req.Order)
	if err != nil {
		return nil, s.toStatus(err, "Failed to list summaries")
	}
	if rows == nil {
		rows = []domain.SummaryRow{}
	}

	return &ListSummariesResponse{Transformers: rows}, nil
}

func (s *GRPCServer) GetTransformerDetail(ctx context.Context, req *GetTransformerDetailRequest) (*GetTransformerDetailResponse, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	// 0 означает "по умолчанию"; отрицательное значение отклонит сервис
	maxPoints := int(req.MaxPoints)
	if maxPoints == 0 {
		maxPoints = s.service.MaxChartPoints()
	}

	detail, err := s.service.TransformerDetail(ctx, req.ID, req.Window, maxPoints)
	if err != nil {
		return nil, s.toStatus(err, "Failed to get transformer detail")
	}

	return &GetTransformerDetailResponse{Detail: detail}, nil
}

func (s *GRPCServer) RecordReading(ctx context.Context, req *RecordReadingRequest) (*RecordReadingResponse, error) {
	if strings.TrimSpace(req.TransformerID) == "" {
		return nil, status.Error(codes.InvalidArgument, "transformer_id is required")
	}
	if req.TempC == nil || math.IsNaN(*req.TempC) || math.IsInf(*req.TempC, 0) {
		return nil, status.Error(codes.InvalidArgument, "finite temp_c is required")
	}

	ts := s.now().UTC()
	if req.Timestamp != "" {
		parsed, err := utils.ParseTimestamp(req.Timestamp)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid timestamp format, expected ISO-8601")
		}
		ts = parsed.UTC()
	}

	reading := domain.TemperatureReading{
		TransformerID: req.TransformerID,
		Timestamp:     ts,
		TempC:         *req.TempC,
	}
	if err := s.service.IngestReading(ctx, reading); err != nil {
		return nil, s.toStatus(err, "Failed to record reading")
	}

	return &RecordReadingResponse{Accepted: true}, nil
}
