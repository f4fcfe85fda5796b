package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/config"
	appgrpc "github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/grpc"
	apphttp "github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/http"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/ingest"
	applogger "github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/logger"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/repository/influx"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/repository/postgres"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/repository/s3"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Создаём отменяемый контекст для всего приложения
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()

	logger, err := applogger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error during logger sync: %v", err)
		}
	}()

	logger.Info("Starting Transformer Monitor",
		zap.String("version", "1.0.0"),
		zap.String("readings_backend", cfg.ReadingsBackend))

	// Инициализация репозитория
	repo, err := postgres.NewPostgresRepository(ctx, cfg.DBConfig, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return
	}
	defer func() {
		repo.Close()
		logger.Info("Database connection closed")
	}()

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to apply schema", zap.Error(err))
		return
	}
	logger.Info("Database connection established")

	// Хранилище измерений: Postgres по умолчанию, InfluxDB по настройке
	var readings service.ReadingStore = repo
	if cfg.ReadingsBackend == config.BackendInflux {
		store, err := influx.NewReadingStore(ctx, cfg.InfluxConfig, logger)
		if err != nil {
			logger.Error("Failed to connect to InfluxDB", zap.Error(err))
			return
		}
		defer store.Close()
		readings = store
	}

	// Выгрузки логгеров в S3 (опционально)
	var objects service.ObjectStore
	if cfg.S3Config.Endpoint != "" {
		store, err := s3.NewExportStore(cfg.S3Config)
		if err != nil {
			logger.Error("Failed to create S3 client", zap.Error(err))
			return
		}
		objects = store
		logger.Info("CSV imports enabled", zap.String("bucket", cfg.S3Config.Bucket))
	}

	monitorService := service.NewMonitorService(repo, readings, objects, service.Options{
		MaxChartPoints:  cfg.MaxChartPoints,
		RefreshInterval: cfg.RefreshInterval,
		Seed:            time.Now().UnixNano(),
	}, logger)

	var background sync.WaitGroup

	// Периодическое обновление сводки
	background.Add(1)
	go func() {
		defer background.Done()
		monitorService.Refresher().Run(ctx)
	}()

	// Пул обработки входящих измерений; останавливается явно через Stop после потребителей, чтобы дообработать буфер
	pool := ingest.NewPool(monitorService, cfg.WorkerCount, cfg.IngestBuffer, logger)
	pool.Start(context.WithoutCancel(ctx))

	if cfg.AMQPConfig.URL != "" {
		conn, err := amqp.Dial(cfg.AMQPConfig.URL)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", zap.Error(err))
			return
		}
		defer conn.Close()

		consumer, err := ingest.NewAMQPConsumer(conn, cfg.AMQPConfig, pool, service.IsClientError, logger)
		if err != nil {
			logger.Error("Failed to set up AMQP consumer", zap.Error(err))
			return
		}
		defer consumer.Close()

		background.Add(1)
		go func() {
			defer background.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("AMQP consumer stopped", zap.Error(err))
			}
		}()
	}

	if cfg.MQTTConfig.BrokerURL != "" {
		subscriber := ingest.NewMQTTSubscriber(cfg.MQTTConfig, pool, logger)
		background.Add(1)
		go func() {
			defer background.Done()
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MQTT subscriber stopped", zap.Error(err))
			}
		}()
	}

	// Ограничение частоты запросов через Redis (опционально)
	var limiter *apphttp.RateLimiter
	if cfg.RedisConfig.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.RedisConfig.Addr,
			DB:          cfg.RedisConfig.DB,
			DialTimeout: cfg.RedisConfig.DialTimeout,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("Failed to close Redis client", zap.Error(err))
			}
		}()

		if err := rdb.Ping(ctx).Err(); err != nil {
			// лимитер пропускает запросы при недоступном Redis
			logger.Warn("Redis is unreachable, rate limiting will fail open", zap.Error(err))
		}
		limiter = apphttp.NewRateLimiter(rdb, cfg.RedisConfig.RateLimit, cfg.RedisConfig.RateWindow, logger)
	}

	// Запуск HTTP сервера
	httpServer := apphttp.NewHTTPServer(cfg.RESTPort, monitorService, limiter, logger)
	go func() {
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Запуск GRPC сервера
	grpcServer := appgrpc.NewGRPCServer(monitorService, logger)
	go func() {
		if err := grpcServer.Start(cfg.GRPCPort); err != nil {
			logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down servers...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Сначала перестаём принимать запросы, затем останавливаем фоновые компоненты
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("gRPC server shutdown due to timeout")
		} else {
			logger.Error("gRPC server shutdown failed", zap.Error(err))
		}
	}

	// Отменяем контекст: остановит потребителей и обновление сводки
	cancel()
	background.Wait()

	// Потребители больше ничего не отправляют: пул сохраняет буфер и останавливается,
	// AMQP-доставки подтверждаются до закрытия канала
	pool.Stop()
	pool.Wait()

	logger.Info("Transformer Monitor stopped")
}
