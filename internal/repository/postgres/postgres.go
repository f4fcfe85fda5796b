package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/config"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	backendLabel = "postgres"
	dateLayout   = "2006-01-02"
)

//go:embed schema.sql
var schemaSQL string

type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresRepository(ctx context.Context, dbConfig config.DBConfig, logger *zap.Logger) (*PostgresRepository, error) {
	// Конфигурация пула
	config, err := pgxpool.ParseConfig(dbConfig.DBSource)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = int32(dbConfig.MaxDBConnections)
	config.MinConns = int32(dbConfig.MinDBConnections)
	config.MaxConnLifetime = dbConfig.MaxConnLifetime
	config.MaxConnIdleTime = dbConfig.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	go monitorConnections(ctx, pool, logger)

	return &PostgresRepository{
		pool:   pool,
		logger: logger,
	}, nil
}

// monitorConnections периодически обновляет метрики соединений и завершается при отмене ctx
func monitorConnections(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping monitorConnections goroutine due to context cancellation")
			return
		case <-ticker.C:
			stats := pool.Stat()
			metrics.DBActiveConnections.Set(float64(stats.AcquiredConns()))
			metrics.DBIdleConnections.Set(float64(stats.IdleConns()))

			logger.Debug("Database connection stats",
				zap.Int("acquired", int(stats.AcquiredConns())),
				zap.Int("idle", int(stats.IdleConns())),
				zap.Int("max", int(stats.MaxConns())),
			)
		}
	}
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.DBQueryDuration.WithLabelValues(backendLabel, operation).Observe(time.Since(start).Seconds())
	}
}

// EnsureSchema создаёт таблицы, если их ещё нет
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	defer observe("ensure_schema")()

	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListTransformers(ctx context.Context) ([]domain.Transformer, error) {
	defer observe("list_transformers")()

	query := "SELECT id, type, kva, to_char(mfg_date, 'YYYY-MM-DD') FROM transformers ORDER BY id"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transformers: %w", err)
	}
	defer rows.Close()

	var results []domain.Transformer
	for rows.Next() {
		var t domain.Transformer
		if err := rows.Scan(&t.ID, &t.Type, &t.KVA, &t.MfgDate); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// GetTransformer возвращает трансформатор по id. Если он не найден, возвращает (nil, nil).
func (r *PostgresRepository) GetTransformer(ctx context.Context, id string) (*domain.Transformer, error) {
	defer observe("get_transformer")()

	query := "SELECT id, type, kva, to_char(mfg_date, 'YYYY-MM-DD') FROM transformers WHERE id = $1"

	var t domain.Transformer
	err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Type, &t.KVA, &t.MfgDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transformer: %w", err)
	}

	return &t, nil
}

// GetReadings возвращает измерения за [start, end] включительно, по возрастанию времени
func (r *PostgresRepository) GetReadings(ctx context.Context, transformerID string, start, end time.Time) ([]domain.TemperatureReading, error) {
	defer observe("get_readings")()

	query := `SELECT transformer_id, timestamp, temp_c FROM temperature_readings
		WHERE transformer_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp`

	rows, err := r.pool.Query(ctx, query, transformerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TemperatureReading, error) {
		var rd domain.TemperatureReading
		err := row.Scan(&rd.TransformerID, &rd.Timestamp, &rd.TempC)
		return rd, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect readings: %w", err)
	}

	return readings, nil
}

// GetLatestReading возвращает самое свежее измерение не позже now, либо (nil, nil)
func (r *PostgresRepository) GetLatestReading(ctx context.Context, transformerID string, now time.Time) (*domain.TemperatureReading, error) {
	defer observe("get_latest_reading")()

	query := `SELECT transformer_id, timestamp, temp_c FROM temperature_readings
		WHERE transformer_id = $1 AND timestamp <= $2 AND temp_c NOT IN ('NaN', 'Infinity', '-Infinity')
		ORDER BY timestamp DESC LIMIT 1`

	var rd domain.TemperatureReading
	err := r.pool.QueryRow(ctx, query, transformerID, now).Scan(&rd.TransformerID, &rd.Timestamp, &rd.TempC)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return &rd, nil
}

// SaveReadings сохраняет пачку измерений одним COPY
func (r *PostgresRepository) SaveReadings(ctx context.Context, readings []domain.TemperatureReading) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(readings) == 0 {
		return nil
	}
	defer observe("save_readings")()

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"temperature_readings"},
		[]string{"transformer_id", "timestamp", "temp_c"},
		pgx.CopyFromSlice(len(readings), func(i int) ([]any, error) {
			rd := readings[i]
			return []any{rd.TransformerID, rd.Timestamp.UTC(), rd.TempC}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to save readings: %w", err)
	}

	r.logger.Debug("readings saved", zap.Int64("rows", n))
	return nil
}

func (r *PostgresRepository) SaveInspection(ctx context.Context, inspection *domain.Inspection) error {
	defer observe("save_inspection")()

	date, err := time.Parse(dateLayout, inspection.InspectionDate)
	if err != nil {
		return fmt.Errorf("invalid inspection date: %w", err)
	}

	query := `INSERT INTO inspections (id, transformer_id, inspection_date, inspector_name, condition, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.pool.Exec(ctx, query,
		inspection.ID,
		inspection.TransformerID,
		date,
		inspection.InspectorName,
		string(inspection.Condition),
		inspection.Notes,
		inspection.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save inspection: %w", err)
	}

	return nil
}

func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	defer observe("health_check")()

	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
