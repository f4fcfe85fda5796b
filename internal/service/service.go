package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/analytics"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/ingest"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/refresh"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/simulator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// summaryWindow окно для средней температуры в сводке и на панели трансформатора
	summaryWindow = 24 * time.Hour
	dateLayout    = "2006-01-02"
)

var (
	ErrInvalidReading      = errors.New("invalid reading")
	ErrInvalidInspection   = errors.New("invalid inspection")
	ErrInvalidRange        = errors.New("end time must not be before start time")
	ErrTransformerNotFound = errors.New("transformer not found")
	ErrImportsDisabled     = errors.New("csv imports are not configured")
)

// IsInvalidInput сообщает, вызвана ли ошибка некорректными входными данными
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrInvalidReading,
		ErrInvalidInspection,
		ErrInvalidRange,
		ingest.ErrInvalidPayload,
		ingest.ErrMissingColumn,
		analytics.ErrInvalidWindow,
		analytics.ErrInvalidMaxPoints,
		analytics.ErrUnknownTimeWindow,
		analytics.ErrUnknownSortKey,
		analytics.ErrUnknownSortOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsClientError сообщает, что запрос не выполнится и при повторе: некорректные данные или неизвестный трансформатор
func IsClientError(err error) bool {
	return IsInvalidInput(err) || errors.Is(err, ErrTransformerNotFound)
}

// Repository хранилище трансформаторов и осмотров
type Repository interface {
	ListTransformers(ctx context.Context) ([]domain.Transformer, error)
	GetTransformer(ctx context.Context, id string) (*domain.Transformer, error)
	SaveInspection(ctx context.Context, inspection *domain.Inspection) error
	HealthCheck(ctx context.Context) error
}

// ReadingStore хранилище временных рядов температуры
type ReadingStore interface {
	GetReadings(ctx context.Context, transformerID string, start, end time.Time) ([]domain.TemperatureReading, error)
	GetLatestReading(ctx context.Context, transformerID string, now time.Time) (*domain.TemperatureReading, error)
	SaveReadings(ctx context.Context, readings []domain.TemperatureReading) error
}

// ObjectStore источник CSV-выгрузок логгеров
type ObjectStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Options struct {
	MaxChartPoints  int
	RefreshInterval time.Duration
	Seed            int64
}

type MonitorService struct {
	repo      Repository
	readings  ReadingStore
	objects   ObjectStore
	generator *simulator.Generator
	summaries *refresh.Refresher[[]domain.SummaryRow]
	maxPoints int
	now       func() time.Time
	logger    *zap.Logger
}

// NewMonitorService создаёт сервис; objects может быть nil, тогда импорт CSV отключён
func NewMonitorService(repo Repository, readings ReadingStore, objects ObjectStore, opts Options, logger *zap.Logger) *MonitorService {
	s := &MonitorService{
		repo:      repo,
		readings:  readings,
		objects:   objects,
		generator: simulator.NewGenerator(opts.Seed),
		maxPoints: opts.MaxChartPoints,
		now:       time.Now,
		logger:    logger,
	}
	s.summaries = refresh.NewRefresher("summaries", s.ListSummaries, opts.RefreshInterval, logger)
	return s
}

// Refresher фоновое обновление сводки; запускается вызывающей стороной через Run
func (s *MonitorService) Refresher() *refresh.Refresher[[]domain.SummaryRow] {
	return s.summaries
}

func (s *MonitorService) MaxChartPoints() int {
	return s.maxPoints
}

func (s *MonitorService) CheckDBConnection(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return err
	}
	if hc, ok := s.readings.(interface{ HealthCheck(context.Context) error }); ok && any(s.readings) != any(s.repo) {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// ListSummaries строит сводку по всем трансформаторам: последняя температура, средняя за 24 часа, статус
func (s *MonitorService) ListSummaries(ctx context.Context) ([]domain.SummaryRow, error) {
	now := s.now()

	entities, err := s.repo.ListTransformers(ctx)
	if err != nil {
		s.logger.Error("[MonitorService] Failed to list transformers", zap.Error(err))
		return nil, err
	}

	latest := make(map[string]float64, len(entities))
	averages := make(map[string]*float64, len(entities))
	for _, e := range entities {
		reading, err := s.readings.GetLatestReading(ctx, e.ID, now)
		if err != nil {
			return nil, fmt.Errorf("latest reading for %s: %w", e.ID, err)
		}
		if reading != nil && reading.Valid() {
			latest[e.ID] = reading.TempC
		}

		day, err := s.readings.GetReadings(ctx, e.ID, now.Add(-summaryWindow), now)
		if err != nil {
			return nil, fmt.Errorf("readings for %s: %w", e.ID, err)
		}
		avg, err := analytics.RollingAverage(day, summaryWindow, now)
		if err != nil {
			return nil, err
		}
		averages[e.ID] = avg
	}

	rows := analytics.Project(entities, latest)
	for i := range rows {
		rows[i].AvgTemp = averages[rows[i].ID]
	}
	return rows, nil
}

// Summaries отдаёт зафиксированную сводку (до первой фиксации читает напрямую), с фильтром и сортировкой.
// Пустой sortKey оставляет порядок хранилища.
func (s *MonitorService) Summaries(ctx context.Context, query, sortKey, order string) ([]domain.SummaryRow, error) {
	var key analytics.SortKey
	if sortKey != "" {
		k, err := analytics.ParseSortKey(sortKey)
		if err != nil {
			return nil, err
		}
		key = k
	}
	dir, err := analytics.ParseSortOrder(order)
	if err != nil {
		return nil, err
	}

	var rows []domain.SummaryRow
	if snap, ok := s.summaries.Snapshot(); ok {
		rows = snap.Value
	} else {
		rows, err = s.ListSummaries(ctx)
		if err != nil {
			return nil, err
		}
	}

	rows = analytics.FilterByID(rows, query)
	if key != "" {
		rows = analytics.SortRows(rows, key, dir)
	}
	return rows, nil
}

// RefreshSummaries синхронно перестраивает сводку; false, если результат устарел до фиксации
func (s *MonitorService) RefreshSummaries(ctx context.Context) (bool, error) {
	return s.summaries.Refresh(ctx)
}

// TransformerDetail данные панели: график за окно, последняя температура, средняя и пик за 24 часа
func (s *MonitorService) TransformerDetail(ctx context.Context, id, window string, maxPoints int) (*domain.TransformerDetail, error) {
	if window == "" {
		window = string(domain.WindowDay)
	}
	span, err := analytics.ParseSpan(window)
	if err != nil {
		return nil, err
	}
	if maxPoints <= 0 {
		return nil, analytics.ErrInvalidMaxPoints
	}

	transformer, err := s.getTransformer(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fetchSpan := span
	if fetchSpan < summaryWindow {
		fetchSpan = summaryWindow
	}

	readings, err := s.readings.GetReadings(ctx, id, now.Add(-fetchSpan), now)
	if err != nil {
		s.logger.Error("[MonitorService] Failed to get readings",
			zap.String("transformer_id", id),
			zap.Error(err))
		return nil, err
	}

	points, err := analytics.Downsample(readings, maxPoints, span, now)
	if err != nil {
		return nil, err
	}
	metrics.ChartPointsReturned.Observe(float64(len(points)))

	avg, err := analytics.RollingAverage(readings, summaryWindow, now)
	if err != nil {
		return nil, err
	}
	peak, err := analytics.RollingPeak(readings, summaryWindow, now)
	if err != nil {
		return nil, err
	}

	latest := analytics.LatestValidReading(readings, now)
	if latest == nil {
		// последнее измерение может быть старше окна графика
		latest, err = s.readings.GetLatestReading(ctx, id, now)
		if err != nil {
			return nil, err
		}
	}

	var latestTemp *float64
	if latest != nil {
		t := latest.TempC
		latestTemp = &t
	}

	start, end := now.Add(-span).UnixMilli(), now.UnixMilli()
	return &domain.TransformerDetail{
		Transformer: *transformer,
		Window:      window,
		ChartStart:  start,
		ChartEnd:    end,
		Ticks:       analytics.GenerateTicks(start, end, analytics.DefaultTickCount),
		Points:      points,
		Latest:      latest,
		AvgTemp24h:  avg,
		PeakTemp24h: peak,
		Status:      analytics.StatusFor(latestTemp),
		Health:      analytics.HealthFor(latestTemp),
	}, nil
}

// Readings сырые измерения трансформатора за [start, end]
func (s *MonitorService) Readings(ctx context.Context, id string, start, end time.Time) ([]domain.TemperatureReading, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	if _, err := s.getTransformer(ctx, id); err != nil {
		return nil, err
	}

	readings, err := s.readings.GetReadings(ctx, id, start, end)
	if err != nil {
		s.logger.Error("[MonitorService] Failed to get readings by time range",
			zap.String("transformer_id", id),
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err))
		return nil, err
	}
	return readings, nil
}

func validateReading(r domain.TemperatureReading) error {
	if strings.TrimSpace(r.TransformerID) == "" {
		return fmt.Errorf("%w: missing transformer id", ErrInvalidReading)
	}
	if !r.Valid() {
		return fmt.Errorf("%w: timestamp and finite temperature required", ErrInvalidReading)
	}
	return nil
}

// IngestReading сохраняет одно измерение
func (s *MonitorService) IngestReading(ctx context.Context, reading domain.TemperatureReading) error {
	if err := ctx.Err(); err != nil {
		s.logger.Warn("[MonitorService] Ingest cancelled by context",
			zap.String("transformer_id", reading.TransformerID))
		return err
	}
	if err := validateReading(reading); err != nil {
		return err
	}
	if _, err := s.getTransformer(ctx, reading.TransformerID); err != nil {
		return err
	}

	if err := s.readings.SaveReadings(ctx, []domain.TemperatureReading{reading}); err != nil {
		s.logger.Error("[MonitorService] Failed to save reading",
			zap.String("transformer_id", reading.TransformerID),
			zap.Error(err))
		return err
	}
	return nil
}

// IngestBatch проверяет все измерения и сохраняет их одной операцией
func (s *MonitorService) IngestBatch(ctx context.Context, readings []domain.TemperatureReading) (int, error) {
	for i, r := range readings {
		if err := validateReading(r); err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
	}
	if err := s.ensureTransformers(ctx, readings); err != nil {
		return 0, err
	}
	if err := s.save(ctx, readings); err != nil {
		return 0, err
	}
	return len(readings), nil
}

// RecordInspection сохраняет результат полевого осмотра
func (s *MonitorService) RecordInspection(ctx context.Context, inspection domain.Inspection) (*domain.Inspection, error) {
	switch {
	case strings.TrimSpace(inspection.TransformerID) == "":
		return nil, fmt.Errorf("%w: missing transformer id", ErrInvalidInspection)
	case strings.TrimSpace(inspection.InspectorName) == "":
		return nil, fmt.Errorf("%w: missing inspector name", ErrInvalidInspection)
	case !inspection.Condition.Valid():
		return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalidInspection, inspection.Condition)
	}
	if _, err := time.Parse(dateLayout, inspection.InspectionDate); err != nil {
		return nil, fmt.Errorf("%w: inspection date must be YYYY-MM-DD", ErrInvalidInspection)
	}

	if _, err := s.getTransformer(ctx, inspection.TransformerID); err != nil {
		return nil, err
	}

	inspection.ID = uuid.New()
	inspection.CreatedAt = s.now().UTC()

	if err := s.repo.SaveInspection(ctx, &inspection); err != nil {
		s.logger.Error("[MonitorService] Failed to save inspection",
			zap.String("transformer_id", inspection.TransformerID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("[MonitorService] Inspection recorded",
		zap.String("inspection_id", inspection.ID.String()),
		zap.String("transformer_id", inspection.TransformerID),
		zap.String("condition", string(inspection.Condition)))
	return &inspection, nil
}

// SimulateDay генерирует почасовые измерения за текущие сутки UTC для каждого трансформатора
func (s *MonitorService) SimulateDay(ctx context.Context) (int, error) {
	entities, err := s.repo.ListTransformers(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var readings []domain.TemperatureReading
	for _, e := range entities {
		readings = append(readings, s.generator.Day(e.ID, now)...)
	}

	if err := s.save(ctx, readings); err != nil {
		return 0, err
	}
	return len(readings), nil
}

// Backfill дозаполняет почасовые измерения от последнего сохранённого до текущего момента
func (s *MonitorService) Backfill(ctx context.Context) (int, error) {
	entities, err := s.repo.ListTransformers(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var readings []domain.TemperatureReading
	for _, e := range entities {
		last, err := s.readings.GetLatestReading(ctx, e.ID, now)
		if err != nil {
			return 0, fmt.Errorf("latest reading for %s: %w", e.ID, err)
		}
		var lastTime *time.Time
		if last != nil {
			lastTime = &last.Timestamp
		}
		readings = append(readings, s.generator.Backfill(e.ID, lastTime, now)...)
	}

	if err := s.save(ctx, readings); err != nil {
		return 0, err
	}

	s.logger.Info("[MonitorService] Backfill complete",
		zap.Int("readings", len(readings)),
		zap.Int("transformers", len(entities)))
	return len(readings), nil
}

// ImportCSV загружает выгрузку логгера из объектного хранилища и сохраняет разобранные измерения
func (s *MonitorService) ImportCSV(ctx context.Context, id, objectKey string) (*ingest.ImportResult, error) {
	if s.objects == nil {
		return nil, ErrImportsDisabled
	}
	if strings.TrimSpace(objectKey) == "" {
		return nil, fmt.Errorf("%w: missing object key", ErrInvalidReading)
	}

	if _, err := s.getTransformer(ctx, id); err != nil {
		return nil, err
	}

	body, err := s.objects.Open(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	readings, result, err := ingest.ParseCSV(body, id)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, readings); err != nil {
		return nil, err
	}

	s.logger.Info("[MonitorService] CSV imported",
		zap.String("transformer_id", id),
		zap.String("object_key", objectKey),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))
	return result, nil
}

// save сохраняет пачку и запрашивает внеочередное обновление сводки
func (s *MonitorService) save(ctx context.Context, readings []domain.TemperatureReading) error {
	if len(readings) == 0 {
		return nil
	}
	if err := s.readings.SaveReadings(ctx, readings); err != nil {
		s.logger.Error("[MonitorService] Failed to save readings",
			zap.Int("count", len(readings)),
			zap.Error(err))
		return err
	}
	s.summaries.Trigger()
	return nil
}

// ensureTransformers проверяет, что все трансформаторы пачки существуют; каждый id запрашивается один раз
func (s *MonitorService) ensureTransformers(ctx context.Context, readings []domain.TemperatureReading) error {
	seen := make(map[string]struct{})
	for _, r := range readings {
		if _, ok := seen[r.TransformerID]; ok {
			continue
		}
		seen[r.TransformerID] = struct{}{}
		if _, err := s.getTransformer(ctx, r.TransformerID); err != nil {
			return err
		}
	}
	return nil
}

func (s *MonitorService) getTransformer(ctx context.Context, id string) (*domain.Transformer, error) {
	t, err := s.repo.GetTransformer(ctx, id)
	if err != nil {
		s.logger.Error("[MonitorService] Failed to get transformer",
			zap.String("transformer_id", id),
			zap.Error(err))
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransformerNotFound, id)
	}
	return t, nil
}
