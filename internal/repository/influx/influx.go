package influx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/config"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

const (
	backendLabel = "influx"
	measurement  = "transformer_temperature"
	idTag        = "transformer_id"
	tempField    = "temp_c"
)

// ReadingStore хранит временные ряды температур в InfluxDB v2
type ReadingStore struct {
	client influxdb2.Client
	org    string
	bucket string
	logger *zap.Logger
}

func NewReadingStore(ctx context.Context, cfg config.InfluxConfig, logger *zap.Logger) (*ReadingStore, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ok, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping influxdb: %w", err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("influxdb at %s is not ready", cfg.URL)
	}

	return &ReadingStore{
		client: client,
		org:    cfg.Org,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.DBQueryDuration.WithLabelValues(backendLabel, operation).Observe(time.Since(start).Seconds())
	}
}

// rangeQuery строит Flux-запрос за [start, end]; stop в Flux исключающий, поэтому сдвигается на 1ns
func rangeQuery(bucket, transformerID string, start, end time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", strconv.Quote(bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n",
		start.UTC().Format(time.RFC3339Nano),
		end.Add(time.Nanosecond).UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", strconv.Quote(measurement))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r.%s == %s)\n", idTag, strconv.Quote(transformerID))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._field == %s)\n", strconv.Quote(tempField))
	return b.String()
}

// latestQuery последнее измерение не позже now; глубина поиска ограничена lookback
func latestQuery(bucket, transformerID string, now time.Time, lookback time.Duration) string {
	return "import \"math\"\n" +
		rangeQuery(bucket, transformerID, now.Add(-lookback), now) +
		"  |> filter(fn: (r) => not math.isNaN(f: r._value))\n" +
		"  |> last()\n"
}

// latestLookback насколько далеко назад ищется последнее измерение
const latestLookback = 365 * 24 * time.Hour

func (s *ReadingStore) GetReadings(ctx context.Context, transformerID string, start, end time.Time) ([]domain.TemperatureReading, error) {
	defer observe("get_readings")()

	query := rangeQuery(s.bucket, transformerID, start, end) + "  |> sort(columns: [\"_time\"])\n"
	return s.collect(ctx, transformerID, query)
}

// GetLatestReading возвращает самое свежее измерение не позже now, либо (nil, nil)
func (s *ReadingStore) GetLatestReading(ctx context.Context, transformerID string, now time.Time) (*domain.TemperatureReading, error) {
	defer observe("get_latest_reading")()

	readings, err := s.collect(ctx, transformerID, latestQuery(s.bucket, transformerID, now, latestLookback))
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	latest := readings[len(readings)-1]
	return &latest, nil
}

func (s *ReadingStore) collect(ctx context.Context, transformerID, query string) ([]domain.TemperatureReading, error) {
	result, err := s.client.QueryAPI(s.org).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer result.Close()

	var readings []domain.TemperatureReading
	for result.Next() {
		reading, ok := toReading(transformerID, result)
		if !ok {
			s.logger.Warn("skipping influx record with unexpected value",
				zap.String("transformer_id", transformerID),
				zap.Any("value", result.Record().Value()))
			continue
		}
		readings = append(readings, reading)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("error iterating influx result: %w", result.Err())
	}

	return readings, nil
}

func toReading(transformerID string, result *api.QueryTableResult) (domain.TemperatureReading, bool) {
	record := result.Record()

	var temp float64
	switch v := record.Value().(type) {
	case float64:
		temp = v
	case int64:
		temp = float64(v)
	default:
		return domain.TemperatureReading{}, false
	}

	return domain.TemperatureReading{
		TransformerID: transformerID,
		Timestamp:     record.Time(),
		TempC:         temp,
	}, true
}

func (s *ReadingStore) SaveReadings(ctx context.Context, readings []domain.TemperatureReading) error {
	if len(readings) == 0 {
		return nil
	}
	defer observe("save_readings")()

	points := make([]*write.Point, 0, len(readings))
	for _, r := range readings {
		points = append(points, toPoint(r))
	}

	if err := s.client.WriteAPIBlocking(s.org, s.bucket).WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write readings: %w", err)
	}
	return nil
}

func toPoint(r domain.TemperatureReading) *write.Point {
	return influxdb2.NewPointWithMeasurement(measurement).
		AddTag(idTag, r.TransformerID).
		AddField(tempField, r.TempC).
		SetTime(r.Timestamp.UTC())
}

func (s *ReadingStore) HealthCheck(ctx context.Context) error {
	defer observe("health_check")()

	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influxdb is not ready")
	}
	return nil
}

func (s *ReadingStore) Close() {
	s.client.Close()
}
