package analytics

import (
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
)

// DefaultTickCount количество подписей на оси времени графика
const DefaultTickCount = 6

// NormalizeTimestamp обрезает время до целой минуты и возвращает миллисекунды
func NormalizeTimestamp(t time.Time) int64 {
	return t.Truncate(time.Minute).UnixMilli()
}

// Downsample готовит не более maxPoints (+1) точек графика за окно [ref-span, ref].
//
// Измерения сортируются по времени, время обрезается до минуты, точки вне окна отбрасываются.
// Если точек больше maxPoints, берётся каждая stride-я, начиная с первой,
// где stride = ceil(n/maxPoints). Последняя точка окна всегда попадает в результат.
func Downsample(readings []domain.TemperatureReading, maxPoints int, span time.Duration, ref time.Time) ([]domain.ChartPoint, error) {
	if maxPoints <= 0 {
		return nil, ErrInvalidMaxPoints
	}
	start, end, err := windowBounds(span, ref)
	if err != nil {
		return nil, err
	}
	startMs, endMs := start.UnixMilli(), end.UnixMilli()

	sorted := sortedValid(readings)
	points := make([]domain.ChartPoint, 0, len(sorted))
	for _, r := range sorted {
		ts := NormalizeTimestamp(r.Timestamp)
		if ts < startMs || ts > endMs {
			continue
		}
		points = append(points, domain.ChartPoint{Timestamp: ts, TempC: r.TempC})
	}

	if len(points) <= maxPoints {
		return points, nil
	}

	return decimate(points, maxPoints), nil
}

// decimate прореживает отсортированные точки с фиксированным шагом и добавляет последнюю
func decimate(points []domain.ChartPoint, maxPoints int) []domain.ChartPoint {
	n := len(points)
	stride := (n + maxPoints - 1) / maxPoints

	out := make([]domain.ChartPoint, 0, maxPoints+1)
	for i := 0; i < n; i += stride {
		out = append(out, points[i])
	}

	last := points[n-1]
	if out[len(out)-1].Timestamp != last.Timestamp {
		out = append(out, last)
	}
	return out
}

// GenerateTicks равномерно распределяет count отметок на [start, end]
func GenerateTicks(start, end int64, count int) []int64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []int64{start}
	}

	interval := float64(end-start) / float64(count-1)
	ticks := make([]int64, count)
	for i := range ticks {
		ticks[i] = start + int64(float64(i)*interval)
	}
	ticks[count-1] = end
	return ticks
}
