package analytics

import (
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
)

// inWindow выбирает корректные измерения с start <= ts <= end
func inWindow(readings []domain.TemperatureReading, start, end time.Time) []domain.TemperatureReading {
	var out []domain.TemperatureReading
	for _, r := range readings {
		if !r.Valid() || r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// RollingAverage среднее tempC за окно [ref-window, ref].
// nil означает отсутствие данных, а не ноль.
func RollingAverage(readings []domain.TemperatureReading, window time.Duration, ref time.Time) (*float64, error) {
	start, end, err := windowBounds(window, ref)
	if err != nil {
		return nil, err
	}

	recent := inWindow(readings, start, end)
	if len(recent) == 0 {
		return nil, nil
	}

	var sum float64
	for _, r := range recent {
		sum += r.TempC
	}
	avg := sum / float64(len(recent))
	return &avg, nil
}

// RollingPeak максимум tempC за окно [ref-window, ref], nil если данных нет
func RollingPeak(readings []domain.TemperatureReading, window time.Duration, ref time.Time) (*float64, error) {
	start, end, err := windowBounds(window, ref)
	if err != nil {
		return nil, err
	}

	recent := inWindow(readings, start, end)
	if len(recent) == 0 {
		return nil, nil
	}

	peak := recent[0].TempC
	for _, r := range recent[1:] {
		if r.TempC > peak {
			peak = r.TempC
		}
	}
	return &peak, nil
}

// LatestValidReading последнее измерение не позже ref.
// Измерения "из будущего" (рассинхрон часов) игнорируются; при равных метках побеждает последнее.
func LatestValidReading(readings []domain.TemperatureReading, ref time.Time) *domain.TemperatureReading {
	sorted := sortedValid(readings)

	for i := len(sorted) - 1; i >= 0; i-- {
		if !sorted[i].Timestamp.After(ref) {
			latest := sorted[i]
			return &latest
		}
	}
	return nil
}
