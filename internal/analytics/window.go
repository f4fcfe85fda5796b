package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/pkg/utils"
)

var (
	ErrInvalidWindow     = errors.New("window duration must be positive")
	ErrInvalidMaxPoints  = errors.New("max points must be positive")
	ErrUnknownTimeWindow = errors.New("unknown time window")
)

// ParseSpan принимает именованное окно (1d, 1w, 1m) или ISO-8601 длительность (PT6H, P3D)
func ParseSpan(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if w := domain.TimeWindow(s); w.Valid() {
		return w.Duration(), nil
	}
	if !strings.HasPrefix(strings.ToUpper(s), "P") {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimeWindow, s)
	}

	d, err := utils.ParseISODuration(strings.ToUpper(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownTimeWindow, err)
	}
	if d <= 0 {
		return 0, ErrInvalidWindow
	}
	return d, nil
}

// windowBounds возвращает [ref-window, ref]
func windowBounds(window time.Duration, ref time.Time) (time.Time, time.Time, error) {
	if window <= 0 {
		return time.Time{}, time.Time{}, ErrInvalidWindow
	}
	return ref.Add(-window), ref, nil
}

// sortedValid возвращает копию корректных измерений, стабильно отсортированную по времени
func sortedValid(readings []domain.TemperatureReading) []domain.TemperatureReading {
	out := make([]domain.TemperatureReading, 0, len(readings))
	for _, r := range readings {
		if r.Valid() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
