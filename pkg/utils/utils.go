package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/relvacode/iso8601"
	"github.com/shopspring/decimal"
	"github.com/sosodev/duration"
)

// loggerLayout формат времени в выгрузках полевых логгеров: "Jul 01 00:15:00 -0700 2025"
const loggerLayout = "Jan 02 15:04:05 -0700 2006"

func NewUUID() uuid.UUID {
	return uuid.New()
}

func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ParseTimestamp разбирает ISO-8601 (в том числе без секунд и зоны) или формат выгрузки логгера.
// Аббревиатура зоны вроде " PDT" перед смещением отбрасывается.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := iso8601.ParseString(s); err == nil {
		return t, nil
	}

	fields := strings.Fields(s)
	cleaned := make([]string, 0, len(fields))
	for i, f := range fields {
		// имя зоны отбрасывается, только если за ним идёт числовое смещение
		if i+1 < len(fields) && isZoneAbbreviation(f) && isNumericOffset(fields[i+1]) {
			continue
		}
		cleaned = append(cleaned, f)
	}

	t, err := time.Parse(loggerLayout, strings.Join(cleaned, " "))
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
	}
	return t, nil
}

func isZoneAbbreviation(f string) bool {
	if len(f) < 3 || len(f) > 5 {
		return false
	}
	for _, r := range f {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// isNumericOffset распознаёт смещение вида -0700 или +0530
func isNumericOffset(f string) bool {
	if len(f) != 5 || (f[0] != '+' && f[0] != '-') {
		return false
	}
	for _, r := range f[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseISODuration разбирает ISO-8601 длительность ("PT6H", "P3D")
func ParseISODuration(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d.ToTimeDuration(), nil
}

// RoundTo округляет значение до places знаков после запятой
func RoundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
