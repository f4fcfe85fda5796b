package simulator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemperature_Bounds(t *testing.T) {
	g := NewGenerator(1)

	for hour := 0; hour < 24; hour++ {
		temp := g.Temperature(DayProfile, hour)
		assert.GreaterOrEqual(t, temp, baseMin-noiseSpread)
		assert.LessOrEqual(t, temp, baseMin+baseSpread+DayProfile.Amplitude+noiseSpread)
		// две цифры после запятой
		assert.InDelta(t, temp, math.Round(temp*100)/100, 1e-9)
	}
}

func TestTemperature_PeakIsHotterThanTrough(t *testing.T) {
	g := NewGenerator(7)

	var peak, trough float64
	const n = 200
	for i := 0; i < n; i++ {
		peak += g.Temperature(DayProfile, DayProfile.PeakHour)
		trough += g.Temperature(DayProfile, (DayProfile.PeakHour+12)%24)
	}
	// разница средних близка к амплитуде
	assert.InDelta(t, DayProfile.Amplitude, (peak-trough)/n, 5)
}

func TestDay(t *testing.T) {
	g := NewGenerator(1)
	now := time.Date(2025, 7, 1, 15, 42, 0, 0, time.FixedZone("PDT", -7*3600))

	readings := g.Day("XFMR-0001", now)
	require.Len(t, readings, 24)

	midnight := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range readings {
		assert.Equal(t, "XFMR-0001", r.TransformerID)
		assert.True(t, midnight.Add(time.Duration(i)*time.Hour).Equal(r.Timestamp), "index %d", i)
		assert.True(t, r.Valid())
	}
}

func TestBackfill_FromLastReading(t *testing.T) {
	g := NewGenerator(1)
	now := time.Date(2025, 7, 1, 12, 30, 0, 0, time.UTC)
	last := now.Add(-5*time.Hour - 10*time.Minute)

	readings := g.Backfill("XFMR-0001", &last, now)
	require.Len(t, readings, 5)
	assert.True(t, last.Add(time.Hour).Equal(readings[0].Timestamp))
	assert.True(t, last.Add(5*time.Hour).Equal(readings[4].Timestamp))
	assert.False(t, readings[4].Timestamp.After(now))
}

func TestBackfill_WithoutHistory(t *testing.T) {
	g := NewGenerator(1)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	readings := g.Backfill("XFMR-0001", nil, now)
	assert.Len(t, readings, 7*24)
	assert.True(t, now.Equal(readings[len(readings)-1].Timestamp))
}

func TestBackfill_UpToDate(t *testing.T) {
	g := NewGenerator(1)
	now := time.Now()
	last := now.Add(-30 * time.Minute)

	assert.Empty(t, g.Backfill("XFMR-0001", &last, now))

	future := now.Add(time.Hour)
	assert.Empty(t, g.Backfill("XFMR-0001", &future, now))
}
