package analytics

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
)

// evenlySpaced строит n измерений с шагом step, последнее ровно в end
func evenlySpaced(n int, step time.Duration, end time.Time) []domain.TemperatureReading {
	readings := make([]domain.TemperatureReading, n)
	for i := range readings {
		readings[i] = domain.TemperatureReading{
			Timestamp: end.Add(-time.Duration(n-1-i) * step),
			TempC:     float64(i),
		}
	}
	return readings
}

func TestDownsample_DayOfThousandReadings(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	readings := evenlySpaced(1000, 86400*time.Millisecond, ref)

	points, err := Downsample(readings, 50, 24*time.Hour, ref)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(points), 50)
	assert.LessOrEqual(t, len(points), 51)

	// шаг 20: индексы 0, 20, ..., 980, затем принудительно 999
	assert.Equal(t, NormalizeTimestamp(readings[0].Timestamp), points[0].Timestamp)
	assert.Equal(t, readings[0].TempC, points[0].TempC)
	assert.Equal(t, 20.0, points[1].TempC)
	assert.Equal(t, 980.0, points[49].TempC)
	assert.Equal(t, NormalizeTimestamp(readings[999].Timestamp), points[len(points)-1].Timestamp)
	assert.Equal(t, 999.0, points[len(points)-1].TempC)
}

func TestDownsample_UnderBudgetReturnsAllNormalized(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	readings := []domain.TemperatureReading{
		{Timestamp: ref.Add(-10*time.Minute + 42*time.Second + 500*time.Millisecond), TempC: 2},
		{Timestamp: ref.Add(-20*time.Minute + 5*time.Second), TempC: 1},
	}

	points, err := Downsample(readings, 10, time.Hour, ref)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, ref.Add(-20*time.Minute).UnixMilli(), points[0].Timestamp)
	assert.Equal(t, ref.Add(-10*time.Minute).UnixMilli(), points[1].Timestamp)
	assert.Equal(t, 1.0, points[0].TempC)
	assert.Equal(t, 2.0, points[1].TempC)
}

func TestDownsample_StableForEqualTimestamps(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	ts := ref.Add(-time.Minute)
	readings := []domain.TemperatureReading{
		{Timestamp: ts, TempC: 1},
		{Timestamp: ts, TempC: 2},
		{Timestamp: ts, TempC: 3},
	}

	points, err := Downsample(readings, 5, time.Hour, ref)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{points[0].TempC, points[1].TempC, points[2].TempC})
}

func TestDownsample_WindowFiltering(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	readings := []domain.TemperatureReading{
		{Timestamp: ref.Add(-2 * time.Hour), TempC: 1}, // до окна
		{Timestamp: ref.Add(-time.Hour), TempC: 2},     // ровно на границе
		{Timestamp: ref.Add(-30 * time.Minute), TempC: 3},
		{Timestamp: ref, TempC: 4},                      // ровно на границе
		{Timestamp: ref.Add(2 * time.Minute), TempC: 5}, // после окна
	}

	points, err := Downsample(readings, 10, time.Hour, ref)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 2.0, points[0].TempC)
	assert.Equal(t, 4.0, points[2].TempC)
}

func TestDownsample_LastPointMustBeInsideWindow(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	readings := evenlySpaced(10, time.Minute, ref.Add(-time.Minute))
	// самое свежее измерение датировано будущим и в график не попадает
	readings = append(readings, domain.TemperatureReading{Timestamp: ref.Add(time.Hour), TempC: 1000})

	points, err := Downsample(readings, 3, time.Hour, ref)
	require.NoError(t, err)

	// 10 точек в окне, шаг 4: индексы 0, 4, 8 и принудительно 9
	require.Len(t, points, 4)
	assert.Equal(t, 9.0, points[3].TempC)
	for _, p := range points {
		assert.LessOrEqual(t, p.Timestamp, ref.UnixMilli())
	}
}

func TestDownsample_NoAppendWhenLastAlreadySelected(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	readings := evenlySpaced(9, time.Minute, ref)

	points, err := Downsample(readings, 3, time.Hour, ref)
	require.NoError(t, err)

	// шаг 3: индексы 0, 3, 6; индекс 8 добавлен
	require.Len(t, points, 4)

	readings = evenlySpaced(7, time.Minute, ref)
	points, err = Downsample(readings, 3, time.Hour, ref)
	require.NoError(t, err)

	// шаг 3: индексы 0, 3, 6 и последний уже выбран
	require.Len(t, points, 3)
	assert.Equal(t, 6.0, points[2].TempC)
}

func TestDownsample_LastComparedOnNormalizedTimestamp(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	readings := evenlySpaced(7, time.Minute, ref.Add(-time.Minute))
	// в ту же минуту, что и выбранная шагом точка с индексом 6
	readings = append(readings, domain.TemperatureReading{Timestamp: ref.Add(-time.Minute + 30*time.Second), TempC: 42})

	points, err := Downsample(readings, 3, time.Hour, ref)
	require.NoError(t, err)

	// 8 точек, шаг 3: индексы 0, 3, 6; минута последней уже на графике
	require.Len(t, points, 3)
	assert.Equal(t, 6.0, points[2].TempC)
	assert.Equal(t, ref.Add(-time.Minute).UnixMilli(), points[2].Timestamp)
}

func TestDownsample_InvalidInput(t *testing.T) {
	ref := time.Now()
	readings := []domain.TemperatureReading{{Timestamp: ref, TempC: 1}}

	_, err := Downsample(readings, 0, time.Hour, ref)
	assert.ErrorIs(t, err, ErrInvalidMaxPoints)

	_, err = Downsample(readings, 10, 0, ref)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestDownsample_EmptyAndMalformed(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)

	points, err := Downsample(nil, 10, time.Hour, ref)
	require.NoError(t, err)
	assert.Empty(t, points)

	points, err = Downsample([]domain.TemperatureReading{
		{Timestamp: ref, TempC: math.NaN()},
		{TempC: 12},
	}, 10, time.Hour, ref)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestDownsample_Properties(t *testing.T) {
	ref := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(400)
		maxPoints := 1 + rng.Intn(60)
		span := time.Duration(1+rng.Intn(48)) * time.Hour

		readings := make([]domain.TemperatureReading, n)
		for i := range readings {
			offset := time.Duration(rng.Int63n(int64(72 * time.Hour)))
			readings[i] = domain.TemperatureReading{
				Timestamp: ref.Add(-60 * time.Hour).Add(offset),
				TempC:     rng.Float64() * 140,
			}
		}

		points, err := Downsample(readings, maxPoints, span, ref)
		require.NoError(t, err)

		assert.LessOrEqual(t, len(points), maxPoints+1)

		for i := 1; i < len(points); i++ {
			assert.LessOrEqual(t, points[i-1].Timestamp, points[i].Timestamp)
		}

		// последнее измерение окна всегда последнее на графике
		var lastInWindow *int64
		for _, r := range readings {
			ts := NormalizeTimestamp(r.Timestamp)
			if ts < ref.Add(-span).UnixMilli() || ts > ref.UnixMilli() {
				continue
			}
			if lastInWindow == nil || ts > *lastInWindow {
				v := ts
				lastInWindow = &v
			}
		}
		if lastInWindow != nil {
			require.NotEmpty(t, points)
			assert.Equal(t, *lastInWindow, points[len(points)-1].Timestamp)
		} else {
			assert.Empty(t, points)
		}

		again, err := Downsample(readings, maxPoints, span, ref)
		require.NoError(t, err)
		assert.Equal(t, points, again)
	}
}

func TestGenerateTicks(t *testing.T) {
	ticks := GenerateTicks(0, 1000, 6)
	assert.Equal(t, []int64{0, 200, 400, 600, 800, 1000}, ticks)

	assert.Equal(t, []int64{5}, GenerateTicks(5, 10, 1))
	assert.Nil(t, GenerateTicks(5, 10, 0))
}
