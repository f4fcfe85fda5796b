package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTemperatureReading_Valid(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		reading  TemperatureReading
		expected bool
	}{
		{"regular", TemperatureReading{Timestamp: now, TempC: 65.2}, true},
		{"zero temperature", TemperatureReading{Timestamp: now, TempC: 0}, true},
		{"missing timestamp", TemperatureReading{TempC: 40}, false},
		{"NaN", TemperatureReading{Timestamp: now, TempC: math.NaN()}, false},
		{"+Inf", TemperatureReading{Timestamp: now, TempC: math.Inf(1)}, false},
		{"-Inf", TemperatureReading{Timestamp: now, TempC: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reading.Valid())
		})
	}
}

func TestTimeWindow(t *testing.T) {
	now := time.Date(2025, 7, 31, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, 24*time.Hour, WindowDay.Duration())
	assert.Equal(t, 7*24*time.Hour, WindowWeek.Duration())
	assert.Equal(t, 30*24*time.Hour, WindowMonth.Duration())

	start, end := WindowWeek.Bounds(now)
	assert.Equal(t, now, end)
	assert.Equal(t, now.AddDate(0, 0, -7), start)

	assert.False(t, TimeWindow("2y").Valid())
	assert.Zero(t, TimeWindow("2y").Duration())
}

func TestInspectionCondition_Valid(t *testing.T) {
	assert.True(t, ConditionBlockedAccess.Valid())
	assert.True(t, InspectionCondition("Good").Valid())
	assert.False(t, InspectionCondition("good").Valid())
	assert.False(t, InspectionCondition("").Valid())
}
