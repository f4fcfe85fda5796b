package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"RFC3339", "2025-07-01T10:15:00Z", time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)},
		{"fractional seconds", "2025-07-01T10:15:30.250Z", time.Date(2025, 7, 1, 10, 15, 30, 250000000, time.UTC)},
		{"offset", "2025-07-01T03:15:00-07:00", time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)},
		{"logger export", "Jul 01 03:15:00 -0700 2025", time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)},
		{"logger export with zone name", "Jul 01 03:15:00 PDT -0700 2025", time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)},
		{"upper-case month", "JUL 01 03:15:00 -0700 2025", time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)},
		{"upper-case month with zone name", "JUL 01 03:15:00 PDT -0700 2025", time.Date(2025, 7, 1, 10, 15, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(result), "got %s", result)
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, s := range []string{"", "   ", "yesterday", "Jul 01 2025"} {
		_, err := ParseTimestamp(s)
		assert.Error(t, err, s)
	}
}

func TestParseISODuration(t *testing.T) {
	d, err := ParseISODuration("PT6H")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, d)

	d, err = ParseISODuration("P3D")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseISODuration("six hours")
	assert.Error(t, err)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 65.13, RoundTo(65.1349, 2))
	assert.Equal(t, 65.14, RoundTo(65.135, 2))
	assert.Equal(t, -1.5, RoundTo(-1.499, 2))
}

func TestNewUUID(t *testing.T) {
	id := NewUUID()
	assert.NotEmpty(t, id.String())
	assert.True(t, IsValidUUID(id.String()))
	assert.False(t, IsValidUUID("XFMR-0001"))
}
