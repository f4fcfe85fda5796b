package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_LoggerExport(t *testing.T) {
	data := strings.Join([]string{
		`"#","Start Time","0001583 (ID#1532162) Average (Deg C)"`,
		`1,"Jul 01 00:15:00 PDT -0700 2025",61.25`,
		`2,"Jul 01 00:30:00 PDT -0700 2025",62.5`,
		`3,"not a date",63`,
		`4,"Jul 01 01:00:00 PDT -0700 2025",`,
	}, "\n")

	readings, result, err := ParseCSV(strings.NewReader(data), "XFMR-2180")
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "XFMR-2180", readings[0].TransformerID)
	assert.True(t, time.Date(2025, 7, 1, 7, 15, 0, 0, time.UTC).Equal(readings[0].Timestamp))
	assert.Equal(t, 61.25, readings[0].TempC)
	assert.Equal(t, 62.5, readings[1].TempC)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "line 4")
	assert.Contains(t, result.Errors[1], "line 5")
}

func TestParseCSV_SimpleFormat(t *testing.T) {
	data := "timestamp,tempC\n2025-07-01T12:00:00Z,88.1\n2025-07-01T13:00:00+02:00,NaN\n"

	readings, result, err := ParseCSV(strings.NewReader(data), "XFMR-0001")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 88.1, readings[0].TempC)
	assert.Equal(t, 1, result.Failed)
}

func TestParseCSV_MissingColumns(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("time,value\n"), "XFMR-0001")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, _, err = ParseCSV(strings.NewReader("timestamp,value\n"), "XFMR-0001")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseCSV_Empty(t *testing.T) {
	readings, result, err := ParseCSV(strings.NewReader(""), "XFMR-0001")
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.Equal(t, 0, result.Total)
}
