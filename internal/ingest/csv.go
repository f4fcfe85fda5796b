package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/pkg/utils"
)

var ErrMissingColumn = errors.New("missing required csv column")

// maxReportedErrors ограничивает число сообщений об ошибках в ImportResult
const maxReportedErrors = 20

// ImportResult итог разбора выгрузки
type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

func (r *ImportResult) fail(line int, err error) {
	r.Failed++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, fmt.Sprintf("line %d: %v", line, err))
	}
}

// ParseCSV разбирает выгрузку логгера или простой CSV с колонками timestamp,tempC.
// Колонка времени: "timestamp" или "Start Time"; температуры: "tempC" или любая, содержащая "(Deg C)".
// Строки с ошибками пропускаются и учитываются в ImportResult.
func ParseCSV(r io.Reader, transformerID string) ([]domain.TemperatureReading, *ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, result, nil
		}
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	timeIdx, tempIdx, err := locateColumns(headers)
	if err != nil {
		return nil, nil, err
	}

	var readings []domain.TemperatureReading
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		result.Total++
		if err != nil {
			result.fail(line, err)
			continue
		}

		reading, err := parseRecord(record, timeIdx, tempIdx)
		if err != nil {
			result.fail(line, err)
			continue
		}
		reading.TransformerID = transformerID
		readings = append(readings, reading)
		result.Imported++
	}

	return readings, result, nil
}

func locateColumns(headers []string) (int, int, error) {
	timeIdx, tempIdx := -1, -1
	for i, h := range headers {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case timeIdx < 0 && (name == "timestamp" || name == "start time"):
			timeIdx = i
		case tempIdx < 0 && (name == "tempc" || strings.Contains(name, "(deg c)")):
			tempIdx = i
		}
	}

	if timeIdx < 0 {
		return 0, 0, fmt.Errorf("%w: timestamp", ErrMissingColumn)
	}
	if tempIdx < 0 {
		return 0, 0, fmt.Errorf("%w: temperature", ErrMissingColumn)
	}
	return timeIdx, tempIdx, nil
}

func parseRecord(record []string, timeIdx, tempIdx int) (domain.TemperatureReading, error) {
	if timeIdx >= len(record) || tempIdx >= len(record) {
		return domain.TemperatureReading{}, fmt.Errorf("short row: %d fields", len(record))
	}

	ts, err := utils.ParseTimestamp(record[timeIdx])
	if err != nil {
		return domain.TemperatureReading{}, err
	}

	raw := strings.TrimSpace(record[tempIdx])
	temp, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.TemperatureReading{}, fmt.Errorf("invalid temperature %q", raw)
	}

	reading := domain.TemperatureReading{Timestamp: ts.UTC(), TempC: temp}
	if !reading.Valid() {
		return domain.TemperatureReading{}, fmt.Errorf("non-finite temperature %q", raw)
	}
	return reading, nil
}
