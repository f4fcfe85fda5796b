package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/pkg/utils"
)

var ErrInvalidPayload = errors.New("invalid reading payload")

// ReadingPayload измерение в формате обмена (HTTP, AMQP, MQTT)
type ReadingPayload struct {
	TransformerID string   `json:"transformerId"`
	Timestamp     string   `json:"timestamp"`
	TempC         *float64 `json:"tempC"`
}

// DecodeReadings разбирает одно измерение или массив измерений.
// Пустой transformerId заменяется на defaultID, отсутствующее время на now.
func DecodeReadings(body []byte, defaultID string, now time.Time) ([]domain.TemperatureReading, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	var payloads []ReadingPayload
	if body[0] == '[' {
		if err := json.Unmarshal(body, &payloads); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	} else {
		var p ReadingPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		payloads = append(payloads, p)
	}

	readings := make([]domain.TemperatureReading, 0, len(payloads))
	for i, p := range payloads {
		r, err := p.toReading(defaultID, now)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidPayload, i, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func (p ReadingPayload) toReading(defaultID string, now time.Time) (domain.TemperatureReading, error) {
	id := p.TransformerID
	if id == "" {
		id = defaultID
	}
	if id == "" {
		return domain.TemperatureReading{}, errors.New("missing transformerId")
	}
	if p.TempC == nil {
		return domain.TemperatureReading{}, errors.New("missing tempC")
	}

	ts := now
	if p.Timestamp != "" {
		parsed, err := utils.ParseTimestamp(p.Timestamp)
		if err != nil {
			return domain.TemperatureReading{}, err
		}
		ts = parsed
	}

	return domain.TemperatureReading{
		TransformerID: id,
		Timestamp:     ts.UTC(),
		TempC:         *p.TempC,
	}, nil
}
