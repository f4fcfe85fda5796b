package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// OverheatThreshold температура (°C), выше которой трансформатор считается перегретым
const OverheatThreshold = 110.0

// TemperatureReading представляет одно измерение температуры трансформатора
type TemperatureReading struct {
	TransformerID string    `json:"transformerId,omitempty" db:"transformer_id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	TempC         float64   `json:"tempC" db:"temp_c"`
}

// Valid сообщает, пригодно ли измерение для агрегации: есть время и конечное значение
func (r TemperatureReading) Valid() bool {
	return !r.Timestamp.IsZero() && !math.IsNaN(r.TempC) && !math.IsInf(r.TempC, 0)
}

// Transformer описывает физический трансформатор
type Transformer struct {
	ID      string `json:"id" db:"id"`
	Type    string `json:"type" db:"type"`
	KVA     int    `json:"kVA" db:"kva"`
	MfgDate string `json:"mfgDate" db:"mfg_date"` // YYYY-MM-DD
}

// ChartPoint точка графика: время в миллисекундах и температура
type ChartPoint struct {
	Timestamp int64   `json:"timestamp"`
	TempC     float64 `json:"tempC"`
}

type Status string

const (
	StatusUnknown     Status = "Unknown"
	StatusNormal      Status = "Normal"
	StatusOverheating Status = "Overheating"
)

// SummaryRow строка сводной таблицы
type SummaryRow struct {
	Transformer
	LatestTemp *float64 `json:"latestTemp,omitempty"`
	AvgTemp    *float64 `json:"avgTemp,omitempty"`
	// Status отображаемый статус: отсутствие данных не считается перегревом
	Status Status `json:"status"`
	// Health различает "нет данных" и "норма"
	Health Status `json:"health"`
}

// TransformerDetail данные для панели выбранного трансформатора
type TransformerDetail struct {
	Transformer Transformer         `json:"transformer"`
	Window      string              `json:"window"`
	ChartStart  int64               `json:"chartStart"`
	ChartEnd    int64               `json:"chartEnd"`
	Ticks       []int64             `json:"ticks"`
	Points      []ChartPoint        `json:"points"`
	Latest      *TemperatureReading `json:"latest,omitempty"`
	AvgTemp24h  *float64            `json:"avgTemp24h,omitempty"`
	PeakTemp24h *float64            `json:"peakTemp24h,omitempty"`
	Status      Status              `json:"status"`
	Health      Status              `json:"health"`
}

// InspectionCondition результат осмотра
type InspectionCondition string

const (
	ConditionGood          InspectionCondition = "Good"
	ConditionLeaking       InspectionCondition = "Leaking"
	ConditionDamaged       InspectionCondition = "Damaged"
	ConditionBlockedAccess InspectionCondition = "Blocked Access"
)

func (c InspectionCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionLeaking, ConditionDamaged, ConditionBlockedAccess:
		return true
	}
	return false
}

// Inspection запись о полевом осмотре трансформатора
type Inspection struct {
	ID             uuid.UUID           `json:"id" db:"id"`
	TransformerID  string              `json:"transformerId" db:"transformer_id"`
	InspectionDate string              `json:"inspectionDate" db:"inspection_date"`
	InspectorName  string              `json:"inspectorName" db:"inspector_name"`
	Condition      InspectionCondition `json:"condition" db:"condition"`
	Notes          string              `json:"notes" db:"notes"`
	CreatedAt      time.Time           `json:"createdAt" db:"created_at"`
}
