package analytics

import (
	"strings"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
)

// StatusFor отображаемый статус: Overheating только при известной температуре выше порога
func StatusFor(latestTemp *float64) domain.Status {
	if latestTemp != nil && *latestTemp > domain.OverheatThreshold {
		return domain.StatusOverheating
	}
	return domain.StatusNormal
}

// HealthFor трёхзначная оценка: без данных Unknown, а не Normal
func HealthFor(latestTemp *float64) domain.Status {
	if latestTemp == nil {
		return domain.StatusUnknown
	}
	return StatusFor(latestTemp)
}

// Project собирает строки сводной таблицы из трансформаторов и их последних температур
func Project(entities []domain.Transformer, latest map[string]float64) []domain.SummaryRow {
	rows := make([]domain.SummaryRow, 0, len(entities))
	for _, e := range entities {
		row := domain.SummaryRow{Transformer: e}
		if temp, ok := latest[e.ID]; ok {
			t := temp
			row.LatestTemp = &t
		}
		row.Status = StatusFor(row.LatestTemp)
		row.Health = HealthFor(row.LatestTemp)
		rows = append(rows, row)
	}
	return rows
}

// FilterByID регистронезависимый поиск подстроки в id; пустой запрос пропускает всё
func FilterByID(rows []domain.SummaryRow, query string) []domain.SummaryRow {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.SummaryRow, 0, len(rows))
	for _, r := range rows {
		if q == "" || strings.Contains(strings.ToLower(r.ID), q) {
			out = append(out, r)
		}
	}
	return out
}
