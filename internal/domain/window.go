package domain

import "time"

// TimeWindow именованный интервал отображения, всегда отсчитывается назад от "сейчас"
type TimeWindow string

const (
	WindowDay   TimeWindow = "1d"
	WindowWeek  TimeWindow = "1w"
	WindowMonth TimeWindow = "1m"
)

var windowDays = map[TimeWindow]int{
	WindowDay:   1,
	WindowWeek:  7,
	WindowMonth: 30,
}

// TimeWindows перечисляет поддерживаемые окна в порядке возрастания
func TimeWindows() []TimeWindow {
	return []TimeWindow{WindowDay, WindowWeek, WindowMonth}
}

// Days возвращает число целых суток окна, 0 для неизвестного окна
func (w TimeWindow) Days() int {
	return windowDays[w]
}

func (w TimeWindow) Valid() bool {
	_, ok := windowDays[w]
	return ok
}

func (w TimeWindow) Duration() time.Duration {
	return time.Duration(w.Days()) * 24 * time.Hour
}

// Bounds возвращает [now-duration, now]
func (w TimeWindow) Bounds(now time.Time) (time.Time, time.Time) {
	return now.Add(-w.Duration()), now
}
