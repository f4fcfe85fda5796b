package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/pkg/utils"
)

// Profile суточный профиль нагрева: синусоида с максимумом в PeakHour (UTC)
type Profile struct {
	PeakHour  int
	Amplitude float64
}

var (
	// DayProfile профиль для генерации суток целиком
	DayProfile = Profile{PeakHour: 17, Amplitude: 40}
	// BackfillProfile профиль для дозаполнения пропусков
	BackfillProfile = Profile{PeakHour: 19, Amplitude: 20}
)

const (
	baseMin     = 50.0
	baseSpread  = 20.0
	noiseSpread = 1.5
	// BackfillFallback глубина дозаполнения, если измерений ещё нет
	BackfillFallback = 7 * 24 * time.Hour
)

// Generator генерирует синтетические измерения; безопасен для конкурентного использования
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Temperature температура для часа hour по профилю p, округлённая до сотых
func (g *Generator) Temperature(p Profile, hour int) float64 {
	angle := 2 * math.Pi / 24 * float64(hour-p.PeakHour)
	wave := (math.Cos(angle) + 1) / 2

	g.mu.Lock()
	base := baseMin + g.rng.Float64()*baseSpread
	noise := (g.rng.Float64()*2 - 1) * noiseSpread
	g.mu.Unlock()

	return utils.RoundTo(base+p.Amplitude*wave+noise, 2)
}

// Day 24 почасовых измерения за текущие сутки UTC, начиная с полуночи
func (g *Generator) Day(transformerID string, now time.Time) []domain.TemperatureReading {
	midnight := now.UTC().Truncate(24 * time.Hour)

	readings := make([]domain.TemperatureReading, 0, 24)
	for i := 0; i < 24; i++ {
		ts := midnight.Add(time.Duration(i) * time.Hour)
		readings = append(readings, domain.TemperatureReading{
			TransformerID: transformerID,
			Timestamp:     ts,
			TempC:         g.Temperature(DayProfile, ts.Hour()),
		})
	}
	return readings
}

// Backfill почасовые измерения после last до now; без last отсчёт идёт от now-BackfillFallback
func (g *Generator) Backfill(transformerID string, last *time.Time, now time.Time) []domain.TemperatureReading {
	from := now.Add(-BackfillFallback)
	if last != nil {
		from = *last
	}

	gap := int(now.Sub(from) / time.Hour)
	if gap <= 0 {
		return nil
	}

	readings := make([]domain.TemperatureReading, 0, gap)
	for i := 1; i <= gap; i++ {
		ts := from.Add(time.Duration(i) * time.Hour).UTC()
		readings = append(readings, domain.TemperatureReading{
			TransformerID: transformerID,
			Timestamp:     ts,
			TempC:         g.Temperature(BackfillProfile, ts.Hour()),
		})
	}
	return readings
}
