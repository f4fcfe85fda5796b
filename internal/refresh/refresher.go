package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"

	"go.uber.org/zap"
)

// DefaultInterval период обновления, если задан непозитивный
const DefaultInterval = 60 * time.Second

// FetchFunc загружает свежее значение (например, сводку по всем трансформаторам)
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot зафиксированный результат обновления
type Snapshot[T any] struct {
	Value       T
	Generation  uint64
	CommittedAt time.Time
}

// Refresher периодически и по запросу перезапрашивает данные.
// Каждый запрос получает номер поколения до начала загрузки; результат применяется,
// только если его поколение новее уже зафиксированного, иначе он отбрасывается.
type Refresher[T any] struct {
	name     string
	fetch    FetchFunc[T]
	interval time.Duration
	logger   *zap.Logger

	issued  atomic.Uint64
	trigger chan struct{}
	wg      sync.WaitGroup

	mu       sync.RWMutex
	snapshot Snapshot[T]
}

func NewRefresher[T any](name string, fetch FetchFunc[T], interval time.Duration, logger *zap.Logger) *Refresher[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher[T]{
		name:     name,
		fetch:    fetch,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Refresh выполняет одну загрузку и возвращает true, если её результат применён
func (r *Refresher[T]) Refresh(ctx context.Context) (bool, error) {
	gen := r.issued.Add(1)

	value, err := r.fetch(ctx)
	if err != nil {
		metrics.RefreshResults.WithLabelValues(r.name, "failed").Inc()
		r.logger.Error("refresh failed",
			zap.String("refresher", r.name),
			zap.Uint64("generation", gen),
			zap.Error(err),
		)
		return false, err
	}

	if !r.commit(gen, value) {
		metrics.RefreshResults.WithLabelValues(r.name, "stale").Inc()
		r.logger.Debug("stale refresh result discarded",
			zap.String("refresher", r.name),
			zap.Uint64("generation", gen),
		)
		return false, nil
	}

	metrics.RefreshResults.WithLabelValues(r.name, "committed").Inc()
	return true, nil
}

func (r *Refresher[T]) commit(gen uint64, value T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen <= r.snapshot.Generation {
		return false
	}
	r.snapshot = Snapshot[T]{Value: value, Generation: gen, CommittedAt: time.Now()}
	return true
}

// Snapshot возвращает последний зафиксированный результат; ok=false до первой фиксации
func (r *Refresher[T]) Snapshot() (Snapshot[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot, r.snapshot.Generation > 0
}

// Trigger запрашивает внеочередное обновление, не блокируясь
func (r *Refresher[T]) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run обновляет данные сразу, затем по таймеру и по Trigger до отмены ctx.
// Загрузки запускаются параллельно и не объединяются.
func (r *Refresher[T]) Run(ctx context.Context) {
	r.logger.Info("starting refresher",
		zap.String("refresher", r.name),
		zap.Duration("interval", r.interval),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.launch(ctx)
	for {
		select {
		case <-ticker.C:
			r.launch(ctx)
		case <-r.trigger:
			r.launch(ctx)
		case <-ctx.Done():
			r.wg.Wait()
			r.logger.Info("refresher stopped", zap.String("refresher", r.name))
			return
		}
	}
}

func (r *Refresher[T]) launch(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.Refresh(ctx)
	}()
}
