package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// источники измерений, используются как метка метрик
const (
	SourceAMQP = "amqp"
	SourceMQTT = "mqtt"
	SourceHTTP = "http"
)

// processTimeout ограничивает сохранение одного сообщения, в том числе при дренаже на остановке
const processTimeout = 30 * time.Second

var ErrPoolStopped = errors.New("ingest pool stopped")

type ReadingService interface {
	IngestBatch(ctx context.Context, readings []domain.TemperatureReading) (int, error)
}

// Message пачка измерений из одного входящего сообщения; сохраняется целиком или не сохраняется.
// Done, если задан, вызывается ровно один раз с результатом сохранения.
type Message struct {
	ID       uuid.UUID
	Source   string
	Readings []domain.TemperatureReading
	Done     func(err error)
}

func NewMessage(source string, readings []domain.TemperatureReading) Message {
	return Message{ID: uuid.New(), Source: source, Readings: readings}
}

func (m Message) finish(err error) {
	if m.Done != nil {
		m.Done(err)
	}
}

// Pool раздаёт входящие сообщения воркерам, которые сохраняют их через сервис
type Pool struct {
	workers  int
	service  ReadingService
	logger   *zap.Logger
	messages chan Message

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

func NewPool(service ReadingService, workers, buffer int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Pool{
		workers:  workers,
		service:  service,
		logger:   logger,
		messages: make(chan Message, buffer),
		done:     make(chan struct{}),
	}
}

// Submit ставит сообщение в очередь; блокируется, пока буфер полон
func (p *Pool) Submit(ctx context.Context, msg Message) error {
	select {
	case <-p.done:
		return ErrPoolStopped
	default:
	}

	metrics.IngestReadingsReceived.WithLabelValues(msg.Source).Add(float64(len(msg.Readings)))

	select {
	case p.messages <- msg:
		return nil
	case <-p.done:
		metrics.IngestReadingsDropped.WithLabelValues("stopped").Add(float64(len(msg.Readings)))
		return ErrPoolStopped
	case <-ctx.Done():
		metrics.IngestReadingsDropped.WithLabelValues("cancelled").Add(float64(len(msg.Readings)))
		return ctx.Err()
	}
}

// Start запускает воркеров и сразу возвращает управление.
// Отмена ctx равносильна Stop: уже принятые сообщения дорабатываются.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("starting ingest pool",
		zap.Int("workers", p.workers),
		zap.Int("buffer", cap(p.messages)),
	)

	// сохранение не должно обрываться вместе с ctx, иначе буфер при остановке теряется
	storeCtx := context.WithoutCancel(ctx)

	// Устанавливаем начальное количество активных воркеров
	metrics.IngestActiveWorkers.Set(float64(p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, storeCtx, i)
	}
}

func (p *Pool) work(ctx, storeCtx context.Context, workerID int) {
	defer p.wg.Done()
	defer metrics.IngestActiveWorkers.Dec()

	p.logger.Debug("worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case msg := <-p.messages:
			p.process(storeCtx, workerID, msg)

		case <-p.done:
			p.drain(storeCtx, workerID)
			return

		case <-ctx.Done():
			p.drain(storeCtx, workerID)
			return
		}
	}
}

// drain дорабатывает сообщения, оставшиеся в буфере
func (p *Pool) drain(storeCtx context.Context, workerID int) {
	p.logger.Info("draining ingest buffer", zap.Int("worker_id", workerID), zap.Int("pending", len(p.messages)))
	for {
		select {
		case msg := <-p.messages:
			p.process(storeCtx, workerID, msg)
		default:
			return
		}
	}
}

func (p *Pool) process(storeCtx context.Context, workerID int, msg Message) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(storeCtx, processTimeout)
	defer cancel()

	_, err := p.service.IngestBatch(ctx, msg.Readings)
	msg.finish(err)
	if err != nil {
		metrics.IngestReadingsFailed.Add(float64(len(msg.Readings)))
		p.logger.Error("failed to store readings",
			zap.Int("worker_id", workerID),
			zap.String("message_id", msg.ID.String()),
			zap.String("source", msg.Source),
			zap.Int("count", len(msg.Readings)),
			zap.Error(err),
		)
		return
	}

	metrics.IngestReadingsStored.Add(float64(len(msg.Readings)))
	processingTime := time.Since(startTime)
	metrics.IngestProcessingTime.Observe(processingTime.Seconds())

	p.logger.Debug("readings stored",
		zap.Int("worker_id", workerID),
		zap.String("message_id", msg.ID.String()),
		zap.String("source", msg.Source),
		zap.Int("count", len(msg.Readings)),
		zap.Duration("processing_time", processingTime),
	)
}

// Stop прекращает приём; воркеры сохраняют то, что уже в буфере, и завершаются
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("stopping ingest pool gracefully", zap.Int("pending", len(p.messages)))
		close(p.done)
	})
}

// Wait ждёт завершения всех воркеров. Сообщения, попавшие в буфер после их выхода,
// завершаются с ErrPoolStopped, чтобы источник мог вернуть их в очередь.
func (p *Pool) Wait() {
	p.wg.Wait()
	for {
		select {
		case msg := <-p.messages:
			metrics.IngestReadingsDropped.WithLabelValues("stopped").Add(float64(len(msg.Readings)))
			msg.finish(ErrPoolStopped)
			continue
		default:
		}
		break
	}
	metrics.IngestActiveWorkers.Set(0)
	p.logger.Info("ingest pool stopped")
}
