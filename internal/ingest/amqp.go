package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Submitter interface {
	Submit(ctx context.Context, msg Message) error
}

// AMQPConsumer читает измерения из очереди RabbitMQ и передаёт их в пул.
// Сообщение подтверждается только после сохранения всей пачки.
type AMQPConsumer struct {
	channel     *amqp.Channel
	queue       string
	pool        Submitter
	permanent   func(error) bool
	logger      *zap.Logger
	prefetchCnt int
	now         func() time.Time
}

// NewAMQPConsumer объявляет exchange и очередь. permanent отличает ошибки, при которых
// повторная доставка бессмысленна (сообщение отбрасывается); nil означает "всегда повторять".
func NewAMQPConsumer(conn *amqp.Connection, cfg config.AMQPConfig, pool Submitter, permanent func(error) bool, logger *zap.Logger) (*AMQPConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	consumer := &AMQPConsumer{
		channel:     ch,
		queue:       cfg.Queue,
		pool:        pool,
		permanent:   permanent,
		logger:      logger,
		prefetchCnt: 50,
		now:         time.Now,
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := ch.Qos(consumer.prefetchCnt, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	return consumer, nil
}

// Start блокируется до отмены ctx или закрытия канала брокером
func (c *AMQPConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("amqp consumer started", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("amqp consumer shutting down")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("amqp delivery channel closed")
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *AMQPConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	readings, err := DecodeReadings(msg.Body, "", c.now())
	if err != nil {
		c.logger.Warn("dropping malformed amqp message",
			zap.String("message_id", msg.MessageId),
			zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	// вся пачка уходит одним сообщением: повторная доставка не дублирует часть измерений
	batch := NewMessage(SourceAMQP, readings)
	batch.Done = func(err error) { c.settle(msg, err) }

	if err := c.pool.Submit(ctx, batch); err != nil {
		c.logger.Warn("failed to enqueue amqp message, requeueing",
			zap.String("message_id", msg.MessageId),
			zap.Error(err))
		_ = msg.Nack(false, true)
	}
}

// settle подтверждает или возвращает доставку по результату сохранения
func (c *AMQPConsumer) settle(msg amqp.Delivery, err error) {
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case c.permanent != nil && c.permanent(err):
		c.logger.Warn("rejecting amqp message",
			zap.String("message_id", msg.MessageId),
			zap.Error(err))
		_ = msg.Nack(false, false)
	default:
		c.logger.Warn("failed to store amqp message, requeueing",
			zap.String("message_id", msg.MessageId),
			zap.Error(err))
		_ = msg.Nack(false, true)
	}
}

func (c *AMQPConsumer) Close() error {
	return c.channel.Close()
}
