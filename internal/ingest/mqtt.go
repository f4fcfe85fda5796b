package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/config"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"go.uber.org/zap"
)

// MQTTSubscriber получает измерения с топиков вида transformers/<id>/temperature
type MQTTSubscriber struct {
	cfg    config.MQTTConfig
	pool   Submitter
	logger *zap.Logger
	now    func() time.Time
}

func NewMQTTSubscriber(cfg config.MQTTConfig, pool Submitter, logger *zap.Logger) *MQTTSubscriber {
	return &MQTTSubscriber{
		cfg:    cfg,
		pool:   pool,
		logger: logger,
		now:    time.Now,
	}
}

// Start блокируется до отмены ctx; переподключение выполняет autopaho
func (s *MQTTSubscriber) Start(ctx context.Context) error {
	serverURL, err := url.Parse(s.cfg.BrokerURL)
	if err != nil {
		return fmt.Errorf("invalid mqtt broker url: %w", err)
	}

	cliCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: false,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			s.logger.Info("mqtt connection up", zap.String("broker", s.cfg.BrokerURL))
			if _, err := cm.Subscribe(ctx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{{Topic: s.cfg.Topic, QoS: 1}},
			}); err != nil {
				s.logger.Error("mqtt subscribe failed", zap.String("topic", s.cfg.Topic), zap.Error(err))
			}
		},
		OnConnectError: func(err error) {
			s.logger.Warn("mqtt connection attempt failed", zap.Error(err))
		},
		ClientConfig: paho.ClientConfig{
			ClientID: s.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					s.handle(ctx, pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				},
			},
			OnClientError: func(err error) {
				s.logger.Error("mqtt client error", zap.Error(err))
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				s.logger.Warn("mqtt server requested disconnect", zap.Uint8("reason_code", d.ReasonCode))
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return fmt.Errorf("failed to start mqtt connection: %w", err)
	}

	<-ctx.Done()

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = cm.Disconnect(disconnectCtx)
	<-cm.Done()

	s.logger.Info("mqtt subscriber stopped")
	return nil
}

func (s *MQTTSubscriber) handle(ctx context.Context, topic string, payload []byte) {
	id, ok := TopicTransformerID(s.cfg.Topic, topic)
	if !ok {
		s.logger.Warn("mqtt message on unexpected topic", zap.String("topic", topic))
		return
	}

	readings, err := DecodeReadings(payload, id, s.now())
	if err != nil {
		s.logger.Warn("dropping malformed mqtt message", zap.String("topic", topic), zap.Error(err))
		return
	}

	// id из топика главнее id в теле
	for i := range readings {
		readings[i].TransformerID = id
	}
	if err := s.pool.Submit(ctx, NewMessage(SourceMQTT, readings)); err != nil {
		s.logger.Warn("failed to enqueue mqtt message", zap.String("topic", topic), zap.Error(err))
	}
}

// TopicTransformerID извлекает id трансформатора из уровня топика, совпадающего с "+" в фильтре
func TopicTransformerID(filter, topic string) (string, bool) {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	if len(fl) != len(tl) {
		return "", false
	}

	id := ""
	for i := range fl {
		switch fl[i] {
		case "+":
			if id == "" {
				id = tl[i]
			}
		default:
			if fl[i] != tl[i] {
				return "", false
			}
		}
	}
	return id, id != ""
}
