package stream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
)

const (
	transportMQTT      = "mqtt"
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// ErrNoBroker is returned when no MQTT broker is configured.
var ErrNoBroker = errors.New("mqtt broker must not be empty")

// MQTTConfig captures the subscriber tunables.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
}

// MQTTSubscriber receives JSON reading arrays published by trackers.
type MQTTSubscriber struct {
	cfg       MQTTConfig
	client    mqtt.Client
	sink      Sink
	retryable Retryable
	logger    logger.Logger

	mu  sync.RWMutex
	ctx context.Context
}

// NewMQTTSubscriber validates cfg and builds a client with auto reconnect.
func NewMQTTSubscriber(cfg MQTTConfig, sink Sink) (*MQTTSubscriber, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, ErrNoBroker
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrNoTopic
	}
	if sink == nil {
		return nil, ErrNoSink
	}

	s := &MQTTSubscriber{
		cfg:       cfg,
		sink:      sink,
		retryable: queueFull,
		logger:    logger.Get().Named("mqtt"),
		ctx:       context.Background(),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.logger.Warn(s.context(), "mqtt connection lost", logger.Error(err))
		})
	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Start connects; the subscription is (re)established on every connect.
func (s *MQTTSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	token := s.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("mqtt connect to %s: timed out", s.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", s.cfg.Broker, err)
	}
	return nil
}

// Stop unsubscribes and disconnects.
func (s *MQTTSubscriber) Stop() {
	if !s.client.IsConnected() {
		return
	}
	s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	s.client.Disconnect(mqttQuiesceMillis)
}

func (s *MQTTSubscriber) onConnect(c mqtt.Client) {
	ctx := s.context()
	token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.HandleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error(ctx, "mqtt subscribe failed", logger.String("topic", s.cfg.Topic), logger.Error(err))
		return
	}
	s.logger.Info(ctx, "mqtt subscribed",
		logger.String("broker", s.cfg.Broker),
		logger.String("topic", s.cfg.Topic),
	)
}

// HandleMessage is the paho message callback. The batch id is the topic
// plus a payload digest: packet ids are recycled by the broker, so they
// cannot identify a redelivery on their own.
func (s *MQTTSubscriber) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx := s.context()

	sum := sha256.Sum256(msg.Payload())
	id := msg.Topic() + "/" + hex.EncodeToString(sum[:16])

	outcome, err := deliver(ctx, s.sink, s.retryable, transportMQTT, model.SourceMQTT, id, msg.Payload())
	if err != nil {
		s.logger.Warn(ctx, "mqtt message dropped",
			logger.String("topic", msg.Topic()),
			logger.String("outcome", outcome),
			logger.Error(err),
		)
	}
	msg.Ack()
}

func (s *MQTTSubscriber) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}
