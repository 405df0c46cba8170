package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const transportKafka = "kafka"

// Sentinel errors for consumer construction.
var (
	ErrNoBrokers = errors.New("at least one broker is required")
	ErrNoTopic   = errors.New("topic must not be empty")
	ErrNoGroup   = errors.New("consumer group must not be empty")
	ErrNoSink    = errors.New("sink must not be nil")
)

// KafkaConfig captures the consumer tunables.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// kafkaReader is the subset of *kafka.Reader the consumer needs.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads JSON reading arrays from a topic. The message key, when
// set, is the batch id.
type KafkaConsumer struct {
	cfg       KafkaConfig
	reader    kafkaReader
	sink      Sink
	retryable Retryable
	logger    logger.Logger
}

// KafkaOption configures a KafkaConsumer.
type KafkaOption func(*KafkaConsumer)

// WithKafkaRetryable overrides which sink errors are retried.
func WithKafkaRetryable(fn Retryable) KafkaOption {
	return func(c *KafkaConsumer) {
		if fn != nil {
			c.retryable = fn
		}
	}
}

// WithKafkaLogger sets the consumer logger.
func WithKafkaLogger(l logger.Logger) KafkaOption {
	return func(c *KafkaConsumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewKafkaConsumer validates cfg and opens a group reader.
func NewKafkaConsumer(cfg KafkaConfig, sink Sink, opts ...KafkaOption) (*KafkaConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrNoTopic
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, ErrNoGroup
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaConsumer(cfg, reader, sink, opts...)
}

func newKafkaConsumer(cfg KafkaConfig, reader kafkaReader, sink Sink, opts ...KafkaOption) (*KafkaConsumer, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	c := &KafkaConsumer{
		cfg:       cfg,
		reader:    reader,
		sink:      sink,
		retryable: queueFull,
		logger:    logger.Get().Named("kafka"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close shuts down the underlying reader.
func (c *KafkaConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "kafka consumer started",
		logger.String("topic", c.cfg.Topic),
		logger.String("group", c.cfg.GroupID),
		logger.String("brokers", strings.Join(c.cfg.Brokers, ",")),
	)
	defer c.logger.Info(ctx, "kafka consumer stopped")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			c.logger.Error(ctx, "kafka fetch failed", logger.Error(err))
			continue
		}

		c.handle(ctx, msg)

		commitCtx, commitCancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.logger.Error(ctx, "kafka commit failed", logger.Error(err))
			}
		}
		commitCancel()
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) {
	id := string(msg.Key)
	if id == "" {
		id = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}

	outcome, err := deliver(ctx, c.sink, c.retryable, transportKafka, model.SourceKafka, id, msg.Value)
	if err != nil {
		c.logger.Warn(ctx, "kafka message dropped",
			logger.String("batch_id", id),
			logger.String("outcome", outcome),
			logger.Int64("offset", msg.Offset),
			logger.Error(err),
		)
	}
}
