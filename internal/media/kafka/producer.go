package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	BatchSize    int
	Async        bool
	Logger       zerolog.Logger
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("brokers list is empty")
	}
	if c.Topic == "" {
		return errors.New("topic is empty")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return errors.New("retry_backoff cannot be negative")
	}
	if c.WriteTimeout < 0 {
		return errors.New("write_timeout cannot be negative")
	}
	if c.BatchSize < 0 {
		return errors.New("batch_size cannot be negative")
	}
	return nil
}

func (c *ProducerConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
}

type Producer struct {
	config ProducerConfig
	writer *kafkago.Writer
	log    zerolog.Logger
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("producer config: %w", err)
	}
	cfg.applyDefaults()

	return &Producer{
		config: cfg,
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.LeastBytes{},
			BatchSize:    cfg.BatchSize,
			WriteTimeout: cfg.WriteTimeout,
			Async:        cfg.Async,
		},
		log: cfg.Logger.With().Str("component", "kafka_producer").Logger(),
	}, nil
}

// Publish writes one message, retrying transient failures with a constant
// backoff up to MaxRetries.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	op := func() error {
		return p.writer.WriteMessages(ctx, kafkago.Message{
			Key:   []byte(key),
			Value: value,
		})
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.config.RetryBackoff), uint64(p.config.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
