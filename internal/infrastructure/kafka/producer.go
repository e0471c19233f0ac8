package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nerrad567/gamepad-io/internal/infrastructure/config"
)

const (
	defaultBatchSize   = 100
	defaultDialTimeout = 5 * time.Second
)

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON-encoded events to one topic.
type Producer struct {
	writer  messageWriter
	brokers []string
	topic   string

	mu      sync.RWMutex
	closed  bool
	onError func(err error)
}

// Connect builds an async producer from cfg. The first broker contact
// happens on the first write; use HealthCheck to probe reachability.
func Connect(cfg config.KafkaConfig) (*Producer, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	for _, broker := range cfg.Brokers {
		if !hostPort(broker) {
			return nil, fmt.Errorf("kafka: broker %q is not host:port", broker)
		}
	}

	p := &Producer{
		brokers: cfg.Brokers,
		topic:   cfg.Topic,
	}
	p.writer = newWriter(cfg, p.completion)
	return p, nil
}

func newWriter(cfg config.KafkaConfig, completion func([]kafka.Message, error)) *kafka.Writer {
	batch := defaultBatchSize
	if cfg.BatchSize > 0 {
		batch = cfg.BatchSize
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    batch,
		BatchTimeout: time.Duration(cfg.BatchTimeoutMs) * time.Millisecond,
		RequiredAcks: parseAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		Async:        true,
		Completion:   completion,
	}
}

func (p *Producer) completion(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	p.mu.RLock()
	callback := p.onError
	p.mu.RUnlock()
	if callback != nil {
		callback(fmt.Errorf("kafka: delivering %d messages: %w", len(msgs), err))
	}
}

// SetOnError sets the callback for asynchronous delivery failures.
func (p *Producer) SetOnError(callback func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = callback
}

// Publish JSON-encodes value and enqueues it under key.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrNotConnected
	}

	msg, err := encode(key, value)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", p.topic, err)
	}
	return nil
}

// HealthCheck dials the first reachable broker.
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p.isClosed() {
		return ErrNotConnected
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	var lastErr error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(dialCtx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close() //nolint:errcheck // Probe connection
		return nil
	}
	return fmt.Errorf("kafka health check failed: %w", lastErr)
}

// Close flushes pending messages and closes the writer. Safe to call twice.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.writer.Close()
}

func (p *Producer) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func encode(key string, value any) (kafka.Message, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encoding value: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
	}, nil
}

func parseCompression(s string) kafka.Compression {
	switch strings.ToLower(s) {
	case "", "none", "off":
		return kafka.Compression(0)
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}

func parseAcks(s string) kafka.RequiredAcks {
	switch strings.ToLower(s) {
	case "none":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne
	}
}

func hostPort(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port != ""
}
