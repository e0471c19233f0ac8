package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/nerrad567/gamepad-io/internal/infrastructure/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

func newTestProducer() (*Producer, *fakeWriter) {
	w := &fakeWriter{}
	return &Producer{writer: w, brokers: []string{"127.0.0.1:1"}, topic: "events"}, w
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.KafkaConfig
		wantErr error
	}{
		{"disabled", config.KafkaConfig{}, ErrDisabled},
		{"no brokers", config.KafkaConfig{Enabled: true, Topic: "t"}, ErrNoBrokers},
		{"valid", config.KafkaConfig{Enabled: true, Topic: "t", Brokers: []string{"localhost:9092"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Connect(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Connect() error = %v, want %v", err, tt.wantErr)
			}
			if p != nil {
				p.Close() //nolint:errcheck // Test cleanup
			}
		})
	}
}

func TestConnect_InvalidBroker(t *testing.T) {
	_, err := Connect(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost"}})
	if err == nil {
		t.Fatal("Connect() expected error for broker without port")
	}
}

func TestNewWriter(t *testing.T) {
	w := newWriter(config.KafkaConfig{
		Brokers:        []string{"k1:9092", "k2:9092"},
		Topic:          "events",
		BatchTimeoutMs: 10,
		Compression:    "zstd",
		RequiredAcks:   "all",
	}, nil)

	if w.Topic != "events" {
		t.Errorf("Topic = %q", w.Topic)
	}
	if w.BatchSize != defaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", w.BatchSize, defaultBatchSize)
	}
	if !w.Async {
		t.Error("writer should be async")
	}
	if w.RequiredAcks != kafka.RequireAll {
		t.Errorf("RequiredAcks = %v, want RequireAll", w.RequiredAcks)
	}
	if w.Compression != kafka.Zstd {
		t.Errorf("Compression = %v, want zstd", w.Compression)
	}
}

func TestPublish(t *testing.T) {
	p, w := newTestProducer()

	event := map[string]any{"type": "button", "identifier": "pad-1"}
	if err := p.Publish(context.Background(), "pad-1", event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "pad-1" {
		t.Errorf("Key = %q, want pad-1", msg.Key)
	}
	var got map[string]any
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("Value is not JSON: %v", err)
	}
	if got["type"] != "button" {
		t.Errorf("Value type = %v, want button", got["type"])
	}
}

func TestPublish_Errors(t *testing.T) {
	t.Run("unencodable", func(t *testing.T) {
		p, _ := newTestProducer()
		if err := p.Publish(context.Background(), "k", make(chan int)); err == nil {
			t.Error("Publish() expected encoding error")
		}
	})

	t.Run("writer failure", func(t *testing.T) {
		p, w := newTestProducer()
		w.err = errors.New("broker down")
		if err := p.Publish(context.Background(), "k", 1); !errors.Is(err, w.err) {
			t.Errorf("Publish() error = %v, want wrapped writer error", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		p, _ := newTestProducer()
		p.Close() //nolint:errcheck // Test setup
		if err := p.Publish(context.Background(), "k", 1); !errors.Is(err, ErrNotConnected) {
			t.Errorf("Publish() error = %v, want ErrNotConnected", err)
		}
		if err := p.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
			t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
		}
	})
}

func TestClose_Idempotent(t *testing.T) {
	p, w := newTestProducer()
	p.Close() //nolint:errcheck // Test
	p.Close() //nolint:errcheck // Test
	if w.closed != 1 {
		t.Errorf("writer closed %d times, want 1", w.closed)
	}

	var nilProducer *Producer
	if err := nilProducer.Close(); err != nil {
		t.Errorf("Close() on nil producer = %v", err)
	}
}

func TestCompletion_ReportsErrors(t *testing.T) {
	p, _ := newTestProducer()
	var reported error
	p.SetOnError(func(err error) { reported = err })

	p.completion([]kafka.Message{{}}, nil)
	if reported != nil {
		t.Fatalf("success reported as error: %v", reported)
	}

	cause := errors.New("leader not available")
	p.completion([]kafka.Message{{}, {}}, cause)
	if !errors.Is(reported, cause) {
		t.Errorf("reported = %v, want wrapped cause", reported)
	}
}

func TestParsers(t *testing.T) {
	compression := map[string]kafka.Compression{
		"":       kafka.Compression(0),
		"none":   kafka.Compression(0),
		"gzip":   kafka.Gzip,
		"LZ4":    kafka.Lz4,
		"snappy": kafka.Snappy,
		"bogus":  kafka.Snappy,
	}
	for in, want := range compression {
		if got := parseCompression(in); got != want {
			t.Errorf("parseCompression(%q) = %v, want %v", in, got, want)
		}
	}

	acks := map[string]kafka.RequiredAcks{
		"none": kafka.RequireNone,
		"all":  kafka.RequireAll,
		"one":  kafka.RequireOne,
		"":     kafka.RequireOne,
	}
	for in, want := range acks {
		if got := parseAcks(in); got != want {
			t.Errorf("parseAcks(%q) = %v, want %v", in, got, want)
		}
	}
}
