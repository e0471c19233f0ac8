package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/gamepad-io/internal/controller"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/mqtt"
)

// Sink receives decoded capture events. relay.Engine implements it.
type Sink interface {
	Connect(ctx context.Context, connectionIndex int, name string, buttonCount, axisCount int) error
	Disconnect(ctx context.Context, connectionIndex int) error
	Button(ctx context.Context, connectionIndex int, sample controller.ButtonState) error
	Axis(ctx context.Context, connectionIndex int, sample controller.AxisState) error
}

// Broker is the part of mqtt.Client the bridge uses.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishAsync(topic string, payload []byte, qos byte) error
	QoS() byte
}

// HapticQueueSize bounds the haptic commands waiting to be published.
const HapticQueueSize = 64

// Logger is the logging interface used by the Bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

type outbound struct {
	topic   string
	payload []byte
}

// Bridge moves events between the MQTT capture topics and a Sink.
//
// Haptic commands are queued and published from a goroutine owned by the
// bridge, so a congested broker never stalls the caller of SendHaptic.
type Bridge struct {
	broker Broker
	sink   Sink
	topics mqtt.Topics
	ctx    context.Context
	logger Logger

	haptics  chan outbound
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBridge creates a bridge for the capture topics under prefix.
func NewBridge(broker Broker, sink Sink, prefix string) *Bridge {
	return &Bridge{
		broker: broker,
		sink:   sink,
		topics: mqtt.Topics{Prefix: prefix},
		ctx:    context.Background(),
		logger: noopLogger{},

		haptics: make(chan outbound, HapticQueueSize),
		stop:    make(chan struct{}),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Topics returns the topic set the bridge uses.
func (b *Bridge) Topics() mqtt.Topics {
	return b.topics
}

// Start subscribes to the inbound capture topics and starts the haptic
// publisher. Events are submitted to the sink with ctx, so cancelling ctx
// makes pending submits fail and ends the publisher.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx = ctx
	for _, topic := range b.topics.Inbound() {
		if err := b.broker.Subscribe(topic, b.broker.QoS(), b.HandleMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	b.logger.Info("capture bridge subscribed",
		"topics", b.topics.Inbound(), "haptic_topic", b.topics.AllHaptic())

	b.wg.Add(1)
	go b.publishHaptics(ctx)
	return nil
}

// Stop ends the haptic publisher and unsubscribes from the capture topics.
// Commands still queued are dropped.
func (b *Bridge) Stop() error {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()

	var firstErr error
	for _, topic := range b.topics.Inbound() {
		if err := b.broker.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HandleMessage decodes one capture message and submits it to the sink.
// Invalid payloads are returned as errors, which the MQTT client logs.
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	kind, ok := b.topics.Kind(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %s", ErrUnknownKind, topic)
	}
	ev, err := Decode(kind, payload)
	if err != nil {
		return err
	}
	return b.dispatch(b.ctx, ev)
}

func (b *Bridge) dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case mqtt.KindConnect:
		return b.sink.Connect(ctx, ev.Index, ev.Name, ev.ButtonCount, ev.AxisCount)
	case mqtt.KindDisconnect:
		return b.sink.Disconnect(ctx, ev.Index)
	case mqtt.KindButton:
		return b.sink.Button(ctx, ev.Index, ev.Button)
	case mqtt.KindAxis:
		return b.sink.Axis(ctx, ev.Index, ev.Axis)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
}

// SendHaptic queues a haptic command for the pad at connectionIndex.
// It never blocks: when the queue is full the command is dropped and
// ErrHapticQueueFull is returned.
func (b *Bridge) SendHaptic(connectionIndex int, hapticType string, params json.RawMessage) error {
	payload, err := json.Marshal(HapticCommand{Index: connectionIndex, Type: hapticType, Params: params})
	if err != nil {
		return fmt.Errorf("encoding haptic command: %w", err)
	}

	select {
	case b.haptics <- outbound{topic: b.topics.Haptic(connectionIndex), payload: payload}:
		b.logger.Debug("haptic queued", "index", connectionIndex, "type", hapticType)
		return nil
	default:
		return fmt.Errorf("%w: index %d", ErrHapticQueueFull, connectionIndex)
	}
}

func (b *Bridge) publishHaptics(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return
		case cmd := <-b.haptics:
			if err := b.broker.PublishAsync(cmd.topic, cmd.payload, b.broker.QoS()); err != nil {
				b.logger.Warn("haptic publish failed", "topic", cmd.topic, "error", err)
			}
		}
	}
}
