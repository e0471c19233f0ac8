package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gamepad-io/internal/controller"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/config"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/logging"
	"github.com/nerrad567/gamepad-io/internal/relay"
)

// testMessage mirrors WSMessage with the payload left raw.
type testMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type hapticCall struct {
	index  int
	kind   string
	params string
}

type fakeHaptics struct {
	mu    sync.Mutex
	calls []hapticCall
}

func (f *fakeHaptics) SendHaptic(index int, hapticType string, params json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hapticCall{index, hapticType, string(params)})
	return nil
}

func (f *fakeHaptics) snapshot() []hapticCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hapticCall(nil), f.calls...)
}

func dial(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readUntil reads messages until match returns true. Broadcast snapshots
// interleave with responses, so tests skip what they are not looking for.
func readUntil(t *testing.T, ws *websocket.Conn, match func(testMessage) bool) testMessage {
	t.Helper()
	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg testMessage
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("read message: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isEvent(eventType string) func(testMessage) bool {
	return func(m testMessage) bool { return m.Type == WSTypeEvent && m.EventType == eventType }
}

func hasID(id string) func(testMessage) bool {
	return func(m testMessage) bool { return m.ID == id }
}

func send(t *testing.T, ws *websocket.Conn, msgType, id string, payload any) {
	t.Helper()
	if err := ws.WriteJSON(WSMessage{Type: msgType, ID: id, Payload: payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func decodeRecords(t *testing.T, raw json.RawMessage) []controller.Record {
	t.Helper()
	var recs []controller.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		t.Fatalf("decode controllers payload %s: %v", raw, err)
	}
	return recs
}

func waitForSubscribers(t *testing.T, env *testEnv, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := env.engine.Stats(context.Background())
		if err == nil && stats.Subscribers == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("subscribers never reached %d", want)
}

func TestWebSocket_InitialSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	env.connect(t, 0, "Pad", 2, 1)

	ws := dial(t, env)
	msg := readUntil(t, ws, func(testMessage) bool { return true })

	if msg.Type != WSTypeEvent || msg.EventType != string(relay.MessageControllers) {
		t.Fatalf("first message = %s/%s, want event/controllers", msg.Type, msg.EventType)
	}
	recs := decodeRecords(t, msg.Payload)
	if len(recs) != 1 || recs[0].Name != "Pad" || len(recs[0].Buttons) != 2 {
		t.Errorf("snapshot = %+v", recs)
	}
	if msg.Timestamp == "" {
		t.Error("event has no timestamp")
	}
}

func TestWebSocket_InitialSnapshotEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	ws := dial(t, env)
	msg := readUntil(t, ws, isEvent(WSTypeControllers))
	if recs := decodeRecords(t, msg.Payload); len(recs) != 0 {
		t.Errorf("snapshot = %+v, want empty", recs)
	}
}

func TestWebSocket_JoinRoutesDeltas(t *testing.T) {
	env := newTestEnv(t, nil)
	env.connect(t, 0, "Pad", 2, 2)

	member := dial(t, env)
	other := dial(t, env)
	recs := decodeRecords(t, readUntil(t, member, isEvent(WSTypeControllers)).Payload)
	readUntil(t, other, isEvent(WSTypeControllers))
	id := recs[0].Identifier

	send(t, member, WSTypeJoin, "j1", WSGroupPayload{Identifier: id})
	resp := readUntil(t, member, hasID("j1"))
	if resp.Type != WSTypeResponse || resp.EventType != WSTypeJoin {
		t.Fatalf("join response = %+v", resp)
	}

	// Both subscribers see the pad flip to in use.
	readUntil(t, other, func(m testMessage) bool {
		if !isEvent(WSTypeControllers)(m) {
			return false
		}
		rs := decodeRecords(t, m.Payload)
		return len(rs) == 1 && rs[0].InUse
	})

	ctx := context.Background()
	if err := env.engine.Button(ctx, 0, controller.ButtonState{Index: 1, Pressed: true, Value: 1, Percent: 100}); err != nil {
		t.Fatalf("Button() error = %v", err)
	}
	if err := env.engine.Axis(ctx, 0, controller.AxisState{Index: 0, Value: -0.5}); err != nil {
		t.Fatalf("Axis() error = %v", err)
	}

	btn := readUntil(t, member, isEvent(string(relay.MessageButton)))
	var bd relay.ButtonDelta
	if err := json.Unmarshal(btn.Payload, &bd); err != nil {
		t.Fatalf("decode button delta: %v", err)
	}
	if bd.Identifier != id || bd.Index != 1 || !bd.Pressed || bd.Percent != 100 {
		t.Errorf("button delta = %+v", bd)
	}

	ax := readUntil(t, member, isEvent(string(relay.MessageAxis)))
	var ad relay.AxisDelta
	if err := json.Unmarshal(ax.Payload, &ad); err != nil {
		t.Fatalf("decode axis delta: %v", err)
	}
	if ad.Identifier != id || ad.Value != -0.5 {
		t.Errorf("axis delta = %+v", ad)
	}

	// The non-member gets no deltas: a version round trip is a barrier,
	// and nothing but snapshots may arrive before its response.
	send(t, other, WSTypeVersion, "v1", nil)
	readUntil(t, other, func(m testMessage) bool {
		if m.EventType == string(relay.MessageButton) || m.EventType == string(relay.MessageAxis) {
			t.Fatalf("non-member received %s", m.EventType)
		}
		return m.ID == "v1"
	})
}

func TestWebSocket_LeaveClearsInUse(t *testing.T) {
	env := newTestEnv(t, nil)
	env.connect(t, 0, "Pad", 1, 0)

	ws := dial(t, env)
	id := decodeRecords(t, readUntil(t, ws, isEvent(WSTypeControllers)).Payload)[0].Identifier

	send(t, ws, WSTypeJoin, "j", WSGroupPayload{Identifier: id})
	readUntil(t, ws, hasID("j"))
	send(t, ws, WSTypeLeave, "l", WSGroupPayload{Identifier: id})
	readUntil(t, ws, hasID("l"))

	rec, ok, err := env.engine.Lookup(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("Lookup() = %v, %v", ok, err)
	}
	if rec.InUse {
		t.Error("InUse = true after the only member left")
	}
}

func TestWebSocket_CloseDetaches(t *testing.T) {
	env := newTestEnv(t, nil)
	env.connect(t, 0, "Pad", 1, 0)

	ws := dial(t, env)
	id := decodeRecords(t, readUntil(t, ws, isEvent(WSTypeControllers)).Payload)[0].Identifier
	send(t, ws, WSTypeJoin, "j", WSGroupPayload{Identifier: id})
	readUntil(t, ws, hasID("j"))
	waitForSubscribers(t, env, 1)

	ws.Close()
	waitForSubscribers(t, env, 0)

	rec, _, err := env.engine.Lookup(context.Background(), id)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if rec.InUse {
		t.Error("InUse = true after the member disconnected")
	}
	if n := env.srv.hub.ClientCount(); n != 0 {
		t.Errorf("hub client count = %d, want 0", n)
	}
}

func TestWebSocket_Requests(t *testing.T) {
	env := newTestEnv(t, nil)
	env.connect(t, 0, "Pad", 0, 0)
	ws := dial(t, env)
	readUntil(t, ws, isEvent(WSTypeControllers))

	tests := []struct {
		name      string
		msgType   string
		payload   any
		wantType  string
		wantEvent string
		check     func(t *testing.T, payload json.RawMessage)
	}{
		{
			name:     "ping",
			msgType:  WSTypePing,
			wantType: WSTypePong,
		},
		{
			name:      "version",
			msgType:   WSTypeVersion,
			wantType:  WSTypeResponse,
			wantEvent: WSTypeVersion,
			check: func(t *testing.T, payload json.RawMessage) {
				if !strings.Contains(string(payload), `"version":"test"`) {
					t.Errorf("payload = %s", payload)
				}
			},
		},
		{
			name:      "controllers",
			msgType:   WSTypeControllers,
			wantType:  WSTypeResponse,
			wantEvent: WSTypeControllers,
			check: func(t *testing.T, payload json.RawMessage) {
				if recs := decodeRecords(t, payload); len(recs) != 1 {
					t.Errorf("controllers = %+v, want 1", recs)
				}
			},
		},
		{
			name:     "join without identifier",
			msgType:  WSTypeJoin,
			payload:  map[string]string{},
			wantType: WSTypeError,
		},
		{
			name:     "haptic without type",
			msgType:  WSTypeHaptic,
			payload:  WSHapticPayload{Identifier: "x"},
			wantType: WSTypeError,
		},
		{
			name:     "unknown type",
			msgType:  "subscribe",
			wantType: WSTypeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, ws, tt.msgType, tt.name, tt.payload)
			msg := readUntil(t, ws, hasID(tt.name))
			if msg.Type != tt.wantType {
				t.Errorf("type = %s, want %s (payload %s)", msg.Type, tt.wantType, msg.Payload)
			}
			if msg.EventType != tt.wantEvent {
				t.Errorf("event_type = %q, want %q", msg.EventType, tt.wantEvent)
			}
			if tt.check != nil {
				tt.check(t, msg.Payload)
			}
		})
	}
}

func TestWebSocket_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	ws := dial(t, env)
	readUntil(t, ws, isEvent(WSTypeControllers))

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readUntil(t, ws, func(m testMessage) bool { return m.Type == WSTypeError })
	if !strings.Contains(string(msg.Payload), "invalid JSON") {
		t.Errorf("error payload = %s", msg.Payload)
	}
}

func TestWebSocket_HapticForwarded(t *testing.T) {
	haptics := &fakeHaptics{}
	env := newTestEnv(t, func(e *relay.Engine) { e.SetHapticSink(haptics) })
	env.connect(t, 2, "Pad", 0, 0)

	ws := dial(t, env)
	id := decodeRecords(t, readUntil(t, ws, isEvent(WSTypeControllers)).Payload)[0].Identifier

	send(t, ws, WSTypeHaptic, "h1", WSHapticPayload{
		Identifier: id,
		Type:       "dual-rumble",
		Params:     json.RawMessage(`{"duration":200}`),
	})
	if msg := readUntil(t, ws, hasID("h1")); msg.Type != WSTypeResponse {
		t.Fatalf("haptic response = %+v", msg)
	}

	// Unknown identifiers are accepted and ignored.
	send(t, ws, WSTypeHaptic, "h2", WSHapticPayload{Identifier: "nobody", Type: "dual-rumble"})
	readUntil(t, ws, hasID("h2"))

	// Stats is a barrier: both haptic ops have run once it answers.
	if _, err := env.engine.Stats(context.Background()); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	calls := haptics.snapshot()
	if len(calls) != 1 {
		t.Fatalf("haptic calls = %+v, want 1", calls)
	}
	if calls[0].index != 2 || calls[0].kind != "dual-rumble" || calls[0].params != `{"duration":200}` {
		t.Errorf("haptic call = %+v", calls[0])
	}
}

func TestWSClient_SendDropsWhenFull(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Default())
	c := &WSClient{id: "c", hub: hub, send: make(chan []byte, 1)}

	msg := relay.Message{Type: relay.MessageControllers, Controllers: []controller.Record{}}
	if !c.Send(msg) {
		t.Fatal("first Send() = false, want true")
	}
	if c.Send(msg) {
		t.Error("Send() on full buffer = true, want false")
	}

	close(c.send)
	if c.Send(msg) {
		t.Error("Send() on closed channel = true, want false")
	}
}
