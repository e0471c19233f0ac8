package capture

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gamepad-io/internal/controller"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/mqtt"
)

// Event is one decoded capture event. Fields beyond Kind and Index are
// set according to Kind.
type Event struct {
	Kind  string
	Index int

	// Connect
	Name        string
	ButtonCount int
	AxisCount   int

	Button controller.ButtonState
	Axis   controller.AxisState
}

type connectPayload struct {
	Index   *int   `json:"index"`
	Name    string `json:"name"`
	Buttons int    `json:"buttons"`
	Axes    int    `json:"axes"`
}

type disconnectPayload struct {
	Index *int `json:"index"`
}

type buttonPayload struct {
	Index   *int    `json:"index"`
	Button  *int    `json:"button"`
	Pressed bool    `json:"pressed"`
	Touched bool    `json:"touched"`
	Value   float64 `json:"value"`
	Percent int     `json:"percent"`
}

type axisPayload struct {
	Index   *int    `json:"index"`
	Axis    *int    `json:"axis"`
	Pressed bool    `json:"pressed"`
	Value   float64 `json:"value"`
}

// HapticCommand is published to the collaborator on the haptic topic.
type HapticCommand struct {
	Index  int             `json:"index"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Decode parses payload as an event of kind and checks its ranges:
// indices non-negative, name non-empty, button value in [0,1], percent in
// [0,100] and axis value in [-1,1].
func Decode(kind string, payload []byte) (Event, error) {
	switch kind {
	case mqtt.KindConnect:
		var p connectPayload
		if err := unmarshal(payload, &p); err != nil {
			return Event{}, err
		}
		if err := index("index", p.Index); err != nil {
			return Event{}, err
		}
		if p.Name == "" {
			return Event{}, fmt.Errorf("%w: name is required", ErrInvalidEvent)
		}
		if p.Buttons < 0 || p.Axes < 0 {
			return Event{}, fmt.Errorf("%w: negative control count", ErrInvalidEvent)
		}
		return Event{Kind: kind, Index: *p.Index, Name: p.Name, ButtonCount: p.Buttons, AxisCount: p.Axes}, nil

	case mqtt.KindDisconnect:
		var p disconnectPayload
		if err := unmarshal(payload, &p); err != nil {
			return Event{}, err
		}
		if err := index("index", p.Index); err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Index: *p.Index}, nil

	case mqtt.KindButton:
		var p buttonPayload
		if err := unmarshal(payload, &p); err != nil {
			return Event{}, err
		}
		if err := index("index", p.Index); err != nil {
			return Event{}, err
		}
		if err := index("button", p.Button); err != nil {
			return Event{}, err
		}
		if p.Value < 0 || p.Value > 1 {
			return Event{}, fmt.Errorf("%w: button value %v outside [0,1]", ErrInvalidEvent, p.Value)
		}
		if p.Percent < 0 || p.Percent > 100 {
			return Event{}, fmt.Errorf("%w: percent %d outside [0,100]", ErrInvalidEvent, p.Percent)
		}
		return Event{Kind: kind, Index: *p.Index, Button: controller.ButtonState{
			Index:   *p.Button,
			Pressed: p.Pressed,
			Touched: p.Touched,
			Value:   p.Value,
			Percent: p.Percent,
		}}, nil

	case mqtt.KindAxis:
		var p axisPayload
		if err := unmarshal(payload, &p); err != nil {
			return Event{}, err
		}
		if err := index("index", p.Index); err != nil {
			return Event{}, err
		}
		if err := index("axis", p.Axis); err != nil {
			return Event{}, err
		}
		if p.Value < -1 || p.Value > 1 {
			return Event{}, fmt.Errorf("%w: axis value %v outside [-1,1]", ErrInvalidEvent, p.Value)
		}
		return Event{Kind: kind, Index: *p.Index, Axis: controller.AxisState{
			Index:   *p.Axis,
			Pressed: p.Pressed,
			Value:   p.Value,
		}}, nil
	}
	return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func unmarshal(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return nil
}

func index(field string, v *int) error {
	if v == nil {
		return fmt.Errorf("%w: %s is required", ErrInvalidEvent, field)
	}
	if *v < 0 {
		return fmt.Errorf("%w: %s %d is negative", ErrInvalidEvent, field, *v)
	}
	return nil
}
