package relay

import "github.com/nerrad567/gamepad-io/internal/controller"

// MessageType names the outbound event carried by a Message.
type MessageType string

const (
	// MessageControllers carries the full ordered registry snapshot.
	MessageControllers MessageType = "controllers"
	// MessageButton carries one button delta.
	MessageButton MessageType = "button_event"
	// MessageAxis carries one axis delta.
	MessageAxis MessageType = "axis_event"
)

// ButtonDelta is a changed button on the pad with Identifier.
type ButtonDelta struct {
	Identifier string  `json:"identifier"`
	Index      int     `json:"button_index"`
	Pressed    bool    `json:"pressed"`
	Touched    bool    `json:"touched"`
	Value      float64 `json:"value"`
	Percent    int     `json:"percent"`
}

// AxisDelta is a changed axis on the pad with Identifier.
type AxisDelta struct {
	Identifier string  `json:"identifier"`
	Index      int     `json:"axis_index"`
	Pressed    bool    `json:"pressed"`
	Value      float64 `json:"value"`
}

// Message is what the engine hands to subscribers. Exactly one payload
// field is set, matching Type. Controllers is shared between all
// recipients of a broadcast and must not be modified.
type Message struct {
	Type        MessageType
	Controllers []controller.Record
	Button      *ButtonDelta
	Axis        *AxisDelta
}

// Payload returns the value to encode for Type.
func (m Message) Payload() any {
	switch m.Type {
	case MessageButton:
		return m.Button
	case MessageAxis:
		return m.Axis
	default:
		return m.Controllers
	}
}

func buttonDelta(identifier string, b controller.ButtonState) ButtonDelta {
	return ButtonDelta{
		Identifier: identifier,
		Index:      b.Index,
		Pressed:    b.Pressed,
		Touched:    b.Touched,
		Value:      b.Value,
		Percent:    b.Percent,
	}
}

func axisDelta(identifier string, a controller.AxisState) AxisDelta {
	return AxisDelta{
		Identifier: identifier,
		Index:      a.Index,
		Pressed:    a.Pressed,
		Value:      a.Value,
	}
}
