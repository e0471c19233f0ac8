package controller

// ButtonState is the last reported state of one button.
type ButtonState struct {
	Index   int     `json:"button_index"`
	Pressed bool    `json:"pressed"`
	Touched bool    `json:"touched"`
	Value   float64 `json:"value"`   // 0..1
	Percent int     `json:"percent"` // 0..100
}

// AxisState is the last reported state of one axis.
type AxisState struct {
	Index   int     `json:"axis_index"`
	Pressed bool    `json:"pressed"`
	Value   float64 `json:"value"` // -1..1
}

// Record is one connected gamepad.
type Record struct {
	// ConnectionIndex is assigned by the capture layer and may be reused
	// after a disconnect.
	ConnectionIndex int `json:"index"`

	// Name is the display name the pad reports. Identical models share it.
	Name string `json:"name"`

	// Identifier is stable across reconnects of the same pad.
	Identifier string `json:"identifier"`

	// InUse is true while at least one subscriber has joined the pad's group.
	InUse bool `json:"in_use"`

	Buttons []ButtonState `json:"buttons"`
	Axes    []AxisState   `json:"axes"`
}

// DeepCopy returns a copy sharing no slices with r.
func (r *Record) DeepCopy() Record {
	cp := *r
	cp.Buttons = append(make([]ButtonState, 0, len(r.Buttons)), r.Buttons...)
	cp.Axes = append(make([]AxisState, 0, len(r.Axes)), r.Axes...)
	return cp
}

// Outcome classifies a sample against the stored control state.
type Outcome int

const (
	// Unchanged means the sample matched the stored state exactly.
	Unchanged Outcome = iota
	// Updated means at least one field differed and was overwritten.
	Updated
	// Created means the control index was not known and has been added.
	Created
)

// Changed reports whether a delta should be routed for the outcome.
func (o Outcome) Changed() bool {
	return o == Updated || o == Created
}

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}
