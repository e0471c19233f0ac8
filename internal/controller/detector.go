package controller

import "fmt"

// ApplyButton compares a button sample with the stored state of the pad
// at connectionIndex. An unknown button index is appended (Created); a
// sample differing in any field overwrites all four (Updated); otherwise
// nothing changes (Unchanged). Floats compare exactly.
//
// The pad's identifier is returned so the caller can route the delta.
func (r *Registry) ApplyButton(connectionIndex int, sample ButtonState) (identifier string, outcome Outcome, err error) {
	rec, ok := r.byIndex[connectionIndex]
	if !ok {
		return "", Unchanged, fmt.Errorf("%w: %d", ErrUnknownConnection, connectionIndex)
	}
	if sample.Index < 0 {
		return rec.Identifier, Unchanged, fmt.Errorf("%w: button %d", ErrInvalidControl, sample.Index)
	}

	i := findButton(rec.Buttons, sample.Index)
	if i < 0 {
		rec.Buttons = append(rec.Buttons, sample)
		return rec.Identifier, Created, nil
	}
	if rec.Buttons[i] == sample {
		return rec.Identifier, Unchanged, nil
	}
	rec.Buttons[i] = sample
	return rec.Identifier, Updated, nil
}

// ApplyAxis is ApplyButton for axes, comparing pressed and value.
func (r *Registry) ApplyAxis(connectionIndex int, sample AxisState) (identifier string, outcome Outcome, err error) {
	rec, ok := r.byIndex[connectionIndex]
	if !ok {
		return "", Unchanged, fmt.Errorf("%w: %d", ErrUnknownConnection, connectionIndex)
	}
	if sample.Index < 0 {
		return rec.Identifier, Unchanged, fmt.Errorf("%w: axis %d", ErrInvalidControl, sample.Index)
	}

	i := findAxis(rec.Axes, sample.Index)
	if i < 0 {
		rec.Axes = append(rec.Axes, sample)
		return rec.Identifier, Created, nil
	}
	if rec.Axes[i] == sample {
		return rec.Identifier, Unchanged, nil
	}
	rec.Axes[i] = sample
	return rec.Identifier, Updated, nil
}

// findButton returns the position of button index in buttons, or -1.
// Buttons created on connect sit at their own index, so that is tried first.
func findButton(buttons []ButtonState, index int) int {
	if index < len(buttons) && buttons[index].Index == index {
		return index
	}
	for i := range buttons {
		if buttons[i].Index == index {
			return i
		}
	}
	return -1
}

func findAxis(axes []AxisState, index int) int {
	if index < len(axes) && axes[index].Index == index {
		return index
	}
	for i := range axes {
		if axes[i].Index == index {
			return i
		}
	}
	return -1
}
