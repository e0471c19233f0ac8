package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementButton = "gamepad_button"
	MeasurementAxis   = "gamepad_axis"
)

// WriteButtonSample records a changed button. Non-blocking.
func (c *Client) WriteButtonSample(identifier string, button int, pressed, touched bool, value float64, percent int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(buttonPoint(identifier, button, pressed, touched, value, percent, time.Now()))
}

// WriteAxisSample records a changed axis. Non-blocking.
func (c *Client) WriteAxisSample(identifier string, axis int, pressed bool, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(axisPoint(identifier, axis, pressed, value, time.Now()))
}

func buttonPoint(identifier string, button int, pressed, touched bool, value float64, percent int, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementButton,
		map[string]string{
			"identifier": identifier,
			"button":     strconv.Itoa(button),
		},
		map[string]any{
			"pressed": pressed,
			"touched": touched,
			"value":   value,
			"percent": int64(percent),
		},
		ts)
}

func axisPoint(identifier string, axis int, pressed bool, value float64, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementAxis,
		map[string]string{
			"identifier": identifier,
			"axis":       strconv.Itoa(axis),
		},
		map[string]any{
			"pressed": pressed,
			"value":   value,
		},
		ts)
}
