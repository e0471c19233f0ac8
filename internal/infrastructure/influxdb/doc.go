// Package influxdb records changed gamepad input samples as time series.
//
// Only samples that changed state reach it, so the write volume follows
// real activity rather than the capture polling rate. Writes are batched
// and non-blocking; asynchronous failures go to the SetOnError callback.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteAxisSample("7d1f...", 0, false, -0.25)
//
// Measurements: gamepad_button (tags identifier, button) and gamepad_axis
// (tags identifier, axis).
package influxdb
