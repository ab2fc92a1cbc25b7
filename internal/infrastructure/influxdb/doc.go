// Package influxdb writes playback metrics to InfluxDB v2.
//
// Writes are non-blocking and batched by the client library; write errors
// arrive asynchronously through the SetOnError callback. Two measurements
// are recorded:
//
//	lifecycle_command  tags: command, source, outcome   fields: duration_ms, failures
//	timing             tags: source                     fields: refresh_rate, core_hz, audio_input_rate, skew
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
package influxdb
