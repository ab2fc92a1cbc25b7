package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCommand = "lifecycle_command"
	MeasurementTiming  = "timing"
)

// Command outcomes tagged on lifecycle_command points.
const (
	OutcomeOK       = "ok"
	OutcomePartial  = "partial"
	OutcomeRejected = "rejected"
)

// CommandMetric describes one executed lifecycle command.
type CommandMetric struct {
	Command  string
	Source   string
	Duration time.Duration
	Failures int
	Rejected bool
	At       time.Time
}

// Outcome classifies the command for tagging.
func (m CommandMetric) Outcome() string {
	switch {
	case m.Rejected:
		return OutcomeRejected
	case m.Failures > 0:
		return OutcomePartial
	default:
		return OutcomeOK
	}
}

// TimingMetric is the derived system timing after a reconfiguration.
type TimingMetric struct {
	Source         string
	RefreshRate    float64
	CoreHz         float64
	AudioInputRate float64
	Skew           float64
	At             time.Time
}

// WriteCommand records one lifecycle command.
func (c *Client) WriteCommand(m CommandMetric) {
	c.WritePointWithTime(MeasurementCommand,
		map[string]string{
			"command": m.Command,
			"source":  m.Source,
			"outcome": m.Outcome(),
		},
		map[string]interface{}{
			"duration_ms": float64(m.Duration) / float64(time.Millisecond),
			"failures":    m.Failures,
		},
		m.At,
	)
}

// WriteTiming records derived system timing.
func (c *Client) WriteTiming(m TimingMetric) {
	c.WritePointWithTime(MeasurementTiming,
		map[string]string{"source": m.Source},
		map[string]interface{}{
			"refresh_rate":     m.RefreshRate,
			"core_hz":          m.CoreHz,
			"audio_input_rate": m.AudioInputRate,
			"skew":             m.Skew,
		},
		m.At,
	)
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Time{})
}

// WritePointWithTime writes a custom point. A zero timestamp means now.
// Points are dropped while the client is disconnected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
