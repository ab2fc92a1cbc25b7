package control

import (
	"github.com/nerrad567/playback-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// MetricsWriter is the part of the InfluxDB client used for metrics. Its
// writes are non-blocking.
type MetricsWriter interface {
	WriteCommand(m influxdb.CommandMetric)
	WriteTiming(m influxdb.TimingMetric)
}

// Metrics is a lifecycle.Observer recording every command and, whenever the
// derived rates change, the system timing.
type Metrics struct {
	w    MetricsWriter
	last lifecycle.Rates
}

// NewMetrics creates a metrics observer.
func NewMetrics(w MetricsWriter) *Metrics {
	return &Metrics{w: w}
}

// OnLifecycleEvent implements lifecycle.Observer.
func (m *Metrics) OnLifecycleEvent(ev lifecycle.Event) {
	source := ev.Source
	if source == "" {
		source = "loop"
	}

	m.w.WriteCommand(influxdb.CommandMetric{
		Command:  ev.Command.String(),
		Source:   source,
		Duration: ev.Duration,
		Failures: len(ev.Failures),
		Rejected: ev.Rejected(),
		At:       ev.StartedAt,
	})

	if ev.Rejected() {
		return
	}
	rates := ev.Status.Rates
	if rates == m.last || (rates == lifecycle.Rates{}) {
		return
	}
	m.last = rates
	m.w.WriteTiming(influxdb.TimingMetric{
		Source:         source,
		RefreshRate:    rates.RefreshRate,
		CoreHz:         rates.CoreHz,
		AudioInputRate: rates.AudioInputRate,
		Skew:           rates.Skew,
		At:             ev.StartedAt.Add(ev.Duration),
	})
}
