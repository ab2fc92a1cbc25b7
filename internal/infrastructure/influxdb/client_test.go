package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/playback-core/internal/infrastructure/config"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}

type fakePinger struct {
	healthy bool
	err     error
	closed  bool
}

func (f *fakePinger) Ping(context.Context) (bool, error) { return f.healthy, f.err }
func (f *fakePinger) Close()                             { f.closed = true }

func newTestClient() (*Client, *fakeWriter, *fakePinger) {
	w := &fakeWriter{}
	p := &fakePinger{healthy: true}
	return &Client{client: p, writeAPI: w, connected: true}, w, p
}

func tags(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestWriteCommand(t *testing.T) {
	tests := []struct {
		name   string
		metric CommandMetric
		want   string
	}{
		{"ok", CommandMetric{Command: "init", Source: "api"}, OutcomeOK},
		{"partial", CommandMetric{Command: "init", Failures: 2}, OutcomePartial},
		{"rejected", CommandMetric{Command: "init", Failures: 1, Rejected: true}, OutcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w, _ := newTestClient()
			tt.metric.Duration = 1500 * time.Microsecond
			c.WriteCommand(tt.metric)

			if len(w.points) != 1 {
				t.Fatalf("points = %d, want 1", len(w.points))
			}
			p := w.points[0]
			if p.Name() != MeasurementCommand {
				t.Errorf("Name() = %q", p.Name())
			}
			if got := tags(p)["outcome"]; got != tt.want {
				t.Errorf("outcome = %q, want %q", got, tt.want)
			}
			if got := fields(p)["duration_ms"]; got != 1.5 {
				t.Errorf("duration_ms = %v, want 1.5", got)
			}
			if p.Time().IsZero() {
				t.Error("point has no timestamp")
			}
		})
	}
}

func TestWriteTiming(t *testing.T) {
	c, w, _ := newTestClient()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	c.WriteTiming(TimingMetric{Source: "api", RefreshRate: 59.94, CoreHz: 59.94, AudioInputRate: 47952, Skew: 0.001, At: at})

	p := w.points[0]
	f := fields(p)
	if p.Name() != MeasurementTiming || !p.Time().Equal(at) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}
	if f["refresh_rate"] != 59.94 || f["audio_input_rate"] != 47952.0 {
		t.Errorf("fields = %v", f)
	}
}

func TestWritesDroppedWhenDisconnected(t *testing.T) {
	c, w, p := newTestClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !p.closed || w.flushes != 1 {
		t.Errorf("Close() closed=%v flushes=%d", p.closed, w.flushes)
	}

	c.WritePoint("custom", nil, map[string]interface{}{"v": 1})
	c.Flush()
	if len(w.points) != 0 || w.flushes != 1 {
		t.Errorf("disconnected client wrote %d points, flushed %d times", len(w.points), w.flushes)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck(t *testing.T) {
	c, _, p := newTestClient()
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	p.healthy = false
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on unhealthy server returned nil")
	}

	p.err = errors.New("connection refused")
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on ping error returned nil")
	}
}

func TestHandleWriteErrors(t *testing.T) {
	c, _, _ := newTestClient()

	var got []error
	c.SetOnError(func(err error) { got = append(got, err) })

	ch := make(chan error, 2)
	ch <- errors.New("bucket not found")
	ch <- errors.New("unauthorized")
	close(ch)
	c.handleWriteErrors(ch)

	if len(got) != 2 {
		t.Errorf("callback saw %d errors, want 2", len(got))
	}
}

func TestClose_Nil(t *testing.T) {
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}
