package control

import (
	"context"
	"time"

	"github.com/nerrad567/playback-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// defaultQueueSize bounds the events waiting to be published.
const defaultQueueSize = 64

// Publisher is the part of the MQTT client used to publish.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// DriverState is the retained payload of playback/driver/{category}/state.
type DriverState struct {
	lifecycle.DriverStatus
	UpdatedAt time.Time `json:"updated_at"`
}

// EventMessage is the payload of playback/core/event/{command}.
type EventMessage struct {
	OK    bool            `json:"ok"`
	Event lifecycle.Event `json:"event"`
}

// StatePublisher publishes lifecycle events and retained driver state.
type StatePublisher struct {
	pub    Publisher
	queue  chan lifecycle.Event
	logger Logger
	now    func() time.Time
}

// NewStatePublisher creates a publisher. Call Run to start publishing.
func NewStatePublisher(pub Publisher) *StatePublisher {
	return &StatePublisher{
		pub:    pub,
		queue:  make(chan lifecycle.Event, defaultQueueSize),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the publisher.
func (p *StatePublisher) SetLogger(logger Logger) {
	p.logger = logger
}

// OnLifecycleEvent implements lifecycle.Observer. Events are dropped with a
// warning when the queue is full.
func (p *StatePublisher) OnLifecycleEvent(ev lifecycle.Event) {
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("event queue full, dropping lifecycle event", "command", ev.Command.String())
	}
}

// Run publishes queued events until ctx is cancelled.
func (p *StatePublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			p.publishEvent(ev)
		}
	}
}

func (p *StatePublisher) publishEvent(ev lifecycle.Event) {
	msg := EventMessage{OK: !ev.Rejected() && len(ev.Failures) == 0, Event: ev}
	if err := p.pub.PublishJSON(mqtt.Topics{}.CoreEvent(ev.Command.String()), msg, false); err != nil {
		p.logger.Warn("publishing lifecycle event failed", "command", ev.Command.String(), "error", err)
	}
	if !ev.Rejected() {
		p.PublishStatus(ev.Status)
	}
}

// PublishStatus publishes the retained state of every category in st.
func (p *StatePublisher) PublishStatus(st lifecycle.Status) {
	now := p.now().UTC()
	for _, d := range st.Drivers {
		topic := mqtt.Topics{}.DriverState(d.Category.String())
		if err := p.pub.PublishJSON(topic, DriverState{DriverStatus: d, UpdatedAt: now}, true); err != nil {
			p.logger.Warn("publishing driver state failed", "category", d.Category.String(), "error", err)
		}
	}
}
