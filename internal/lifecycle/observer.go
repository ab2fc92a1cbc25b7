package lifecycle

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
)

// Event describes one command handled by the coordinator, rejected or not.
type Event struct {
	Command     Command     `json:"command"`
	Drivers     *driver.Set `json:"drivers,omitempty"`
	RefreshRate *float64    `json:"refresh_rate,omitempty"`
	AVInfo      *AVInfo     `json:"av_info,omitempty"`
	Nonblock    *bool       `json:"nonblock,omitempty"`
	KeepContext bool        `json:"keep_context,omitempty"`
	Source      string      `json:"source,omitempty"`

	// Failures are the per-backend failures of an accepted command.
	Failures []Failure `json:"failures,omitempty"`

	// Err is set when the command was rejected before doing anything.
	Err error `json:"-"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	// Status is the coordinator state after the command.
	Status Status `json:"status"`
}

// Rejected reports whether the command failed its preconditions.
func (e Event) Rejected() bool {
	return e.Err != nil
}

// MarshalJSON renders the event with the rejection error as text.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	var msg string
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(e), msg})
}

// Observer is notified after every command. It runs on the coordinator's
// goroutine and must not block or call back into the coordinator.
type Observer interface {
	OnLifecycleEvent(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// OnLifecycleEvent implements Observer.
func (f ObserverFunc) OnLifecycleEvent(e Event) {
	f(e)
}

// Observers fans an event out to several observers in order.
type Observers []Observer

// OnLifecycleEvent implements Observer.
func (os Observers) OnLifecycleEvent(e Event) {
	for _, o := range os {
		if o != nil {
			o.OnLifecycleEvent(e)
		}
	}
}

// DriverStatus is the coordinator's view of one category.
type DriverStatus struct {
	Category  driver.Category  `json:"category"`
	Backend   string           `json:"backend"`
	Resolved  bool             `json:"resolved"`
	Live      bool             `json:"live"`
	HasData   bool             `json:"has_data"`
	Ownership driver.Ownership `json:"ownership"`
}

// Status is a snapshot of the coordinator.
type Status struct {
	Prepared    bool           `json:"prepared"`
	Drivers     []DriverStatus `json:"drivers"`
	RefreshRate float64        `json:"refresh_rate"`
	Rates       Rates          `json:"rates"`
	AVInfo      AVInfo         `json:"av_info"`
	Nonblock    bool           `json:"nonblock"`
}

// Driver returns the status of one category.
func (s Status) Driver(c driver.Category) (DriverStatus, bool) {
	for _, d := range s.Drivers {
		if d.Category == c {
			return d, true
		}
	}
	return DriverStatus{}, false
}

// Status returns a snapshot of the coordinator state. Categories are listed
// in category order.
func (c *Coordinator) Status() Status {
	st := Status{
		Prepared:    c.prepared,
		RefreshRate: c.refreshRate,
		Rates:       c.rates,
		AVInfo:      c.av,
		Nonblock:    c.nonblock,
	}
	for _, cat := range driver.AllCategories() {
		s, ok := c.slots[cat]
		if !ok {
			continue
		}
		st.Drivers = append(st.Drivers, DriverStatus{
			Category:  cat,
			Backend:   s.backend.Name,
			Resolved:  s.resolved,
			Live:      s.live,
			HasData:   s.hasData,
			Ownership: s.own,
		})
	}
	return st
}

func (c *Coordinator) emit(req Request, res Result, err error, started time.Time) {
	c.observer.OnLifecycleEvent(Event{
		Command:     req.Command,
		Drivers:     req.Drivers,
		RefreshRate: req.RefreshRate,
		AVInfo:      req.AVInfo,
		Nonblock:    req.Nonblock,
		KeepContext: req.KeepContext,
		Source:      req.Source,
		Failures:    res.Failures,
		Err:         err,
		StartedAt:   started,
		Duration:    res.Duration,
		Status:      c.Status(),
	})
}
