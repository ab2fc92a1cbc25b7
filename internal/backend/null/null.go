// Package null provides the "null" backend of every category: drivers that
// accept every lifecycle call, allocate nothing and record their state.
//
// The null backend is always the last entry of a category's registry, so a
// daemon without real backends for a category still resolves and runs.
// Named backends that have no native implementation are simulated with the
// same driver; their name is kept so selection and cycling behave as usual.
package null

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/playback-core/internal/driver"
	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// Name is the sentinel backend name.
const Name = "null"

// ErrNotBound is returned by Init before a backend is bound.
var ErrNotBound = errors.New("null: no backend bound")

// State is a snapshot of a driver.
type State struct {
	Category    string          `json:"category"`
	Backend     string          `json:"backend,omitempty"`
	Initialised bool            `json:"initialised"`
	HasData     bool            `json:"has_data"`
	Nonblock    bool            `json:"nonblock"`
	RefreshRate float64         `json:"refresh_rate,omitempty"`
	Rates       lifecycle.Rates `json:"rates"`
	Inits       int             `json:"inits"`
	Deinits     int             `json:"deinits"`
	Resets      int             `json:"context_resets"`
}

// Driver implements every lifecycle driver interface. It is safe for
// concurrent use so state can be read outside the lifecycle loop.
type Driver struct {
	category driver.Category

	mu         sync.Mutex
	state      State
	active     bool
	cacheAcked bool
	requested  bool
}

// New creates a driver for a category. Video drivers start active.
func New(c driver.Category) *Driver {
	return &Driver{
		category: c,
		state:    State{Category: c.String()},
		active:   c == driver.CategoryVideo,
	}
}

// Category returns the driver's category.
func (d *Driver) Category() driver.Category {
	return d.category
}

// State returns a snapshot.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Bind implements lifecycle.Driver.
func (d *Driver) Bind(b driver.Backend) error {
	d.mu.Lock()
	d.state.Backend = b.Name
	d.mu.Unlock()
	return nil
}

// Init implements lifecycle.Driver.
func (d *Driver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Backend == "" {
		return ErrNotBound
	}
	d.state.Initialised = true
	d.state.HasData = true
	d.state.Inits++
	return nil
}

// Deinit implements lifecycle.Driver.
func (d *Driver) Deinit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Initialised {
		d.state.Deinits++
	}
	d.state.Initialised = false
}

// DestroyData implements lifecycle.Driver.
func (d *Driver) DestroyData() {
	d.mu.Lock()
	d.state.HasData = false
	d.mu.Unlock()
}

// Destroy implements lifecycle.Driver.
func (d *Driver) Destroy() {
	d.mu.Lock()
	d.state.Backend = ""
	d.state.Initialised = false
	d.state.HasData = false
	d.mu.Unlock()
}

// MonitorReset implements lifecycle.VideoDriver.
func (d *Driver) MonitorReset() {}

// ApplyRates implements lifecycle.VideoDriver and lifecycle.AudioDriver.
func (d *Driver) ApplyRates(r lifecycle.Rates) error {
	d.mu.Lock()
	d.state.Rates = r
	d.mu.Unlock()
	return nil
}

// SetNonblockState implements lifecycle.VideoDriver and lifecycle.AudioDriver.
func (d *Driver) SetNonblockState(nonblock bool) error {
	d.mu.Lock()
	d.state.Nonblock = nonblock
	d.mu.Unlock()
	return nil
}

// IsActive implements lifecycle.VideoDriver.
func (d *Driver) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// SetActive marks video output as in use or not.
func (d *Driver) SetActive(active bool) {
	d.mu.Lock()
	d.active = active
	d.mu.Unlock()
}

// ContextCacheAcked implements lifecycle.VideoDriver.
func (d *Driver) ContextCacheAcked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cacheAcked
}

// ClearContextCacheAck implements lifecycle.VideoDriver.
func (d *Driver) ClearContextCacheAck() {
	d.mu.Lock()
	d.cacheAcked = false
	d.mu.Unlock()
}

// AckContextCache implements lifecycle.VideoDriver.
func (d *Driver) AckContextCache() {
	d.mu.Lock()
	d.cacheAcked = true
	d.mu.Unlock()
}

// SetRefreshRate implements lifecycle.AudioDriver.
func (d *Driver) SetRefreshRate(hz float64) error {
	d.mu.Lock()
	d.state.RefreshRate = hz
	d.mu.Unlock()
	return nil
}

// NonblockState implements lifecycle.InputDriver.
func (d *Driver) NonblockState() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requested
}

// RequestNonblock implements lifecycle.InputDriver.
func (d *Driver) RequestNonblock(on bool) {
	d.mu.Lock()
	d.requested = on
	d.mu.Unlock()
}

// ContextReset implements lifecycle.MenuDriver.
func (d *Driver) ContextReset() {
	d.mu.Lock()
	d.state.Resets++
	d.mu.Unlock()
}

// ContextDestroy implements lifecycle.MenuDriver.
func (d *Driver) ContextDestroy() {}

// Set holds one driver per managed category.
type Set struct {
	Video    *Driver
	Audio    *Driver
	Input    *Driver
	Camera   *Driver
	Location *Driver
	Menu     *Driver
}

// NewSet creates a driver for every category.
func NewSet() *Set {
	return &Set{
		Video:    New(driver.CategoryVideo),
		Audio:    New(driver.CategoryAudio),
		Input:    New(driver.CategoryInput),
		Camera:   New(driver.CategoryCamera),
		Location: New(driver.CategoryLocation),
		Menu:     New(driver.CategoryMenu),
	}
}

// Options fills the driver fields of coordinator options.
func (s *Set) Options(opts lifecycle.Options) lifecycle.Options {
	opts.Video = s.Video
	opts.Audio = s.Audio
	opts.Input = s.Input
	opts.Camera = s.Camera
	opts.Location = s.Location
	opts.Menu = s.Menu
	return opts
}

// States returns the state of every driver in category order.
func (s *Set) States() []State {
	return []State{
		s.Video.State(), s.Audio.State(), s.Input.State(),
		s.Camera.State(), s.Location.State(), s.Menu.State(),
	}
}

// Backend returns the null backend descriptor.
func Backend() driver.Backend {
	return driver.Backend{Name: Name}
}

// Registry builds a category registry of the named backends followed by the
// null backend. Blank names are skipped and a listed "null" is moved last.
func Registry(names ...string) *driver.StaticRegistry {
	backends := make([]driver.Backend, 0, len(names)+1)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || strings.EqualFold(n, Name) {
			continue
		}
		backends = append(backends, driver.Backend{Name: n, Handle: n})
	}
	backends = append(backends, Backend())
	return driver.NewStaticRegistry(backends...)
}

// NewEnumerator registers a Registry for every category. backends maps a
// category label to the names registered before the null backend.
func NewEnumerator(backends map[string][]string) (*driver.Enumerator, error) {
	byCategory := make(map[driver.Category][]string, len(backends))
	for label, names := range backends {
		c, err := driver.ParseCategory(label)
		if err != nil {
			return nil, fmt.Errorf("backends.%s: %w", label, err)
		}
		byCategory[c] = append(byCategory[c], names...)
	}

	e := driver.NewEnumerator()
	for _, c := range driver.AllCategories() {
		if err := e.Register(c, Registry(byCategory[c]...)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Compile-time interface checks.
var (
	_ lifecycle.VideoDriver = (*Driver)(nil)
	_ lifecycle.AudioDriver = (*Driver)(nil)
	_ lifecycle.InputDriver = (*Driver)(nil)
	_ lifecycle.MenuDriver  = (*Driver)(nil)
)
