package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
)

// Logger defines the logging interface used by the Coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options are the collaborators of a Coordinator.
//
// Video, Audio and Input are required. Camera, Location and Menu may be nil
// when the frontend is built without them; commands then skip them.
type Options struct {
	Video    VideoDriver
	Audio    AudioDriver
	Input    InputDriver
	Camera   Driver
	Location Driver
	Menu     MenuDriver

	// Backends enumerates the registered backends of every category.
	Backends driver.Source

	// Selections provides the configured backend names.
	Selections SelectionSource

	// Capabilities decides whether camera and location are allocated.
	// Nil means never.
	Capabilities CapabilitySource

	// Recorder is restarted when the A/V info changes. Optional.
	Recorder Recorder

	// Notifier receives transient user messages. Optional.
	Notifier Notifier

	Hooks    Hooks
	Settings Settings

	// AVInfo is the initial system A/V info.
	AVInfo AVInfo
}

// slot is the coordinator's bookkeeping for one category.
type slot struct {
	category driver.Category
	drv      Driver
	backend  driver.Backend
	resolved bool // a backend is bound (INIT_PRE succeeded)
	live     bool // Init succeeded and Deinit has not run
	hasData  bool // the owned resource layer exists
	own      driver.Ownership
}

// Coordinator is the driver lifecycle state machine.
//
// It is confined to one goroutine; see Loop.
type Coordinator struct {
	video    VideoDriver
	audio    AudioDriver
	input    InputDriver
	menu     MenuDriver
	slots    map[driver.Category]*slot
	backends driver.Source
	resolver *driver.Resolver

	selections SelectionSource
	caps       CapabilitySource
	recorder   Recorder
	notifier   Notifier
	hooks      Hooks
	settings   Settings

	prepared    bool
	av          AVInfo
	refreshRate float64
	rates       Rates
	nonblock    bool

	logger   Logger
	observer Observer
	now      func() time.Time
}

// initPreOrder is the order backends are resolved in.
var initPreOrder = []driver.Category{
	driver.CategoryAudio,
	driver.CategoryVideo,
	driver.CategoryInput,
	driver.CategoryCamera,
	driver.CategoryLocation,
	driver.CategoryMenu,
}

// deinitOrder is the order backends are destroyed in.
var deinitOrder = []driver.Category{
	driver.CategoryVideo,
	driver.CategoryAudio,
	driver.CategoryInput,
	driver.CategoryMenu,
	driver.CategoryLocation,
	driver.CategoryCamera,
}

// New creates a coordinator. Nothing is resolved or allocated until the
// first INIT_PRE and INIT commands.
func New(opts Options) (*Coordinator, error) {
	if opts.Video == nil || opts.Audio == nil || opts.Input == nil {
		return nil, fmt.Errorf("%w: video, audio and input are required", ErrMissingDriver)
	}
	if opts.Backends == nil {
		return nil, fmt.Errorf("%w: backend source is required", ErrMissingDriver)
	}
	if opts.Selections == nil {
		return nil, fmt.Errorf("%w: selection source is required", ErrMissingDriver)
	}

	c := &Coordinator{
		video:       opts.Video,
		audio:       opts.Audio,
		input:       opts.Input,
		menu:        opts.Menu,
		slots:       make(map[driver.Category]*slot),
		backends:    opts.Backends,
		resolver:    driver.NewResolver(opts.Backends),
		selections:  opts.Selections,
		caps:        opts.Capabilities,
		recorder:    opts.Recorder,
		notifier:    opts.Notifier,
		hooks:       opts.Hooks,
		settings:    opts.Settings,
		av:          opts.AVInfo,
		refreshRate: opts.Settings.RefreshRate,
		logger:      noopLogger{},
		observer:    Observers(nil),
		now:         time.Now,
	}

	c.addSlot(driver.CategoryVideo, opts.Video)
	c.addSlot(driver.CategoryAudio, opts.Audio)
	c.addSlot(driver.CategoryInput, opts.Input)
	if opts.Camera != nil {
		c.addSlot(driver.CategoryCamera, opts.Camera)
	}
	if opts.Location != nil {
		c.addSlot(driver.CategoryLocation, opts.Location)
	}
	if opts.Menu != nil {
		c.addSlot(driver.CategoryMenu, opts.Menu)
	}

	c.rates = DeriveRates(c.av, c.refreshRate, c.settings.MaxTimingSkew)
	return c, nil
}

func (c *Coordinator) addSlot(cat driver.Category, drv Driver) {
	c.slots[cat] = &slot{category: cat, drv: drv, own: driver.Owned()}
}

// SetLogger sets the logger for the coordinator and its resolver.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
	c.resolver.SetLogger(logger)
}

// SetObserver sets the observer notified after every command.
func (c *Coordinator) SetObserver(o Observer) {
	if o == nil {
		o = Observers(nil)
	}
	c.observer = o
}

// Control executes one command. It is the single entry point for the main
// loop and every remote surface.
//
// A precondition violation (missing or invalid payload, INIT before
// INIT_PRE, unknown command) returns an error and changes nothing. Otherwise
// the command runs to completion and the Result lists any backend that
// failed its part.
func (c *Coordinator) Control(req Request) (Result, error) {
	started := c.now()
	res := Result{Command: req.Command}

	err := c.validate(req)
	if err == nil {
		c.dispatch(req, &res)
	}

	res.Duration = c.now().Sub(started)
	c.emit(req, res, err, started)

	if err != nil {
		c.logger.Error("lifecycle command rejected",
			"command", req.Command.String(),
			"error", err,
		)
		return Result{Command: req.Command}, err
	}

	if !res.OK() {
		c.logger.Warn("lifecycle command completed with failures",
			"command", req.Command.String(),
			"failed", len(res.Failures),
		)
	} else {
		c.logger.Debug("lifecycle command completed",
			"command", req.Command.String(),
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	return res, nil
}

// validate checks the preconditions of req without side effects.
func (c *Coordinator) validate(req Request) error {
	switch req.Command {
	case CommandInitPre, CommandDeinit, CommandSetNonblockState:
		return nil
	case CommandInit:
		if req.Drivers == nil {
			return fmt.Errorf("%w: %s needs a driver set", ErrMissingPayload, req.Command)
		}
		if !c.prepared {
			return fmt.Errorf("%w: %s issued before %s", ErrNotResolved, req.Command, CommandInitPre)
		}
		return nil
	case CommandUninit:
		if req.Drivers == nil {
			return fmt.Errorf("%w: %s needs a driver set", ErrMissingPayload, req.Command)
		}
		return nil
	case CommandSetRefreshRate:
		if req.RefreshRate == nil {
			return fmt.Errorf("%w: %s needs a rate", ErrMissingPayload, req.Command)
		}
		hz := *req.RefreshRate
		if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
			return fmt.Errorf("%w: refresh rate %v", ErrInvalidPayload, hz)
		}
		return nil
	case CommandUpdateSystemAVInfo:
		if req.AVInfo == nil {
			return fmt.Errorf("%w: %s needs A/V info", ErrMissingPayload, req.Command)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, int(req.Command))
	}
}

// dispatch runs a validated command.
func (c *Coordinator) dispatch(req Request, res *Result) {
	switch req.Command {
	case CommandInitPre:
		c.initPre(res)
	case CommandInit:
		if req.KeepContext && req.Drivers.Has(driver.CategoryVideo) {
			c.video.AckContextCache()
		}
		c.initDrivers(*req.Drivers, res)
	case CommandUninit:
		c.uninitDrivers(*req.Drivers, res)
	case CommandDeinit:
		c.deinit()
	case CommandSetNonblockState:
		if req.Nonblock != nil {
			c.input.RequestNonblock(*req.Nonblock)
		}
		c.setNonblockState(res)
	case CommandSetRefreshRate:
		c.setRefreshRate(*req.RefreshRate, res)
	case CommandUpdateSystemAVInfo:
		c.updateSystemAVInfo(*req.AVInfo, res)
	}
}

// Ownership returns the ownership of a category. Categories without a
// driver report Owned.
func (c *Coordinator) Ownership(cat driver.Category) driver.Ownership {
	if s, ok := c.slots[cat]; ok {
		return s.own
	}
	return driver.Owned()
}

// SetOwnership records an ownership transfer. It is pure bookkeeping: the
// resource is neither copied nor touched. INIT resets it for the categories
// it initialises.
func (c *Coordinator) SetOwnership(cat driver.Category, o driver.Ownership) {
	s, ok := c.slots[cat]
	if !ok {
		return
	}
	if s.own != o {
		c.logger.Debug("driver ownership changed",
			"category", cat.String(),
			"from", s.own.String(),
			"to", o.String(),
		)
	}
	s.own = o
}

// AVInfo returns the current system A/V info.
func (c *Coordinator) AVInfo() AVInfo {
	return c.av
}

// RefreshRate returns the cached monitor refresh rate.
func (c *Coordinator) RefreshRate() float64 {
	return c.refreshRate
}

// Rates returns the most recently derived system rates.
func (c *Coordinator) Rates() Rates {
	return c.rates
}
