package lifecycle

import (
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
)

// Driver is the lifecycle surface every managed subsystem exposes.
//
// The layers are distinct: Bind caches the selected backend without
// allocating anything, Init allocates the live backend, Deinit frees it,
// DestroyData releases the underlying resource the category owns (a window,
// a device handle), and Destroy drops the bound backend entirely.
type Driver interface {
	Bind(backend driver.Backend) error
	Init() error
	Deinit()
	DestroyData()
	Destroy()
}

// VideoDriver is the video subsystem.
type VideoDriver interface {
	Driver

	// MonitorReset clears frame-timing statistics before a new context.
	MonitorReset()

	// ApplyRates adopts freshly derived system rates.
	ApplyRates(r Rates) error

	// SetNonblockState switches vsync-throttled presentation on or off.
	SetNonblockState(nonblock bool) error

	// IsActive reports whether video output is in use at all.
	IsActive() bool

	// ContextCacheAcked reports whether the plugin asked to keep its
	// hardware context across the last reinit; ClearContextCacheAck resets it.
	ContextCacheAcked() bool
	ClearContextCacheAck()

	// AckContextCache records that the plugin keeps its context across the
	// next reinit.
	AckContextCache()
}

// AudioDriver is the audio subsystem.
type AudioDriver interface {
	Driver

	// SetRefreshRate informs the audio timing monitor of a new display rate.
	SetRefreshRate(hz float64) error

	// ApplyRates adopts freshly derived system rates.
	ApplyRates(r Rates) error

	// SetNonblockState switches blocking writes on or off.
	SetNonblockState(nonblock bool) error
}

// InputDriver is the input subsystem. Its live state rides on the video
// context: it is attached after video comes up and torn down with it.
type InputDriver interface {
	Driver

	// NonblockState reports whether the user asked for unthrottled
	// (fast-forward) execution.
	NonblockState() bool

	// RequestNonblock replaces the user's fast-forward request.
	RequestNonblock(on bool)
}

// MenuDriver is the menu overlay subsystem.
type MenuDriver interface {
	Driver

	// ContextReset recreates menu rendering state on the current video context.
	ContextReset()

	// ContextDestroy drops menu rendering state before the video context goes.
	ContextDestroy()
}

// SelectionSource provides the configured backend name of each category.
// It is read once per INIT_PRE.
type SelectionSource interface {
	Selected(c driver.Category) string
}

// CapabilitySource answers whether the active plugin requested the optional
// camera and location subsystems. Those are only allocated on request.
type CapabilitySource interface {
	CameraRequested() bool
	LocationRequested() bool
}

// Recorder is the recording session the A/V reconfiguration must restart.
type Recorder interface {
	Active() bool
	Stop() error
	Start(av AVInfo) error
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(message string, duration time.Duration)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, duration time.Duration)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string, duration time.Duration) {
	f(message, duration)
}

// Hooks are optional callbacks into the hosting frontend. Nil hooks are skipped.
type Hooks struct {
	// ContextReset is the plugin's hardware-render context reset callback,
	// fired after the video backend is allocated unless the plugin
	// acknowledged a cached context.
	ContextReset func()

	// FrameTimeReset records a fresh frame-time baseline.
	FrameTimeReset func()

	// RefreshPluginInfo refreshes the cached plugin metadata the menu shows.
	// Called on every INIT.
	RefreshPluginInfo func()

	// ReleaseCallbacks drops the plugin environment callback table on DEINIT.
	ReleaseCallbacks func()
}

// Settings are the user settings the coordinator consults.
type Settings struct {
	// VSync enables vsync. Without it video always runs nonblocking.
	VSync bool

	// ForceNonblock is set when the running system demands unthrottled video.
	ForceNonblock bool

	// RefreshRate is the initial monitor refresh rate in Hz.
	RefreshRate float64

	// MaxTimingSkew is the largest relative difference between content and
	// monitor rate that is bridged by resampling audio (e.g. 0.05).
	MaxTimingSkew float64
}
