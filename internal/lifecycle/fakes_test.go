package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
)

// fakeDriver counts every lifecycle call.
type fakeDriver struct {
	bound       string
	binds       int
	inits       int
	deinits     int
	destroyData int
	destroys    int
	initErr     error
}

func (f *fakeDriver) Bind(b driver.Backend) error {
	f.binds++
	f.bound = b.Name
	return nil
}

func (f *fakeDriver) Init() error {
	if f.initErr != nil {
		return f.initErr
	}
	f.inits++
	return nil
}

func (f *fakeDriver) Deinit()      { f.deinits++ }
func (f *fakeDriver) DestroyData() { f.destroyData++ }
func (f *fakeDriver) Destroy()     { f.destroys++ }

type fakeVideo struct {
	fakeDriver
	monitorResets int
	rates         []Rates
	ratesErr      error
	nonblock      []bool
	active        bool
	cacheAcked    bool
	ackCleared    int
}

func (f *fakeVideo) MonitorReset() { f.monitorResets++ }

func (f *fakeVideo) ApplyRates(r Rates) error {
	f.rates = append(f.rates, r)
	return f.ratesErr
}

func (f *fakeVideo) SetNonblockState(nb bool) error {
	f.nonblock = append(f.nonblock, nb)
	return nil
}

func (f *fakeVideo) IsActive() bool          { return f.active }
func (f *fakeVideo) ContextCacheAcked() bool { return f.cacheAcked }
func (f *fakeVideo) AckContextCache()        { f.cacheAcked = true }
func (f *fakeVideo) ClearContextCacheAck() {
	f.ackCleared++
	f.cacheAcked = false
}

// lastNonblock returns the most recent nonblocking state, or false with ok
// unset when none was applied.
func (f *fakeVideo) lastNonblock() (nb, ok bool) {
	if len(f.nonblock) == 0 {
		return false, false
	}
	return f.nonblock[len(f.nonblock)-1], true
}

type fakeAudio struct {
	fakeDriver
	refreshRates []float64
	rates        []Rates
	ratesErr     error
	nonblock     []bool
}

func (f *fakeAudio) SetRefreshRate(hz float64) error {
	f.refreshRates = append(f.refreshRates, hz)
	return nil
}

func (f *fakeAudio) ApplyRates(r Rates) error {
	f.rates = append(f.rates, r)
	return f.ratesErr
}

func (f *fakeAudio) SetNonblockState(nb bool) error {
	f.nonblock = append(f.nonblock, nb)
	return nil
}

type fakeInput struct {
	fakeDriver
	nonblock bool
}

func (f *fakeInput) NonblockState() bool { return f.nonblock }

func (f *fakeInput) RequestNonblock(on bool) { f.nonblock = on }

type fakeMenu struct {
	fakeDriver
	contextResets   int
	contextDestroys int
}

func (f *fakeMenu) ContextReset()   { f.contextResets++ }
func (f *fakeMenu) ContextDestroy() { f.contextDestroys++ }

type fakeSelections map[driver.Category]string

func (s fakeSelections) Selected(c driver.Category) string { return s[c] }

type fakeCaps struct {
	camera   bool
	location bool
}

func (f fakeCaps) CameraRequested() bool   { return f.camera }
func (f fakeCaps) LocationRequested() bool { return f.location }

// fakeRecorder logs stop/start calls in order.
type fakeRecorder struct {
	active bool
	calls  []string
	av     AVInfo
}

func (r *fakeRecorder) Active() bool { return r.active }

func (r *fakeRecorder) Stop() error {
	r.calls = append(r.calls, "stop")
	r.active = false
	return nil
}

func (r *fakeRecorder) Start(av AVInfo) error {
	r.calls = append(r.calls, "start")
	r.av = av
	r.active = true
	return nil
}

type notice struct {
	message  string
	duration time.Duration
}

var errBoom = errors.New("boom")

// harness bundles a coordinator with its fakes.
type harness struct {
	coord    *Coordinator
	video    *fakeVideo
	audio    *fakeAudio
	input    *fakeInput
	camera   *fakeDriver
	location *fakeDriver
	menu     *fakeMenu
	recorder *fakeRecorder
	notices  []notice
	events   []Event
	hooks    map[string]int
}

func testBackends(t *testing.T) *driver.Enumerator {
	t.Helper()

	e := driver.NewEnumerator()
	lists := map[driver.Category][]string{
		driver.CategoryVideo:    {"gl", "vulkan", "null"},
		driver.CategoryAudio:    {"alsa", "pulse", "null"},
		driver.CategoryInput:    {"udev", "x", "null"},
		driver.CategoryCamera:   {"v4l2", "null"},
		driver.CategoryLocation: {"gpsd", "null"},
		driver.CategoryMenu:     {"rgui", "ozone", "null"},
	}
	for c, names := range lists {
		var backends []driver.Backend
		for _, n := range names {
			backends = append(backends, driver.Backend{Name: n})
		}
		if err := e.Register(c, driver.NewStaticRegistry(backends...)); err != nil {
			t.Fatalf("Register(%s) error = %v", c, err)
		}
	}
	return e
}

func testAVInfo() AVInfo {
	return AVInfo{
		Geometry: Geometry{BaseWidth: 256, BaseHeight: 224, MaxWidth: 512, MaxHeight: 448, AspectRatio: 4.0 / 3.0},
		Timing:   Timing{FPS: 60.0988, SampleRate: 32040},
	}
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()

	h := &harness{
		video:    &fakeVideo{active: true},
		audio:    &fakeAudio{},
		input:    &fakeInput{},
		camera:   &fakeDriver{},
		location: &fakeDriver{},
		menu:     &fakeMenu{},
		recorder: &fakeRecorder{},
		hooks:    make(map[string]int),
	}

	opts := Options{
		Video:    h.video,
		Audio:    h.audio,
		Input:    h.input,
		Camera:   h.camera,
		Location: h.location,
		Menu:     h.menu,
		Backends: testBackends(t),
		Selections: fakeSelections{
			driver.CategoryVideo: "vulkan",
			driver.CategoryAudio: "PULSE",
			driver.CategoryInput: "udev",
			driver.CategoryMenu:  "rgui",
		},
		Capabilities: fakeCaps{camera: true, location: true},
		Recorder:     h.recorder,
		Notifier: NotifierFunc(func(msg string, d time.Duration) {
			h.notices = append(h.notices, notice{msg, d})
		}),
		Hooks: Hooks{
			ContextReset:      func() { h.hooks["context_reset"]++ },
			FrameTimeReset:    func() { h.hooks["frame_time_reset"]++ },
			RefreshPluginInfo: func() { h.hooks["refresh_plugin_info"]++ },
			ReleaseCallbacks:  func() { h.hooks["release_callbacks"]++ },
		},
		Settings: Settings{VSync: true, RefreshRate: 60, MaxTimingSkew: 0.05},
		AVInfo:   testAVInfo(),
	}
	for _, m := range mutate {
		m(&opts)
	}

	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.SetObserver(ObserverFunc(func(e Event) {
		h.events = append(h.events, e)
	}))
	h.coord = c
	return h
}

// mustControl runs a command that is expected to pass its preconditions.
func (h *harness) mustControl(t *testing.T, req Request) Result {
	t.Helper()

	res, err := h.coord.Control(req)
	if err != nil {
		t.Fatalf("Control(%s) error = %v", req.Command, err)
	}
	return res
}

// prepare runs INIT_PRE and INIT for every category.
func (h *harness) prepare(t *testing.T) {
	t.Helper()
	h.mustControl(t, Request{Command: CommandInitPre})
	if res := h.mustControl(t, InitRequest(driver.SetAll)); !res.OK() {
		t.Fatalf("INIT(all) failures = %v", res.Failures)
	}
}

// allDrivers returns each fake's counters by category.
func (h *harness) allDrivers() map[driver.Category]*fakeDriver {
	return map[driver.Category]*fakeDriver{
		driver.CategoryVideo:    &h.video.fakeDriver,
		driver.CategoryAudio:    &h.audio.fakeDriver,
		driver.CategoryInput:    &h.input.fakeDriver,
		driver.CategoryCamera:   h.camera,
		driver.CategoryLocation: h.location,
		driver.CategoryMenu:     &h.menu.fakeDriver,
	}
}
