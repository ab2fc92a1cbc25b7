package lifecycle

import (
	"fmt"

	"github.com/nerrad567/playback-core/internal/driver"
)

// initPre resolves the selected backend of every category and binds it.
// A selection that matches nothing falls back to the first registered
// backend. Slots that are live keep their binding.
func (c *Coordinator) initPre(res *Result) {
	for _, cat := range initPreOrder {
		s, ok := c.slots[cat]
		if !ok {
			continue
		}
		if s.live {
			c.logger.Debug("backend live, keeping binding",
				"category", cat.String(),
				"backend", s.backend.Name,
			)
			continue
		}

		backend, err := c.resolve(cat)
		if err != nil {
			s.resolved = false
			res.fail(cat, err)
			c.logger.Error("resolving backend failed", "category", cat.String(), "error", err)
			continue
		}

		if err := s.drv.Bind(backend); err != nil {
			s.resolved = false
			res.fail(cat, fmt.Errorf("binding %q: %w", backend.Name, err))
			c.logger.Error("binding backend failed",
				"category", cat.String(),
				"backend", backend.Name,
				"error", err,
			)
			continue
		}

		s.backend = backend
		s.resolved = true
		c.logger.Debug("backend bound", "category", cat.String(), "backend", backend.Name)
	}
	c.prepared = true
}

// resolve maps the configured selection of cat to a registered backend.
func (c *Coordinator) resolve(cat driver.Category) (driver.Backend, error) {
	selected := c.selections.Selected(cat)

	idx, err := c.resolver.IndexOf(cat, selected)
	if err != nil {
		first, ferr := c.resolver.First(cat)
		if ferr != nil {
			return driver.Backend{}, ferr
		}
		c.logger.Warn("configured backend not found, falling back",
			"category", cat.String(),
			"selected", selected,
			"fallback", first,
		)
		idx = 0
	}

	b, ok := c.backends.Enumerate(cat, idx)
	if !ok || b.Name == "" {
		return driver.Backend{}, fmt.Errorf("%w: %s index %d", driver.ErrBackendNotFound, cat, idx)
	}
	return b, nil
}

// initDrivers allocates the live backends of the categories in set.
func (c *Coordinator) initDrivers(set driver.Set, res *Result) {
	for _, cat := range []driver.Category{
		driver.CategoryVideo,
		driver.CategoryAudio,
		driver.CategoryInput,
		driver.CategoryCamera,
		driver.CategoryLocation,
	} {
		if set.Has(cat) {
			c.SetOwnership(cat, driver.Owned())
		}
	}
	if c.menu != nil {
		c.SetOwnership(driver.CategoryMenu, driver.BorrowedBy(driver.CategoryVideo))
	}

	if set.HasAny(driver.SetOf(driver.CategoryVideo, driver.CategoryAudio)) {
		c.adjustSystemRates(res)
	}

	if set.Has(driver.CategoryVideo) {
		c.video.MonitorReset()
		if c.initSlot(driver.CategoryVideo, res) {
			// Input rides on the fresh video context.
			c.initSlot(driver.CategoryInput, res)
		}
		if !c.video.ContextCacheAcked() {
			call(c.hooks.ContextReset)
		}
		c.video.ClearContextCacheAck()
		call(c.hooks.FrameTimeReset)
	}

	if set.Has(driver.CategoryAudio) {
		c.initSlot(driver.CategoryAudio, res)
	}

	if set.Has(driver.CategoryCamera) && c.caps != nil && c.caps.CameraRequested() {
		c.initSlot(driver.CategoryCamera, res)
	}
	if set.Has(driver.CategoryLocation) && c.caps != nil && c.caps.LocationRequested() {
		c.initSlot(driver.CategoryLocation, res)
	}

	call(c.hooks.RefreshPluginInfo)

	if set.Has(driver.CategoryMenu) && c.menu != nil {
		c.initSlot(driver.CategoryMenu, res)
		c.menu.ContextReset()
	}

	if set.HasAny(driver.SetOf(driver.CategoryVideo, driver.CategoryAudio)) && c.input.NonblockState() {
		c.setNonblockState(res)
	}
}

// initSlot allocates one category. It reports whether the slot became live
// during this call; an already live slot is left alone.
func (c *Coordinator) initSlot(cat driver.Category, res *Result) bool {
	s, ok := c.slots[cat]
	if !ok {
		return false
	}
	if !s.resolved {
		res.fail(cat, fmt.Errorf("%w: %s", ErrNotResolved, cat))
		return false
	}
	if s.live {
		c.logger.Debug("backend already live", "category", cat.String())
		return false
	}
	if err := s.drv.Init(); err != nil {
		res.fail(cat, fmt.Errorf("init %q: %w", s.backend.Name, err))
		c.logger.Error("backend init failed",
			"category", cat.String(),
			"backend", s.backend.Name,
			"error", err,
		)
		return false
	}
	s.live = true
	s.hasData = true
	return true
}

// uninitDrivers releases the categories in set. Borrowed categories keep
// their resource; the holder tears it down.
func (c *Coordinator) uninitDrivers(set driver.Set, _ *Result) {
	if set.Has(driver.CategoryMenu) && c.menu != nil {
		if s := c.slots[driver.CategoryMenu]; s.live {
			c.menu.ContextDestroy()
		}
		if !c.borrowed(driver.CategoryMenu) {
			c.deinitSlot(driver.CategoryMenu)
		}
	}

	for _, cat := range []driver.Category{driver.CategoryLocation, driver.CategoryCamera} {
		if set.Has(cat) && !c.borrowed(cat) {
			c.deinitSlot(cat)
		}
	}

	if set.Has(driver.CategoryAudio) {
		c.deinitSlot(driver.CategoryAudio)
	}

	if set.HasAny(driver.SetVideoInput) {
		c.deinitSlot(driver.CategoryInput)
		c.deinitSlot(driver.CategoryVideo)
	}

	for _, cat := range []driver.Category{driver.CategoryVideo, driver.CategoryInput, driver.CategoryAudio} {
		if !set.Has(cat) || c.borrowed(cat) {
			continue
		}
		s := c.slots[cat]
		if s.hasData {
			s.drv.DestroyData()
			s.hasData = false
		}
	}
}

// deinitSlot frees a live backend.
func (c *Coordinator) deinitSlot(cat driver.Category) {
	s, ok := c.slots[cat]
	if !ok || !s.live {
		return
	}
	s.drv.Deinit()
	s.live = false
	c.logger.Debug("backend deinitialised", "category", cat.String(), "backend", s.backend.Name)
}

// borrowed reports whether cat's resource is held by another category,
// which then keeps it alive through this uninit.
func (c *Coordinator) borrowed(cat driver.Category) bool {
	s, ok := c.slots[cat]
	if !ok {
		return false
	}
	holder, borrowed := s.own.Holder()
	if borrowed {
		c.logger.Debug("backend borrowed, leaving resource to holder",
			"category", cat.String(),
			"holder", holder.String(),
		)
	}
	return borrowed
}

// deinit destroys every bound backend. Running it twice is a no-op.
func (c *Coordinator) deinit() {
	for _, cat := range deinitOrder {
		s, ok := c.slots[cat]
		if !ok || !s.resolved {
			continue
		}
		s.drv.Destroy()
		s.resolved = false
		s.live = false
		s.hasData = false
		s.backend = driver.Backend{}
	}
	if c.prepared {
		call(c.hooks.ReleaseCallbacks)
	}
	c.prepared = false
}

// reinit tears down and reallocates every lifecycle category.
func (c *Coordinator) reinit(res *Result) {
	c.uninitDrivers(driver.SetAll, res)
	c.initDrivers(driver.SetAll, res)
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
