package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
)

// recordRestartNotice is shown when a reinit forces a recording restart.
const (
	recordRestartNotice   = "Restarting recording due to driver reinit."
	recordRestartDuration = 3 * time.Second
)

// Rates are the system timing values derived from the content timing and
// the monitor refresh rate.
type Rates struct {
	// RefreshRate is the monitor refresh rate the rates were derived from.
	RefreshRate float64 `json:"refresh_rate"`

	// CoreFPS is the content frame rate.
	CoreFPS float64 `json:"core_fps"`

	// CoreHz is the rate the core is driven at: the monitor rate when the
	// skew is small enough to be bridged, the content rate otherwise.
	CoreHz float64 `json:"core_hz"`

	// AudioInputRate is the sample rate audio is resampled from.
	AudioInputRate float64 `json:"audio_input_rate"`

	// Skew is |1 - fps/hz|.
	Skew float64 `json:"skew"`

	// Adjusted reports whether the monitor rate was adopted.
	Adjusted bool `json:"adjusted"`
}

// DeriveRates computes the system rates for av at monitor rate hz. A skew
// larger than maxSkew leaves the content timing as is.
func DeriveRates(av AVInfo, hz, maxSkew float64) Rates {
	fps := av.Timing.FPS
	r := Rates{
		RefreshRate:    hz,
		CoreFPS:        fps,
		CoreHz:         fps,
		AudioInputRate: av.Timing.SampleRate,
	}
	if fps <= 0 || hz <= 0 {
		r.CoreHz = hz
		return r
	}

	r.Skew = math.Abs(1 - fps/hz)
	if r.Skew > maxSkew {
		return r
	}

	r.Adjusted = true
	r.CoreHz = hz
	if av.Timing.SampleRate > 0 {
		r.AudioInputRate = av.Timing.SampleRate * hz / fps
	}
	return r
}

// adjustSystemRates re-derives the rates and hands them to audio and video.
func (c *Coordinator) adjustSystemRates(res *Result) {
	c.rates = DeriveRates(c.av, c.refreshRate, c.settings.MaxTimingSkew)

	c.logger.Debug("system rates derived",
		"refresh_rate", c.rates.RefreshRate,
		"core_hz", c.rates.CoreHz,
		"audio_input_rate", c.rates.AudioInputRate,
		"skew", c.rates.Skew,
	)

	if s := c.slots[driver.CategoryAudio]; s.resolved {
		if err := c.audio.ApplyRates(c.rates); err != nil {
			c.propagationFailed(res, driver.CategoryAudio, "apply rates", err)
		}
	}
	if s := c.slots[driver.CategoryVideo]; s.resolved {
		if err := c.video.ApplyRates(c.rates); err != nil {
			c.propagationFailed(res, driver.CategoryVideo, "apply rates", err)
		}
	}

	if !c.slots[driver.CategoryVideo].live {
		return
	}
	if c.settings.ForceNonblock {
		if err := c.video.SetNonblockState(true); err != nil {
			c.propagationFailed(res, driver.CategoryVideo, "set nonblock", err)
		}
		return
	}
	c.setNonblockState(res)
}

// setNonblockState pushes the combined nonblocking policy to video and audio.
func (c *Coordinator) setNonblockState(res *Result) {
	enable := c.input.NonblockState()
	c.nonblock = enable

	if c.video.IsActive() && c.slots[driver.CategoryVideo].live {
		videoNonblock := enable || !c.settings.VSync || c.settings.ForceNonblock
		if err := c.video.SetNonblockState(videoNonblock); err != nil {
			c.propagationFailed(res, driver.CategoryVideo, "set nonblock", err)
		}
	}

	if err := c.audio.SetNonblockState(enable); err != nil {
		c.propagationFailed(res, driver.CategoryAudio, "set nonblock", err)
	}
}

// setRefreshRate adopts a new monitor rate.
func (c *Coordinator) setRefreshRate(hz float64, res *Result) {
	c.refreshRate = hz
	if err := c.audio.SetRefreshRate(hz); err != nil {
		c.propagationFailed(res, driver.CategoryAudio, "set refresh rate", err)
	}
	c.adjustSystemRates(res)
}

// updateSystemAVInfo adopts new A/V info and reinitialises every category.
// An active recording cannot follow the new parameters in place and is
// restarted.
func (c *Coordinator) updateSystemAVInfo(av AVInfo, res *Result) {
	c.av = av
	c.reinit(res)

	if c.recorder == nil || !c.recorder.Active() {
		return
	}

	if c.notifier != nil {
		c.notifier.Notify(recordRestartNotice, recordRestartDuration)
	}
	c.logger.Warn("restarting recording after A/V info change",
		"fps", av.Timing.FPS,
		"sample_rate", av.Timing.SampleRate,
	)

	if err := c.recorder.Stop(); err != nil {
		c.propagationFailed(res, driver.CategoryRecord, "stop recording", err)
	}
	if err := c.recorder.Start(av); err != nil {
		c.propagationFailed(res, driver.CategoryRecord, "start recording", err)
	}
}

// propagationFailed records a best-effort failure. The remaining backends
// are still updated.
func (c *Coordinator) propagationFailed(res *Result, cat driver.Category, step string, err error) {
	res.fail(cat, fmt.Errorf("%s: %w", step, err))
	c.logger.Warn("reconfiguration failed for backend",
		"category", cat.String(),
		"step", step,
		"error", err,
	)
}
