package lifecycle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
)

// Command is one of the lifecycle control commands.
type Command int

// Lifecycle commands.
const (
	CommandInitPre Command = iota + 1
	CommandInit
	CommandUninit
	CommandDeinit
	CommandSetNonblockState
	CommandSetRefreshRate
	CommandUpdateSystemAVInfo
)

var commandNames = map[Command]string{
	CommandInitPre:            "init_pre",
	CommandInit:               "init",
	CommandUninit:             "uninit",
	CommandDeinit:             "deinit",
	CommandSetNonblockState:   "set_nonblock_state",
	CommandSetRefreshRate:     "set_refresh_rate",
	CommandUpdateSystemAVInfo: "update_system_av_info",
}

// String returns the snake_case command name used in topics, URLs and logs.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Command) UnmarshalText(text []byte) error {
	parsed, err := ParseCommand(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCommand resolves a command name, case-insensitively. Dashes are
// accepted in place of underscores ("set-refresh-rate").
func ParseCommand(name string) (Command, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for c, n := range commandNames {
		if n == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Request is a command plus its optional typed payload.
//
// INIT and UNINIT require Drivers; SET_REFRESH_RATE requires RefreshRate;
// UPDATE_SYSTEM_AV_INFO requires AVInfo. A missing required payload fails
// the command before anything is touched. Nonblock is optional: when set on
// SET_NONBLOCK_STATE it replaces the input's fast-forward request first.
// KeepContext on an INIT that includes video acknowledges the context cache,
// so the frontend's context reset hook is skipped for that reinit.
type Request struct {
	Command     Command
	Drivers     *driver.Set
	RefreshRate *float64
	AVInfo      *AVInfo
	Nonblock    *bool
	KeepContext bool

	// Source names the surface that issued the command ("loop", "api",
	// "mqtt"). It is carried into the Event for the journal.
	Source string
}

// InitRequest builds an INIT request for the given set.
func InitRequest(set driver.Set) Request {
	return Request{Command: CommandInit, Drivers: &set}
}

// UninitRequest builds an UNINIT request for the given set.
func UninitRequest(set driver.Set) Request {
	return Request{Command: CommandUninit, Drivers: &set}
}

// RefreshRateRequest builds a SET_REFRESH_RATE request.
func RefreshRateRequest(hz float64) Request {
	return Request{Command: CommandSetRefreshRate, RefreshRate: &hz}
}

// NonblockRequest builds a SET_NONBLOCK_STATE request that first records
// the fast-forward request on the input driver.
func NonblockRequest(on bool) Request {
	return Request{Command: CommandSetNonblockState, Nonblock: &on}
}

// AVInfoRequest builds an UPDATE_SYSTEM_AV_INFO request.
func AVInfoRequest(info AVInfo) Request {
	return Request{Command: CommandUpdateSystemAVInfo, AVInfo: &info}
}

// Payload is the wire form of a command payload, shared by the HTTP and
// MQTT surfaces:
//
//	{"drivers": ["video", "audio"], "refresh_rate": 59.94, "av_info": {...}, "nonblock": true}
type Payload struct {
	Drivers     *driver.Set `json:"drivers,omitempty"`
	RefreshRate *float64    `json:"refresh_rate,omitempty"`
	AVInfo      *AVInfo     `json:"av_info,omitempty"`
	Nonblock    *bool       `json:"nonblock,omitempty"`
	KeepContext bool        `json:"keep_context,omitempty"`
}

// Request attaches the payload to a command.
func (p Payload) Request(cmd Command, source string) Request {
	return Request{
		Command:     cmd,
		Drivers:     p.Drivers,
		RefreshRate: p.RefreshRate,
		AVInfo:      p.AVInfo,
		Nonblock:    p.Nonblock,
		KeepContext: p.KeepContext,
		Source:      source,
	}
}

// Failure records one backend that could not complete its part of a command.
type Failure struct {
	Category driver.Category
	Err      error
}

// MarshalJSON renders the failure as {"category": "...", "error": "..."}.
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Category string `json:"category"`
		Error    string `json:"error"`
	}{f.Category.String(), msg})
}

// Result is the outcome of a command that passed its preconditions.
type Result struct {
	Command  Command       `json:"command"`
	Failures []Failure     `json:"failures,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether every backend completed its part.
func (r Result) OK() bool {
	return len(r.Failures) == 0
}

// FailedCategories returns the categories that reported a failure, in order
// of occurrence and without duplicates.
func (r Result) FailedCategories() []driver.Category {
	var out []driver.Category
	var seen driver.Set
	for _, f := range r.Failures {
		if !seen.Has(f.Category) {
			seen = seen.With(f.Category)
			out = append(out, f.Category)
		}
	}
	return out
}

// fail appends a failure.
func (r *Result) fail(c driver.Category, err error) {
	r.Failures = append(r.Failures, Failure{Category: c, Err: err})
}
