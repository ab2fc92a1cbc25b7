package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/playback-core/internal/driver"
	"github.com/nerrad567/playback-core/internal/lifecycle"
	"github.com/nerrad567/playback-core/internal/selection"
)

// DriverView is the API view of one category.
type DriverView struct {
	Category  driver.Category `json:"category"`
	Selected  string          `json:"selected"`
	Persisted bool            `json:"persisted"`
	Backends  []string        `json:"backends"`

	// Status is the coordinator's view; absent for categories the
	// coordinator does not manage.
	Status *lifecycle.DriverStatus `json:"status,omitempty"`
}

// selectRequest is the request body for PUT /drivers/{category}.
type selectRequest struct {
	Backend string `json:"backend"`
	Apply   bool   `json:"apply"`
}

// errNotRebound reports an apply after which the category is still bound
// to another backend than the selection.
var errNotRebound = errors.New("backend not rebound")

// selectResponse reports a selection change. Applied is true only when the
// category ended up bound to the selected backend.
type selectResponse struct {
	Category driver.Category     `json:"category"`
	Selected string              `json:"selected"`
	Applied  bool                `json:"applied"`
	Failures []lifecycle.Failure `json:"failures,omitempty"`
}

// handleListDrivers returns every category with its selection and backends.
func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	st, err := s.loop.Status(r.Context())
	if err != nil {
		s.writeLoopError(w, err)
		return
	}

	views := make([]DriverView, 0, len(driver.AllCategories()))
	for _, c := range driver.AllCategories() {
		views = append(views, s.driverView(c, st))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"drivers": views,
		"count":   len(views),
	})
}

// handleGetDriver returns one category.
func (s *Server) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	c, ok := categoryParam(w, r)
	if !ok {
		return
	}
	st, err := s.loop.Status(r.Context())
	if err != nil {
		s.writeLoopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.driverView(c, st))
}

// handleSelectDriver selects a backend by name.
func (s *Server) handleSelectDriver(w http.ResponseWriter, r *http.Request) {
	c, ok := categoryParam(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.selections.Set(r.Context(), c, req.Backend); err != nil {
		switch {
		case errors.Is(err, selection.ErrEmptyName):
			writeBadRequest(w, "backend is required")
		case errors.Is(err, driver.ErrBackendNotFound):
			writeNotFound(w, err.Error())
		default:
			s.logger.Error("saving driver selection failed", "category", c.String(), "error", err)
			writeInternalError(w, "failed to save selection")
		}
		return
	}

	s.respondSelection(w, r, c, s.selections.Selected(c), req.Apply)
}

// handleResetDriver forgets the persisted selection so the configured
// default applies again. ?apply=true rebinds the category right away.
func (s *Server) handleResetDriver(w http.ResponseWriter, r *http.Request) {
	c, ok := categoryParam(w, r)
	if !ok {
		return
	}

	if err := s.selections.Reset(r.Context(), c); err != nil {
		s.logger.Error("resetting driver selection failed", "category", c.String(), "error", err)
		writeInternalError(w, "failed to reset selection")
		return
	}

	s.respondSelection(w, r, c, s.selections.Selected(c), r.URL.Query().Get("apply") == "true")
}

// handleNextDriver moves the selection one backend forward.
func (s *Server) handleNextDriver(w http.ResponseWriter, r *http.Request) {
	s.cycleDriver(w, r, s.selections.Next)
}

// handlePreviousDriver moves the selection one backend back.
func (s *Server) handlePreviousDriver(w http.ResponseWriter, r *http.Request) {
	s.cycleDriver(w, r, s.selections.Previous)
}

func (s *Server) cycleDriver(w http.ResponseWriter, r *http.Request, step func(context.Context, driver.Category) (string, error)) {
	c, ok := categoryParam(w, r)
	if !ok {
		return
	}

	name, err := step(r.Context(), c)
	if err != nil {
		switch {
		case errors.Is(err, driver.ErrNoNext), errors.Is(err, driver.ErrNoPrevious):
			writeConflict(w, err.Error())
		default:
			s.logger.Error("cycling driver selection failed", "category", c.String(), "error", err)
			writeInternalError(w, "failed to change selection")
		}
		return
	}

	s.respondSelection(w, r, c, name, r.URL.Query().Get("apply") == "true")
}

// respondSelection optionally rebinds the category and writes the result.
func (s *Server) respondSelection(w http.ResponseWriter, r *http.Request, c driver.Category, name string, apply bool) {
	resp := selectResponse{Category: c, Selected: name}
	if apply && driver.SetAll.Has(c) {
		failures, err := s.applySelection(r.Context(), c)
		if err != nil {
			s.writeLoopError(w, err)
			return
		}
		st, err := s.loop.Status(r.Context())
		if err != nil {
			s.writeLoopError(w, err)
			return
		}
		bound, _ := st.Driver(c)
		resp.Applied = strings.EqualFold(bound.Backend, name)
		if !resp.Applied {
			failures = append(failures, lifecycle.Failure{
				Category: c,
				Err:      fmt.Errorf("%w: bound %q, selected %q", errNotRebound, bound.Backend, name),
			})
		}
		resp.Failures = failures
	}
	writeJSON(w, http.StatusOK, resp)
}

// applySelection swaps the live backend of c: the category is released,
// rebound to the new selection and allocated again. Video and input share
// a context, so either one cycles both.
func (s *Server) applySelection(ctx context.Context, c driver.Category) ([]lifecycle.Failure, error) {
	set := driver.SetOf(c)
	if set.HasAny(driver.SetVideoInput) {
		set |= driver.SetVideoInput
	}
	if set.Has(driver.CategoryMenu) {
		// INIT leaves the menu borrowed by video, and UNINIT keeps a
		// borrowed menu alive. Reclaim it so it is really released.
		if err := s.loop.Do(ctx, func(coord *lifecycle.Coordinator) {
			coord.SetOwnership(driver.CategoryMenu, driver.Owned())
		}); err != nil {
			return nil, err
		}
	}

	var failures []lifecycle.Failure
	for _, req := range []lifecycle.Request{
		lifecycle.UninitRequest(set),
		{Command: lifecycle.CommandInitPre},
		lifecycle.InitRequest(set),
	} {
		req.Source = SourceAPI
		res, err := s.loop.Submit(ctx, req)
		if err != nil {
			return failures, err
		}
		failures = append(failures, res.Failures...)
	}
	return failures, nil
}

func (s *Server) driverView(c driver.Category, st lifecycle.Status) DriverView {
	v := DriverView{
		Category:  c,
		Selected:  s.selections.Selected(c),
		Persisted: s.selections.Persisted(c),
		Backends:  s.backends.Names(c),
	}
	if v.Backends == nil {
		v.Backends = []string{}
	}
	if ds, ok := st.Driver(c); ok {
		v.Status = &ds
	}
	return v
}

// categoryParam parses the {category} URL parameter, writing a 404 when
// it names no category.
func categoryParam(w http.ResponseWriter, r *http.Request) (driver.Category, bool) {
	label := chi.URLParam(r, "category")
	c, err := driver.ParseCategory(label)
	if err != nil {
		writeNotFound(w, "unknown driver category: "+label)
		return 0, false
	}
	return c, true
}

// writeLoopError maps a failed loop submission or a rejected command to a
// response.
func (s *Server) writeLoopError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrMissingPayload),
		errors.Is(err, lifecycle.ErrInvalidPayload),
		errors.Is(err, lifecycle.ErrUnknownCommand):
		writeBadRequest(w, err.Error())
	case errors.Is(err, lifecycle.ErrNotResolved):
		writeConflict(w, err.Error())
	case errors.Is(err, lifecycle.ErrLoopStopped):
		writeUnavailable(w, "lifecycle loop is not running")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeUnavailable(w, "lifecycle loop is busy")
	default:
		s.logger.Error("lifecycle loop error", "error", err)
		writeInternalError(w, "lifecycle loop error")
	}
}
