package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// commandTimeout bounds how long a request waits for the loop to accept
// its command. A command that was accepted always runs to completion.
const commandTimeout = 10 * time.Second

// commandResponse is the response body of POST /lifecycle/{command}.
type commandResponse struct {
	Command    lifecycle.Command   `json:"command"`
	OK         bool                `json:"ok"`
	Failures   []lifecycle.Failure `json:"failures,omitempty"`
	DurationMS int64               `json:"duration_ms"`
	Status     lifecycle.Status    `json:"status"`
}

// handleLifecycleCommand submits a lifecycle command through the loop.
//
// The body is optional and carries the payload a command needs:
//
//	{"drivers": ["video", "audio"], "refresh_rate": 59.94, "av_info": {...}, "nonblock": true}
func (s *Server) handleLifecycleCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := lifecycle.ParseCommand(chi.URLParam(r, "command"))
	if err != nil {
		writeNotFound(w, err.Error())
		return
	}

	var payload lifecycle.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.loop.Submit(ctx, payload.Request(cmd, SourceAPI))
	if err != nil {
		s.logger.Warn("lifecycle command rejected",
			"command", cmd.String(),
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		s.writeLoopError(w, err)
		return
	}
	elapsed := time.Since(start)

	st, err := s.loop.Status(ctx)
	if err != nil {
		s.writeLoopError(w, err)
		return
	}

	if !res.OK() {
		s.logger.Warn("lifecycle command partially failed",
			"command", cmd.String(),
			"failed", len(res.Failures),
		)
	}

	writeJSON(w, http.StatusOK, commandResponse{
		Command:    cmd,
		OK:         res.OK(),
		Failures:   res.Failures,
		DurationMS: elapsed.Milliseconds(),
		Status:     st,
	})
}

// handleLifecycleStatus returns a coordinator snapshot plus the recording state.
func (s *Server) handleLifecycleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.loop.Status(r.Context())
	if err != nil {
		s.writeLoopError(w, err)
		return
	}

	resp := map[string]any{"status": st}
	if s.recordings != nil {
		if session, ok := s.recordings.Current(); ok {
			resp["recording"] = session
		}
	}
	if core, ok := s.catalog.Active(); ok {
		resp["active_core"] = core.Name
	}
	writeJSON(w, http.StatusOK, resp)
}
