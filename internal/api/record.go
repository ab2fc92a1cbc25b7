package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/playback-core/internal/record"
)

// defaultSessionLimit is the page size of GET /record/sessions.
const defaultSessionLimit = 20

// handleListRecordSessions lists recent recording sessions.
func (s *Server) handleListRecordSessions(w http.ResponseWriter, r *http.Request) {
	if s.recordings == nil {
		writeUnavailable(w, "recording is not configured")
		return
	}

	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultSessionLimit
	}

	sessions, err := s.recordings.Sessions(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing record sessions failed", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}

	resp := map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	}
	if current, active := s.recordings.Current(); active {
		resp["active"] = current.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStartRecording starts a session at the coordinator's current A/V info.
func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	if s.recordings == nil {
		writeUnavailable(w, "recording is not configured")
		return
	}

	st, err := s.loop.Status(r.Context())
	if err != nil {
		s.writeLoopError(w, err)
		return
	}

	if err := s.recordings.Start(st.AVInfo); err != nil {
		writeRecordError(w, err)
		return
	}

	session, _ := s.recordings.Current()
	s.logger.Info("recording started via API", "session", session.ID)
	writeJSON(w, http.StatusCreated, session)
}

// handleStopRecording stops the active session.
func (s *Server) handleStopRecording(w http.ResponseWriter, _ *http.Request) {
	if s.recordings == nil {
		writeUnavailable(w, "recording is not configured")
		return
	}

	session, _ := s.recordings.Current()
	if err := s.recordings.Stop(); err != nil {
		writeRecordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stopped": session.ID,
	})
}

func writeRecordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, record.ErrDisabled),
		errors.Is(err, record.ErrAlreadyActive),
		errors.Is(err, record.ErrNotActive):
		writeConflict(w, err.Error())
	default:
		writeBadRequest(w, err.Error())
	}
}
