package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/playback-core/internal/journal"
	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// handleListJournal lists journalled lifecycle commands, newest first.
//
// Query parameters: command, source, rejected (true|false), since (RFC 3339),
// limit, offset.
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f journal.Filter

	if v := q.Get("command"); v != "" {
		cmd, err := lifecycle.ParseCommand(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		f.Command = cmd.String()
	}
	f.Source = q.Get("source")

	if v := q.Get("rejected"); v != "" {
		rejected, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "rejected must be true or false")
			return
		}
		f.Rejected = &rejected
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		f.Since = since
	}

	var ok bool
	if f.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if f.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	page, err := s.journal.List(r.Context(), f)
	if err != nil {
		s.logger.Error("listing journal failed", "error", err)
		writeInternalError(w, "failed to list journal")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
