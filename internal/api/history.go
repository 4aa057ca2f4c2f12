package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/homealone/internal/history"
	"github.com/nerrad567/homealone/internal/relay"
)

// handleListHistory returns send history newest first.
//
// Query parameters:
//   - relay: filter by relay address ("3.4")
//   - source: filter by source (schedule, api, mqtt, cli)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "send history not configured")
		return
	}

	q := r.URL.Query()
	filter := history.Filter{Source: q.Get("source")}

	if v := q.Get("relay"); v != "" {
		addr, err := relay.ParseAddress(v)
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}
		filter.Relay = addr.String()
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list send history", "error", err)
		writeInternalError(w, "failed to list send history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
