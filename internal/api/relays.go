package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homealone/internal/dispatch"
	"github.com/nerrad567/homealone/internal/relay"
)

// ActionRequest is the body of POST /relays/{address}/actions.
type ActionRequest struct {
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// ActionResponse reports the outcome of a relay action.
type ActionResponse struct {
	Relay      string `json:"relay"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	Attempts   int    `json:"attempts"`
	DurationMS int64  `json:"duration_ms"`
}

// handleRelayAction sends an action to one relay and waits for the outcome.
//
// 200: acknowledged. 400: bad address, body or action.
// 502: the controller did not acknowledge within the configured attempts.
func (s *Server) handleRelayAction(w http.ResponseWriter, r *http.Request) {
	addr, err := relay.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	action, err := relay.ParseAction(req.Action)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	res, err := s.dispatcher.Dispatch(r.Context(), dispatch.Command{
		Relay:       addr,
		Action:      action,
		Source:      dispatch.SourceAPI,
		Description: req.Description,
	})
	switch {
	case errors.Is(err, dispatch.ErrInvalidCommand):
		writeValidationError(w, err.Error())
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, ErrCodeCancelled, "request cancelled before the action completed")
		return
	case err != nil:
		s.logger.Error("relay action failed", "relay", addr.String(), "error", err)
		writeInternalError(w, "failed to send action")
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, ActionResponse{
		Relay:      addr.String(),
		Action:     action.String(),
		Success:    res.Success,
		Attempts:   res.Attempts,
		DurationMS: res.Duration.Milliseconds(),
	})
}

// handleListActions lists the supported action names with their codes.
func (s *Server) handleListActions(w http.ResponseWriter, _ *http.Request) {
	type actionInfo struct {
		Name string `json:"name"`
		Code uint8  `json:"code"`
	}

	actions := relay.Actions()
	out := make([]actionInfo, 0, len(actions))
	for _, a := range actions {
		out = append(out, actionInfo{Name: a.String(), Code: uint8(a)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": out})
}
