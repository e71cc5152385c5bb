package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/action"
)

// executeRequest is a direct action dispatch outside a conversation
// turn.
type executeRequest struct {
	SessionID  string         `json:"session_id"`
	ActionType string         `json:"action_type"`
	ActionData map[string]any `json:"action_data,omitempty"`
}

func (s *Server) handleActionExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	if req.ActionType == "" {
		writeError(w, http.StatusBadRequest, errors.New("action_type is required"))
		return
	}

	result := s.executor.Execute(r.Context(), req.SessionID, action.Type(req.ActionType), req.ActionData)
	writeJSON(w, http.StatusOK, result)
}

type undoRequest struct {
	SessionID string `json:"session_id"`
	ActionID  string `json:"action_id"`
}

func (s *Server) handleActionUndo(w http.ResponseWriter, r *http.Request) {
	var req undoRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	if req.ActionID == "" {
		writeError(w, http.StatusBadRequest, errors.New("action_id is required"))
		return
	}

	writeJSON(w, http.StatusOK, s.executor.Undo(req.ActionID))
}

// actionListResponse lists a session's executed actions in order.
type actionListResponse struct {
	SessionID string          `json:"session_id"`
	Actions   []action.Record `json:"actions"`
	Total     int             `json:"total"`
}

func (s *Server) handleActionList(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]

	records := s.executor.SessionActions(sessionID)
	if records == nil {
		records = []action.Record{}
	}
	writeJSON(w, http.StatusOK, actionListResponse{
		SessionID: sessionID,
		Actions:   records,
		Total:     len(records),
	})
}
