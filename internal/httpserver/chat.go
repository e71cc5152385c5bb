package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/agent"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/llm"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/stream"
)

// handleChatStream runs a turn and streams its events to the client as
// server-sent events. Turn failures arrive as error events on the
// stream, never as transport failures.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req agent.TurnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	events, err := s.turns.StreamTurn(r.Context(), req)
	if err != nil {
		writeError(w, setupStatus(err), err)
		return
	}

	if err := stream.NewSSEWriter(w).WriteAll(events); err != nil {
		s.logger.Warn("client disconnected mid-stream",
			slog.String("session_id", req.SessionID),
			slog.String("error", err.Error()))
	}
}

// handleChatInvoke runs a turn to completion and returns the single
// shot response.
func (s *Server) handleChatInvoke(w http.ResponseWriter, r *http.Request) {
	var req agent.TurnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	resp, err := s.turns.ProcessTurn(r.Context(), req)
	if err != nil {
		writeError(w, setupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// historyResponse is the conversation listing for one session.
type historyResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []llm.Message `json:"messages"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]

	messages, err := s.turns.History(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if messages == nil {
		messages = []llm.Message{}
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Messages: messages})
}

// setupStatus maps turn setup failures to response codes.
func setupStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrNotFound), errors.Is(err, provider.ErrNoDefault):
		return http.StatusNotFound
	}
	var setupErr *agent.SetupError
	if errors.As(err, &setupErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
