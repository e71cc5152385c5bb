package httpserver

import (
	"fmt"
	"net/http"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/agent"
)

// handleWorkflowParse analyzes a workflow and returns the analysis
// alongside the workflow it examined.
func (s *Server) handleWorkflowParse(w http.ResponseWriter, r *http.Request) {
	var req agent.AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	resp, err := s.turns.AnalyzeWorkflow(r.Context(), req)
	if err != nil {
		writeError(w, setupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWorkflowAnalyze returns the bare analysis for a workflow.
func (s *Server) handleWorkflowAnalyze(w http.ResponseWriter, r *http.Request) {
	var req agent.AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	resp, err := s.turns.AnalyzeWorkflow(r.Context(), req)
	if err != nil {
		writeError(w, setupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Analysis)
}
