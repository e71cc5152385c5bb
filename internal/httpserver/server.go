// Package httpserver exposes the turn service, action executor, and
// provider config store over HTTP.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/action"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/agent"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
)

// Config carries the server's dependencies.
type Config struct {
	Turns     *agent.Service
	Providers *provider.Store
	Executor  *action.Executor
	Logger    *slog.Logger
}

// Server routes API requests to the underlying services.
type Server struct {
	turns     *agent.Service
	providers *provider.Store
	executor  *action.Executor
	logger    *slog.Logger
	router    *mux.Router
}

// New builds the server and its route table.
func New(cfg Config) *Server {
	s := &Server{
		turns:     cfg.Turns,
		providers: cfg.Providers,
		executor:  cfg.Executor,
		logger:    cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.handleChatStream).Methods(http.MethodPost)
	api.HandleFunc("/chat/invoke", s.handleChatInvoke).Methods(http.MethodPost)
	api.HandleFunc("/chat/{session}/history", s.handleChatHistory).Methods(http.MethodGet)

	api.HandleFunc("/workflow/parse", s.handleWorkflowParse).Methods(http.MethodPost)
	api.HandleFunc("/workflow/analyze", s.handleWorkflowAnalyze).Methods(http.MethodPost)

	api.HandleFunc("/actions/execute", s.handleActionExecute).Methods(http.MethodPost)
	api.HandleFunc("/actions/undo", s.handleActionUndo).Methods(http.MethodPost)
	api.HandleFunc("/actions/{session}", s.handleActionList).Methods(http.MethodGet)

	api.HandleFunc("/configs", s.handleConfigCreate).Methods(http.MethodPost)
	api.HandleFunc("/configs", s.handleConfigList).Methods(http.MethodGet)
	api.HandleFunc("/configs/set-default", s.handleConfigSetDefault).Methods(http.MethodPost)
	api.HandleFunc("/configs/{id}", s.handleConfigGet).Methods(http.MethodGet)
	api.HandleFunc("/configs/{id}", s.handleConfigUpdate).Methods(http.MethodPut)
	api.HandleFunc("/configs/{id}", s.handleConfigDelete).Methods(http.MethodDelete)

	s.router = r
	return s
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the structured error payload.
type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// decodeBody parses the request body into v.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
