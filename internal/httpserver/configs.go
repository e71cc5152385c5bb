package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
)

// configStatus maps provider store failures to response codes.
func configStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrNotFound), errors.Is(err, provider.ErrNoDefault):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrStoreClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func (s *Server) handleConfigCreate(w http.ResponseWriter, r *http.Request) {
	var cfg provider.Config
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	created, err := s.providers.Create(cfg)
	if err != nil {
		writeError(w, configStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// configListResponse lists stored configs with masked API keys.
type configListResponse struct {
	Configs []provider.Config `json:"configs"`
	Total   int               `json:"total"`
}

func (s *Server) handleConfigList(w http.ResponseWriter, _ *http.Request) {
	configs, err := s.providers.List()
	if err != nil {
		writeError(w, configStatus(err), err)
		return
	}

	redacted := make([]provider.Config, 0, len(configs))
	for _, cfg := range configs {
		redacted = append(redacted, cfg.Redacted())
	}
	writeJSON(w, http.StatusOK, configListResponse{Configs: redacted, Total: len(redacted)})
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.providers.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, configStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var cfg provider.Config
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	cfg.ID = mux.Vars(r)["id"]

	updated, err := s.providers.Update(cfg)
	if err != nil {
		writeError(w, configStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deleteResponse reports the outcome of a config deletion.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleConfigDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.providers.Delete(id); err != nil {
		writeError(w, configStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "Config deleted"})
}

type setDefaultRequest struct {
	ConfigID string `json:"config_id"`
}

func (s *Server) handleConfigSetDefault(w http.ResponseWriter, r *http.Request) {
	var req setDefaultRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.ConfigID == "" {
		writeError(w, http.StatusBadRequest, errors.New("config_id is required"))
		return
	}

	cfg, err := s.providers.Get(req.ConfigID)
	if err != nil {
		writeError(w, configStatus(err), err)
		return
	}
	cfg.IsDefault = true

	updated, err := s.providers.Update(cfg)
	if err != nil {
		writeError(w, configStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
