package server

import (
	"encoding/json"
	"net/http"

	"watchtrail/config"
	"watchtrail/repository"
)

// APIHandler handles all API requests.
type APIHandler struct {
	userRepo     repository.UserRepository
	progressRepo repository.ProgressRepository
	cfg          *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	userRepo repository.UserRepository,
	progressRepo repository.ProgressRepository,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:     userRepo,
		progressRepo: progressRepo,
		cfg:          cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "message": message})
}
