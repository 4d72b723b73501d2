package agent

import (
	"encoding/json"
	"net/http"
	"time"

	"watchtrail/logger"
	"watchtrail/model"
)

// ObserveHandler accepts one progress observation from a content script.
// It always answers 204: observations the pipeline drops (missing title)
// are not errors the page can act on.
func (a *Agent) ObserveHandler(w http.ResponseWriter, r *http.Request) {
	var obs model.Observation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a.pipeline.Ingest(obs, a.session.UserID(a.cfg.DefaultUserID))
	w.WriteHeader(http.StatusNoContent)
}

// StoreHandler returns the full local store, for the popup UI and the
// export flows built on top of it.
func (a *Agent) StoreHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":   true,
		"data": a.store.Export(),
	})
}

// LikeRequest identifies the entry whose liked flag should be toggled.
type LikeRequest struct {
	Platform string `json:"platform"`
	Title    string `json:"title"`
}

// LikeHandler toggles the user-set liked flag on an entry.
func (a *Agent) LikeHandler(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	entry, ok := a.pipeline.ToggleLike(a.session.UserID(a.cfg.DefaultUserID), req.Platform, req.Title)
	if !ok {
		http.Error(w, "No entry for key", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "entry": entry})
}

// ResumeRequest identifies the entry to resume playback for.
type ResumeRequest struct {
	Platform string `json:"platform"`
	Title    string `json:"title"`
}

// ResumeHandler routes a seek to the viewing context playing the
// entry's URL. If none is connected the response carries the URL to
// open; the parked seek fires once the new context registers.
func (a *Agent) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	key := model.ProgressKey(a.session.UserID(a.cfg.DefaultUserID), req.Platform, req.Title)
	entry, ok := a.store.Get(key)
	if !ok {
		http.Error(w, "No entry for key", http.StatusNotFound)
		return
	}
	if entry.URL == "" {
		http.Error(w, "Entry has no saved URL", http.StatusConflict)
		return
	}

	delivered := a.registry.Resume(entry)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":        true,
		"delivered": delivered,
		"openUrl":   entry.URL,
		"time":      entry.Time,
	})
}

// AttachSessionHandler stores the credential pair handed over by the
// browser's login flow. The agent never performs the login handshake
// itself; it only consumes the result.
func (a *Agent) AttachSessionHandler(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.session.Set(creds.Token, creds.UserID); err != nil {
		http.Error(w, "Token and userId are both required", http.StatusBadRequest)
		return
	}

	logger.Info("Session attached", logger.String("userId", creds.UserID))
	w.WriteHeader(http.StatusNoContent)
}

// DetachSessionHandler clears the credentials (logout).
func (a *Agent) DetachSessionHandler(w http.ResponseWriter, r *http.Request) {
	a.session.Clear()
	logger.Info("Session detached")
	w.WriteHeader(http.StatusNoContent)
}

// StatusHandler reports agent health for the popup UI.
func (a *Agent) StatusHandler(w http.ResponseWriter, r *http.Request) {
	_, authenticated := a.session.Get()

	var lastSync int64
	if t := a.sched.LastSyncAt(); !t.IsZero() {
		lastSync = t.UnixMilli()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":            true,
		"entries":       a.store.Len(),
		"pending":       a.queue.Len(),
		"contexts":      a.registry.ContextCount(),
		"authenticated": authenticated,
		"backendUrl":    a.BackendURL(),
		"lastSyncAt":    lastSync,
		"now":           time.Now().UnixMilli(),
	})
}
