package server

import (
	"encoding/json"
	"net/http"

	"watchtrail/cache"
	"watchtrail/logger"
	"watchtrail/model"
)

// SyncHandler accepts one batched flush from an agent and upserts every
// item under the authenticated user. Redelivery of a batch overwrites
// the same rows, so agents may retry freely.
func (h *APIHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stored, err := h.progressRepo.UpsertItems(userID, req.Items)
	if err != nil {
		logger.Error("[Sync] Failed to upsert items",
			logger.String("userId", userID),
			logger.Int("items", len(req.Items)),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to store items")
		return
	}

	// Cached reads must not serve pre-sync data.
	if err := cache.InvalidateUserData(r.Context(), userID); err != nil {
		logger.Warn("[Sync] Failed to invalidate user cache",
			logger.String("userId", userID),
			logger.ErrorField(err))
	}

	logger.Debug("[Sync] Stored items",
		logger.String("userId", userID),
		logger.Int("stored", stored))
	writeJSON(w, http.StatusOK, model.SyncResponse{OK: true, Stored: stored})
}
