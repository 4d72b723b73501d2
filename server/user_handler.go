package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"watchtrail/cache"
	"watchtrail/logger"
)

// UserDataHandler returns the full keyed record map for a user, served
// from the Redis cache when warm.
func (h *APIHandler) UserDataHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User id is required")
		return
	}

	if data, err := cache.GetUserData(r.Context(), userID); err == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "data": data})
		return
	} else if err != cache.ErrCacheMiss {
		logger.Warn("[UserData] Cache read failed",
			logger.String("userId", userID),
			logger.ErrorField(err))
	}

	data, err := h.progressRepo.GetUserRecords(userID)
	if err != nil {
		logger.Error("[UserData] Failed to load records",
			logger.String("userId", userID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load user data")
		return
	}

	if err := cache.SetUserData(r.Context(), userID, data); err != nil {
		logger.Warn("[UserData] Cache write failed",
			logger.String("userId", userID),
			logger.ErrorField(err))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "data": data})
}
