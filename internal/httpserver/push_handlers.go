package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"chatd/internal/push"
)

type pushTokenRequest struct {
	Token string `json:"token"`
}

func handleSavePushToken(dispatcher *push.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req pushTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := dispatcher.SaveToken(r.Context(), currentUser.ID, req.Token); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func handleListNotifications(dispatcher *push.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		limit := int64(50)
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		notifications, err := dispatcher.ListNotifications(r.Context(), currentUser.ID, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if notifications == nil {
			notifications = []push.Notification{}
		}
		writeJSON(w, http.StatusOK, notifications)
	}
}
