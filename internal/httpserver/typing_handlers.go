package httpserver

import (
	"encoding/json"
	"net/http"

	"chatd/internal/domain"
	"chatd/internal/service"
)

type typingRequest struct {
	PeerID   string `json:"peerId"`
	GroupID  string `json:"groupId"`
	IsTyping bool   `json:"isTyping"`
}

// handleSetTyping records or clears the caller's typing flag on a thread.
func handleSetTyping(presenceSvc *service.PresenceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req typingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		chatID, ok := typingChatID(currentUser.ID, req.PeerID, req.GroupID)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of peerId or groupId is required"})
			return
		}
		if err := presenceSvc.SetTyping(r.Context(), chatID, currentUser.ID, req.IsTyping); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

// handleListTyping returns the users currently typing in a thread, excluding
// the caller. Entries older than the freshness window are filtered out.
func handleListTyping(presenceSvc *service.PresenceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		chatID, ok := typingChatID(currentUser.ID, r.URL.Query().Get("peerId"), r.URL.Query().Get("groupId"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of peerId or groupId is required"})
			return
		}
		users, err := presenceSvc.TypingUsers(r.Context(), chatID, currentUser.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if users == nil {
			users = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"typing": users})
	}
}

func typingChatID(currentUserID, peerID, groupID string) (string, bool) {
	if (peerID == "") == (groupID == "") {
		return "", false
	}
	if groupID != "" {
		return groupID, true
	}
	return domain.DirectChatKey(currentUserID, peerID), true
}
