package httpserver

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"chatd/internal/blob"
	"chatd/internal/domain"
	"chatd/internal/service"
)

const maxUploadBytes = 50 << 20

type sendMessageRequest struct {
	Content     string              `json:"content"`
	ReceiverID  string              `json:"receiverId"`
	GroupID     string              `json:"groupId"`
	Attachments []domain.Attachment `json:"attachments"`
}

// handleSendMessage accepts either a JSON body (attachments already
// uploaded) or multipart/form-data with inline files. Inline files are
// uploaded to the blob collaborator one by one before the message is
// persisted; a failed upload skips that file and continues with the rest.
func handleSendMessage(msgSvc *service.MessageService, blobStore blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		var req sendMessageRequest
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse multipart form"})
				return
			}
			req.Content = r.FormValue("content")
			req.ReceiverID = r.FormValue("receiverId")
			req.GroupID = r.FormValue("groupId")

			for _, header := range r.MultipartForm.File["files"] {
				file, err := header.Open()
				if err != nil {
					log.Printf("send: open upload %q: %v", header.Filename, err)
					continue
				}
				mimeType := header.Header.Get("Content-Type")
				obj, err := blobStore.Upload(r.Context(), header.Filename, mimeType, file, header.Size)
				file.Close()
				if err != nil {
					log.Printf("send: upload %q: %v", header.Filename, err)
					continue
				}
				req.Attachments = append(req.Attachments, domain.Attachment{
					Type:     domain.AttachmentTypeFromMIME(obj.MimeType),
					URL:      obj.URL,
					Name:     obj.Name,
					Size:     obj.Size,
					FileType: obj.MimeType,
				})
			}
		} else {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
				return
			}
		}

		msg, err := msgSvc.Send(r.Context(), service.SendInput{
			SenderID:    currentUser.ID,
			Content:     req.Content,
			ReceiverID:  req.ReceiverID,
			GroupID:     req.GroupID,
			Attachments: req.Attachments,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// handleListMessages pages a conversation. Direct threads are addressed by
// peerId (the chat key is derived from the current user), groups by groupId.
func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		peerID := r.URL.Query().Get("peerId")
		groupID := r.URL.Query().Get("groupId")
		if (peerID == "") == (groupID == "") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of peerId or groupId is required"})
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		target := groupID
		isGroup := true
		if peerID != "" {
			target = domain.DirectChatKey(currentUser.ID, peerID)
			isGroup = false
		}

		msgs, err := msgSvc.Page(r.Context(), target, isGroup, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleMarkRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		messageID := chi.URLParam(r, "messageID")
		if err := msgSvc.MarkRead(r.Context(), messageID, currentUser.ID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

type reactionRequest struct {
	Reaction string `json:"reaction"`
}

func handleAddReaction(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		messageID := chi.URLParam(r, "messageID")
		var req reactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := msgSvc.AddReaction(r.Context(), messageID, currentUser.ID, req.Reaction); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

type forwardRequest struct {
	TargetID string `json:"targetId"`
	IsGroup  bool   `json:"isGroup"`
}

func handleForwardMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		messageID := chi.URLParam(r, "messageID")
		var req forwardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := msgSvc.Forward(r.Context(), messageID, currentUser.ID, req.TargetID, req.IsGroup)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}
