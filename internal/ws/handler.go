package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"chatd/internal/domain"
	"chatd/internal/security"
	"chatd/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

func contains(userIDs []string, userID string) bool {
	for _, id := range userIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol), then dispatches events:
//   - message   -> persist & broadcast to the thread's participants
//   - mark_read -> record reader on a message + broadcast message_read
//   - reaction  -> set reaction + broadcast reaction_updated
//   - typing    -> record typing flag + forward indicator to other participants
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	groups domain.GroupRepository,
	msgSvc *service.MessageService,
	presenceSvc *service.PresenceService,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	// participants resolves who should see events for a thread. Direct
	// chat keys carry both member IDs; groups are looked up.
	participants := func(ctx context.Context, msg *domain.Message) []string {
		if msg.IsGroup() {
			group, err := groups.GetByID(ctx, msg.GroupID)
			if err != nil {
				log.Printf("ws: load group %s: %v", msg.GroupID, err)
				return nil
			}
			return group.Members
		}
		ids, ok := domain.ChatKeyParticipants(msg.ChatID)
		if !ok {
			return []string{msg.SenderID}
		}
		return ids
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		sub := security.Subject(claims)
		if sub == "" {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByID(ctx, sub)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := presenceSvc.SetOnline(ctx, user.ID, true); err != nil {
			log.Printf("ws: set online for %s: %v", user.ID, err)
		}
		hub.Register(user.ID, conn)
		defer func() {
			hub.Unregister(user.ID, conn)
			if hub.Connected(user.ID) {
				// another tab is still open; keep the user online
				return
			}
			if err := presenceSvc.SetOnline(context.Background(), user.ID, false); err != nil {
				log.Printf("ws: set offline for %s: %v", user.ID, err)
			}
			hub.BroadcastAll(map[string]any{
				"type":        "user_offline",
				"userId":      user.ID,
				"displayName": user.DisplayName,
			})
		}()
		hub.BroadcastAll(map[string]any{
			"type":        "user_online",
			"userId":      user.ID,
			"displayName": user.DisplayName,
		})

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			msgType, _ := payload["type"].(string)
			switch msgType {

			// ── send message ─────────────────────────────────────────────────
			case "message":
				content, _ := payload["content"].(string)
				receiverID, _ := payload["receiverId"].(string)
				groupID, _ := payload["groupId"].(string)
				msg, err := msgSvc.Send(ctx, service.SendInput{
					SenderID:   user.ID,
					Content:    content,
					ReceiverID: receiverID,
					GroupID:    groupID,
				})
				if err != nil {
					log.Printf("ws: send message: %v", err)
					sendError(conn, "failed to send message")
					continue
				}
				hub.BroadcastToUsers(participants(ctx, msg), map[string]any{
					"type":    "message",
					"message": msg,
				})

			// ── mark read ────────────────────────────────────────────────────
			case "mark_read":
				messageID, _ := payload["messageId"].(string)
				if messageID == "" {
					continue
				}
				if err := msgSvc.MarkRead(ctx, messageID, user.ID); err != nil {
					log.Printf("ws: mark_read: %v", err)
					sendError(conn, "failed to mark message as read")
					continue
				}
				msg, err := msgSvc.Get(ctx, messageID)
				if err != nil {
					continue
				}
				hub.BroadcastToUsers(participants(ctx, msg), map[string]any{
					"type":      "message_read",
					"messageId": messageID,
					"userId":    user.ID,
				})

			// ── reaction ─────────────────────────────────────────────────────
			case "reaction":
				messageID, _ := payload["messageId"].(string)
				reaction, _ := payload["reaction"].(string)
				if messageID == "" || reaction == "" {
					continue
				}
				if err := msgSvc.AddReaction(ctx, messageID, user.ID, reaction); err != nil {
					log.Printf("ws: reaction: %v", err)
					sendError(conn, "failed to add reaction")
					continue
				}
				msg, err := msgSvc.Get(ctx, messageID)
				if err != nil {
					continue
				}
				hub.BroadcastToUsers(participants(ctx, msg), map[string]any{
					"type":      "reaction_updated",
					"messageId": messageID,
					"userId":    user.ID,
					"reaction":  reaction,
				})

			// ── typing indicator ─────────────────────────────────────────────
			case "typing":
				peerID, _ := payload["peerId"].(string)
				groupID, _ := payload["groupId"].(string)
				isTyping, _ := payload["isTyping"].(bool)
				if (peerID == "") == (groupID == "") {
					sendError(conn, "typing requires exactly one of peerId or groupId")
					continue
				}

				chatID := groupID
				var targets []string
				if groupID != "" {
					group, err := groups.GetByID(ctx, groupID)
					if err != nil || !contains(group.Members, user.ID) {
						sendError(conn, "not allowed for this group")
						continue
					}
					for _, id := range group.Members {
						if id != user.ID {
							targets = append(targets, id)
						}
					}
				} else {
					chatID = domain.DirectChatKey(user.ID, peerID)
					targets = []string{peerID}
				}
				if err := presenceSvc.SetTyping(ctx, chatID, user.ID, isTyping); err != nil {
					log.Printf("ws: typing: %v", err)
				}
				hub.BroadcastToUsers(targets, map[string]any{
					"type":        "typing",
					"chatId":      chatID,
					"userId":      user.ID,
					"displayName": user.DisplayName,
					"isTyping":    isTyping,
				})

			default:
				log.Printf("ws: unknown event type %q from user %s", msgType, user.ID)
			}
		}
	}
}

func sendError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(map[string]any{
		"type":    "error",
		"message": msg,
	})
}
