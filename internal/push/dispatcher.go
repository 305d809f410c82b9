package push

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"chatd/internal/domain"
)

// Pusher delivers one notification to one device token. Implementations talk
// to an external push-delivery service; the dispatcher treats them as
// fire-and-forget.
type Pusher interface {
	Send(ctx context.Context, token string, n Notification) error
}

// TokenStore is the external registry of per-user device tokens. The
// dispatcher only reads it; registration happens through SaveToken from the
// HTTP layer.
type TokenStore interface {
	SaveToken(ctx context.Context, userID, token string) error
	Tokens(ctx context.Context, userID string) ([]string, error)
}

// Inbox records delivered notifications so clients can list recent ones.
type Inbox interface {
	Push(ctx context.Context, n Notification) error
	List(ctx context.Context, userID string, limit int64) ([]Notification, error)
}

const maxBodyRunes = 100

// Dispatcher fans a new-message event out to conversation participants.
type Dispatcher struct {
	pusher Pusher
	tokens TokenStore
	inbox  Inbox
}

func NewDispatcher(pusher Pusher, tokens TokenStore, inbox Inbox) *Dispatcher {
	return &Dispatcher{pusher: pusher, tokens: tokens, inbox: inbox}
}

// NotifyNewMessage notifies every participant except the sender. Group
// bodies are prefixed with the sender's name so recipients see who spoke.
// Per-recipient failures are logged and skipped; the fan-out itself never
// fails.
func (d *Dispatcher) NotifyNewMessage(ctx context.Context, msg *domain.Message, participantIDs []string, title, senderName string) {
	body := msg.Content
	if body == "" && len(msg.Attachments) > 0 {
		body = "Attachment"
	}
	if runes := []rune(body); len(runes) > maxBodyRunes {
		body = string(runes[:maxBodyRunes]) + "..."
	}
	if msg.IsGroup() && senderName != "" {
		body = senderName + ": " + body
	}

	data := map[string]string{
		"messageId": msg.ID,
	}
	if msg.IsGroup() {
		data["type"] = "group_message"
		data["groupId"] = msg.GroupID
	} else {
		data["type"] = "direct_message"
		data["chatId"] = msg.ChatID
	}

	for _, userID := range participantIDs {
		if userID == msg.SenderID {
			continue
		}
		n := Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     title,
			Body:      body,
			Data:      data,
			CreatedAt: time.Now().UnixMilli(),
		}
		if err := d.inbox.Push(ctx, n); err != nil {
			log.Printf("push: record notification for %s: %v", userID, err)
		}
		tokens, err := d.tokens.Tokens(ctx, userID)
		if err != nil {
			log.Printf("push: load tokens for %s: %v", userID, err)
			continue
		}
		for _, token := range tokens {
			if err := d.pusher.Send(ctx, token, n); err != nil {
				log.Printf("push: deliver to %s: %v", userID, err)
			}
		}
	}
}

// SaveToken registers a device token for the user.
func (d *Dispatcher) SaveToken(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return domain.ErrInvalidInput
	}
	return d.tokens.SaveToken(ctx, userID, token)
}

// ListNotifications returns the user's most recent notifications.
func (d *Dispatcher) ListNotifications(ctx context.Context, userID string, limit int64) ([]Notification, error) {
	return d.inbox.List(ctx, userID, limit)
}
