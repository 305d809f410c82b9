package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"chatd/internal/domain"
)

// DefaultPageSize is the number of messages returned when the caller does not
// ask for a specific limit.
const DefaultPageSize = 50

// Notifier fans a new-message event out to recipients. Satisfied by
// push.Dispatcher.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, msg *domain.Message, recipientIDs []string, title, senderName string)
}

// MessageService owns the message lifecycle: send, page, read receipts,
// reactions and forwarding.
//
// Send follows the primary-write / best-effort-secondary pattern: the message
// insert must succeed, everything after it (directory summary, typing clear,
// notification fan-out) is logged and swallowed on failure. The message
// itself is the source of truth.
type MessageService struct {
	messages      domain.MessageRepository
	groups        domain.GroupRepository
	conversations domain.ConversationRepository
	users         domain.UserRepository
	typing        domain.TypingRepository
	notifier      Notifier
}

func NewMessageService(
	messages domain.MessageRepository,
	groups domain.GroupRepository,
	conversations domain.ConversationRepository,
	users domain.UserRepository,
	typing domain.TypingRepository,
	notifier Notifier,
) *MessageService {
	return &MessageService{
		messages:      messages,
		groups:        groups,
		conversations: conversations,
		users:         users,
		typing:        typing,
		notifier:      notifier,
	}
}

type SendInput struct {
	SenderID    string
	Content     string
	ReceiverID  string
	GroupID     string
	Attachments []domain.Attachment
	Forwarded   *domain.Forwarded
}

func (in *SendInput) validate() error {
	if in.SenderID == "" {
		return fmt.Errorf("%w: sender is required", domain.ErrInvalidInput)
	}
	if in.ReceiverID == "" && in.GroupID == "" {
		return fmt.Errorf("%w: message requires a receiver or a group", domain.ErrInvalidInput)
	}
	if in.ReceiverID != "" && in.GroupID != "" {
		return fmt.Errorf("%w: message cannot target both a receiver and a group", domain.ErrInvalidInput)
	}
	if in.Content == "" && len(in.Attachments) == 0 {
		return fmt.Errorf("%w: message must have content or attachments", domain.ErrInvalidInput)
	}
	return nil
}

// Send validates, persists and fans out a new message. Validation failures
// reject before any write; a failed insert fails the whole operation;
// secondary effects are best-effort.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	sender, err := s.users.GetByID(ctx, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}

	var group *domain.Group
	var recipients []string
	var chatID string

	if in.GroupID != "" {
		group, err = s.groups.GetByID(ctx, in.GroupID)
		if err != nil {
			return nil, fmt.Errorf("load group: %w", err)
		}
		isMember := false
		for _, id := range group.Members {
			if id == in.SenderID {
				isMember = true
			} else {
				recipients = append(recipients, id)
			}
		}
		if !isMember {
			return nil, fmt.Errorf("%w: sender is not a group member", domain.ErrForbidden)
		}
		chatID = in.GroupID
	} else {
		if _, err := s.users.GetByID(ctx, in.ReceiverID); err != nil {
			return nil, fmt.Errorf("load receiver: %w", err)
		}
		chatID = domain.DirectChatKey(in.SenderID, in.ReceiverID)
		recipients = []string{in.ReceiverID}
	}

	msg := &domain.Message{
		ID:          uuid.NewString(),
		Content:     in.Content,
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		GroupID:     in.GroupID,
		Timestamp:   time.Now().UnixMilli(),
		ReadBy:      []string{in.SenderID},
		Reactions:   map[string]string{},
		Attachments: in.Attachments,
		Forwarded:   in.Forwarded,
	}
	if in.GroupID == "" {
		msg.ChatID = chatID
	}
	msg.DeriveRead()

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// Secondary effects below: log and continue.
	s.updateDirectory(ctx, msg, group)

	if err := s.typing.Clear(ctx, chatID, in.SenderID); err != nil {
		log.Printf("send: clear typing for %s in %s: %v", in.SenderID, chatID, err)
	}

	title := sender.DisplayName
	if group != nil {
		title = group.Name
	}
	s.notifier.NotifyNewMessage(ctx, msg, recipients, title, sender.DisplayName)

	return msg, nil
}

// updateDirectory refreshes the denormalized last-message summary on the
// group record or the direct-conversation directory entry.
func (s *MessageService) updateDirectory(ctx context.Context, msg *domain.Message, group *domain.Group) {
	lm := &domain.LastMessage{
		ID:        msg.ID,
		Content:   msg.Content,
		SenderID:  msg.SenderID,
		Timestamp: msg.Timestamp,
	}
	if group != nil {
		if err := s.groups.SetLastMessage(ctx, group.ID, lm); err != nil {
			log.Printf("send: update group summary for %s: %v", group.ID, err)
		}
		return
	}

	now := time.Now().UnixMilli()
	participants, ok := domain.ChatKeyParticipants(msg.ChatID)
	if !ok {
		log.Printf("send: malformed chat key %q", msg.ChatID)
		return
	}
	err := s.conversations.Upsert(ctx, &domain.Conversation{
		ID:           msg.ChatID,
		Participants: participants,
		LastMessage:  lm,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		log.Printf("send: update conversation summary for %s: %v", msg.ChatID, err)
	}
}

// Page returns the most recent limit messages of a conversation in ascending
// timestamp order for display. The underlying query slices by recency with no
// cursor; under concurrent inserts a message can shift across the page
// boundary between calls.
func (s *MessageService) Page(ctx context.Context, target string, isGroup bool, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	var msgs []*domain.Message
	var err error
	if isGroup {
		msgs, err = s.messages.ListByGroup(ctx, target, limit)
	} else {
		msgs, err = s.messages.ListByChat(ctx, target, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// Repo returns newest first; reverse for display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *MessageService) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	return s.messages.GetByID(ctx, messageID)
}

// MarkRead adds the user to the message's readBy set. Idempotent; the derived
// read flag follows readBy.
func (s *MessageService) MarkRead(ctx context.Context, messageID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	return s.messages.AddReader(ctx, messageID, userID)
}

// AddReaction upserts the user's reaction on a message, replacing any earlier
// reaction by the same user.
func (s *MessageService) AddReaction(ctx context.Context, messageID, userID, reaction string) error {
	if userID == "" || reaction == "" {
		return fmt.Errorf("%w: user and reaction are required", domain.ErrInvalidInput)
	}
	return s.messages.SetReaction(ctx, messageID, userID, reaction)
}

// Forward re-sends an existing message to a new target, recording provenance.
// The original sender's display name is snapshotted at forward time.
func (s *MessageService) Forward(ctx context.Context, messageID, senderID, targetID string, isGroup bool) (*domain.Message, error) {
	orig, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("load original message: %w", err)
	}

	originalSenderName := "Unknown User"
	if u, err := s.users.GetByID(ctx, orig.SenderID); err == nil {
		originalSenderName = u.DisplayName
	}

	in := SendInput{
		SenderID:    senderID,
		Content:     orig.Content,
		Attachments: orig.Attachments,
		Forwarded: &domain.Forwarded{
			OriginalMessageID:  orig.ID,
			OriginalSenderID:   orig.SenderID,
			OriginalSenderName: originalSenderName,
		},
	}
	if isGroup {
		in.GroupID = targetID
	} else {
		in.ReceiverID = targetID
	}
	return s.Send(ctx, in)
}
