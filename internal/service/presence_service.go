package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"chatd/internal/domain"
)

// PresenceService tracks online/offline state and short-lived typing flags.
//
// Typing entries carry their own timestamp and expire by comparison at read
// time; nothing sweeps them proactively.
type PresenceService struct {
	typing domain.TypingRepository
	users  domain.UserRepository
}

func NewPresenceService(typing domain.TypingRepository, users domain.UserRepository) *PresenceService {
	return &PresenceService{typing: typing, users: users}
}

// SetTyping records or clears the user's typing flag for a conversation.
// Clearing deletes the entry outright; absence means "not typing".
func (s *PresenceService) SetTyping(ctx context.Context, chatID, userID string, isTyping bool) error {
	if chatID == "" || userID == "" {
		return fmt.Errorf("%w: conversation and user are required", domain.ErrInvalidInput)
	}
	if isTyping {
		return s.typing.Set(ctx, chatID, userID, time.Now())
	}
	return s.typing.Clear(ctx, chatID, userID)
}

// TypingUsers returns the users currently typing in the conversation, other
// than excludeUserID. Entries older than the freshness window are treated as
// absent without being deleted.
func (s *PresenceService) TypingUsers(ctx context.Context, chatID, excludeUserID string) ([]string, error) {
	entries, err := s.typing.List(ctx, chatID)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-domain.TypingFreshness).UnixMilli()
	var users []string
	for _, e := range entries {
		if e.UserID == excludeUserID || e.Timestamp < cutoff {
			continue
		}
		users = append(users, e.UserID)
	}
	sort.Strings(users)
	return users, nil
}

// SetOnline updates the user's presence record and last-seen timestamp.
// Called on session start and end.
func (s *PresenceService) SetOnline(ctx context.Context, userID string, online bool) error {
	return s.users.SetOnline(ctx, userID, online, time.Now().UnixMilli())
}
