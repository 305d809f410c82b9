package service

import (
	"context"

	"chatd/internal/domain"
)

// ConversationService reads the direct-conversation directory. Entries are
// written by MessageService as a side effect of sending, so this service is
// query only.
type ConversationService struct {
	conversations domain.ConversationRepository
}

func NewConversationService(conversations domain.ConversationRepository) *ConversationService {
	return &ConversationService{conversations: conversations}
}

func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.conversations.GetByID(ctx, id)
}

// ListForUser returns the user's direct conversations, most recently
// updated first.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.conversations.ListForUser(ctx, userID)
}
