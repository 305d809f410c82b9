package service

import (
	"context"
	"fmt"

	"chatd/internal/domain"
)

// AdminService backs the admin dashboard: aggregate stats and the bulk wipe.
// The wipe is the only path that hard-deletes users.
type AdminService struct {
	users         domain.UserRepository
	groups        domain.GroupRepository
	messages      domain.MessageRepository
	conversations domain.ConversationRepository
}

func NewAdminService(
	users domain.UserRepository,
	groups domain.GroupRepository,
	messages domain.MessageRepository,
	conversations domain.ConversationRepository,
) *AdminService {
	return &AdminService{
		users:         users,
		groups:        groups,
		messages:      messages,
		conversations: conversations,
	}
}

type Stats struct {
	Users       int `json:"users"`
	OnlineUsers int `json:"onlineUsers"`
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	online, err := s.users.ListOnline(ctx)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return &Stats{Users: len(all), OnlineUsers: len(online)}, nil
}

// Wipe deletes all users, groups, messages and conversation directory
// entries.
func (s *AdminService) Wipe(ctx context.Context) error {
	if err := s.messages.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wipe messages: %w", err)
	}
	if err := s.conversations.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wipe conversations: %w", err)
	}
	if err := s.groups.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wipe groups: %w", err)
	}
	if err := s.users.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wipe users: %w", err)
	}
	return nil
}
