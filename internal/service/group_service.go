package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatd/internal/domain"
)

// GroupService maintains the conversation directory for groups: the group
// records, their member sets and the per-user membership index.
type GroupService struct {
	groups   domain.GroupRepository
	messages domain.MessageRepository
	users    domain.UserRepository
}

func NewGroupService(
	groups domain.GroupRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
) *GroupService {
	return &GroupService{
		groups:   groups,
		messages: messages,
		users:    users,
	}
}

type GroupCreateInput struct {
	Name      string
	CreatorID string
	MemberIDs []string
}

// Create persists a new group. The creator is always included in the member
// set; the avatar is generated deterministically from the name.
func (s *GroupService) Create(ctx context.Context, in GroupCreateInput) (*domain.Group, error) {
	if in.Name == "" || in.CreatorID == "" || len(in.MemberIDs) == 0 {
		return nil, fmt.Errorf("%w: name, creator and members are required", domain.ErrInvalidInput)
	}

	members := make([]string, 0, len(in.MemberIDs)+1)
	seen := map[string]struct{}{in.CreatorID: {}}
	members = append(members, in.CreatorID)
	for _, id := range in.MemberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	g := &domain.Group{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Avatar:    initialsAvatar(in.Name),
		CreatedBy: in.CreatorID,
		CreatedAt: time.Now().UnixMilli(),
		Members:   members,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (s *GroupService) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	return s.groups.GetByID(ctx, groupID)
}

// ListForUser resolves the user's membership index into group records,
// filtering out entries that no longer resolve.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	return s.groups.ListForUser(ctx, userID)
}

// Members resolves the group's member IDs into user records. Members whose
// user record no longer resolves are skipped.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]*domain.User, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members := make([]*domain.User, 0, len(g.Members))
	for _, id := range g.Members {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			continue
		}
		members = append(members, u)
	}
	return members, nil
}

// AddMember adds a user to the group. Only members may add; adding an
// existing member is a no-op.
func (s *GroupService) AddMember(ctx context.Context, groupID, callerID, userID string) error {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !isMember(g, callerID) {
		return fmt.Errorf("%w: only members can add users", domain.ErrForbidden)
	}
	return s.groups.AddMember(ctx, groupID, userID)
}

// RemoveMember removes a user from the group. The creator may remove anyone;
// other members may only remove themselves. Removing a non-member is a no-op.
// Message history is retained.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, callerID, userID string) error {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if callerID != g.CreatedBy && callerID != userID {
		return fmt.Errorf("%w: only the creator can remove other members", domain.ErrForbidden)
	}
	return s.groups.RemoveMember(ctx, groupID, userID)
}

// Delete removes the group, its membership index entries and its message
// history. Creator only.
func (s *GroupService) Delete(ctx context.Context, groupID, callerID string) error {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if callerID != g.CreatedBy {
		return fmt.Errorf("%w: only the creator can delete the group", domain.ErrForbidden)
	}

	if err := s.messages.DeleteByGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group messages: %w", err)
	}
	if err := s.groups.Delete(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func isMember(g *domain.Group, userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}
