package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListOnline(ctx context.Context) ([]*User, error)
	SetOnline(ctx context.Context, id string, online bool, lastSeen int64) error
	DeleteAll(ctx context.Context) error
}

// MessageRepository defines persistence operations for messages. List results
// are returned newest-first; callers reorder for display.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByChat(ctx context.Context, chatID string, limit int) ([]*Message, error)
	ListByGroup(ctx context.Context, groupID string, limit int) ([]*Message, error)
	AddReader(ctx context.Context, messageID, userID string) error
	SetReaction(ctx context.Context, messageID, userID, reaction string) error
	DeleteByGroup(ctx context.Context, groupID string) error
	DeleteAll(ctx context.Context) error
}

// GroupRepository defines persistence operations for groups and their
// membership index. AddMember/RemoveMember mutate the group's member set and
// the user's membership index as one unit; adding an existing member or
// removing a non-member is a no-op.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id string) (*Group, error)
	ListForUser(ctx context.Context, userID string) ([]*Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	SetLastMessage(ctx context.Context, groupID string, lm *LastMessage) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// ConversationRepository maintains the denormalized directory of direct
// threads. Upsert creates the entry on first message and refreshes the
// last-message summary afterwards.
type ConversationRepository interface {
	Upsert(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*Conversation, error)
	DeleteAll(ctx context.Context) error
}

// TypingRepository stores short-lived typing flags per conversation. Entries
// carry their own timestamp; expiry is evaluated by the reader, not by a
// background sweep.
type TypingRepository interface {
	Set(ctx context.Context, chatID, userID string, at time.Time) error
	Clear(ctx context.Context, chatID, userID string) error
	List(ctx context.Context, chatID string) ([]TypingState, error)
}
