package domain

import "time"

// User represents an application user. Users are never hard-deleted in normal
// operation; only the bulk admin wipe removes them.
type User struct {
	ID             string `db:"id" json:"id"`
	DisplayName    string `db:"display_name" json:"displayName"`
	Email          string `db:"email" json:"email,omitempty"`
	Avatar         string `db:"avatar" json:"avatar,omitempty"`
	Provider       string `db:"provider" json:"provider,omitempty"`
	HashedPassword string `db:"hashed_password" json:"-"`
	Online         bool   `db:"online" json:"online"`
	LastSeen       int64  `db:"last_seen" json:"lastSeen"`
	CreatedAt      int64  `db:"created_at" json:"createdAt"`
}

// Group is a named multi-user conversation. The creator is always a member and
// is the only one allowed to remove other members.
type Group struct {
	ID          string       `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Avatar      string       `db:"avatar" json:"avatar"`
	CreatedBy   string       `db:"created_by" json:"createdBy"`
	CreatedAt   int64        `db:"created_at" json:"createdAt"`
	Members     []string     `json:"members"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
}

// LastMessage is the denormalized summary stored on conversations and groups
// so list views do not have to re-query message history.
type LastMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
}

// Conversation is the directory entry for a direct thread, keyed by the chat
// key derived from the two participants. It carries no message history of its
// own; the messages themselves are the source of truth.
type Conversation struct {
	ID           string       `db:"id" json:"id"`
	Participants []string     `json:"participants"`
	LastMessage  *LastMessage `json:"lastMessage,omitempty"`
	CreatedAt    int64        `db:"created_at" json:"createdAt"`
	UpdatedAt    int64        `db:"updated_at" json:"updatedAt"`
}

// Forwarded records the provenance of a forwarded message. The original
// sender's name is a snapshot taken at forward time, not a live reference.
type Forwarded struct {
	OriginalMessageID  string `json:"originalMessageId"`
	OriginalSenderID   string `json:"originalSenderId"`
	OriginalSenderName string `json:"originalSenderName"`
}

// Message is a single chat message, addressed to exactly one of a receiver
// (direct) or a group. Immutable after creation except for read state and
// reactions.
//
// ReadBy is the source of truth for read state; Read is a convenience flag
// derived from it for direct messages and recomputed on load.
type Message struct {
	ID          string            `json:"id"`
	Content     string            `json:"content"`
	SenderID    string            `json:"senderId"`
	ReceiverID  string            `json:"receiverId,omitempty"`
	GroupID     string            `json:"groupId,omitempty"`
	ChatID      string            `json:"chatId,omitempty"`
	Timestamp   int64             `json:"timestamp"`
	Read        bool              `json:"read"`
	ReadBy      []string          `json:"readBy"`
	Reactions   map[string]string `json:"reactions"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Forwarded   *Forwarded        `json:"forwarded,omitempty"`
}

// IsGroup reports whether the message belongs to a group conversation.
func (m *Message) IsGroup() bool { return m.GroupID != "" }

// WasReadBy reports whether the given user appears in ReadBy.
func (m *Message) WasReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// DeriveRead recomputes the Read flag from ReadBy.
func (m *Message) DeriveRead() {
	m.Read = m.ReceiverID != "" && m.WasReadBy(m.ReceiverID)
}

// TypingState is a per-user, per-conversation typing flag. Absence means
// "not typing"; entries older than the freshness window are treated as absent
// by readers without being proactively deleted.
type TypingState struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// TypingFreshness is how long a typing timestamp stays valid.
const TypingFreshness = 5 * time.Second
