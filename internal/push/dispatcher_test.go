package push_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"chatd/internal/domain"
	"chatd/internal/push"
)

type fakePusher struct {
	sent    []push.Notification
	failFor map[string]bool
}

func (f *fakePusher) Send(_ context.Context, token string, n push.Notification) error {
	if f.failFor[token] {
		return errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, n)
	return nil
}

type fakeTokenStore struct {
	tokens map[string][]string
}

func (f *fakeTokenStore) SaveToken(_ context.Context, userID, token string) error {
	if f.tokens == nil {
		f.tokens = make(map[string][]string)
	}
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeTokenStore) Tokens(_ context.Context, userID string) ([]string, error) {
	return f.tokens[userID], nil
}

type fakeInbox struct {
	byUser map[string][]push.Notification
	fail   bool
}

func (f *fakeInbox) Push(_ context.Context, n push.Notification) error {
	if f.fail {
		return errors.New("inbox unavailable")
	}
	if f.byUser == nil {
		f.byUser = make(map[string][]push.Notification)
	}
	f.byUser[n.UserID] = append(f.byUser[n.UserID], n)
	return nil
}

func (f *fakeInbox) List(_ context.Context, userID string, limit int64) ([]push.Notification, error) {
	return f.byUser[userID], nil
}

func newDispatcherFixture() (*push.Dispatcher, *fakePusher, *fakeTokenStore, *fakeInbox) {
	pusher := &fakePusher{failFor: map[string]bool{}}
	tokens := &fakeTokenStore{tokens: map[string][]string{}}
	inbox := &fakeInbox{}
	return push.NewDispatcher(pusher, tokens, inbox), pusher, tokens, inbox
}

func TestNotifyNewMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("SkipsSender", func(t *testing.T) {
		d, _, tokens, inbox := newDispatcherFixture()
		tokens.tokens["alice"] = []string{"tok-a"}
		tokens.tokens["bob"] = []string{"tok-b"}

		msg := &domain.Message{ID: "m1", Content: "hi", SenderID: "alice", ChatID: "alice_bob"}
		d.NotifyNewMessage(ctx, msg, []string{"alice", "bob"}, "Alice", "Alice")

		assert.Empty(t, inbox.byUser["alice"])
		assert.Len(t, inbox.byUser["bob"], 1)
	})

	t.Run("DirectBodyAndData", func(t *testing.T) {
		d, pusher, tokens, _ := newDispatcherFixture()
		tokens.tokens["bob"] = []string{"tok-b"}

		msg := &domain.Message{ID: "m1", Content: "hello there", SenderID: "alice", ChatID: "alice_bob"}
		d.NotifyNewMessage(ctx, msg, []string{"bob"}, "Alice", "Alice")

		if assert.Len(t, pusher.sent, 1) {
			n := pusher.sent[0]
			assert.Equal(t, "Alice", n.Title)
			assert.Equal(t, "hello there", n.Body)
			assert.Equal(t, "direct_message", n.Data["type"])
			assert.Equal(t, "alice_bob", n.Data["chatId"])
			assert.Equal(t, "m1", n.Data["messageId"])
		}
	})

	t.Run("GroupBodyPrefixedWithSender", func(t *testing.T) {
		d, pusher, tokens, _ := newDispatcherFixture()
		tokens.tokens["bob"] = []string{"tok-b"}

		msg := &domain.Message{ID: "m1", Content: "standup?", SenderID: "alice", GroupID: "g1"}
		d.NotifyNewMessage(ctx, msg, []string{"bob"}, "Team", "Alice")

		if assert.Len(t, pusher.sent, 1) {
			n := pusher.sent[0]
			assert.Equal(t, "Team", n.Title)
			assert.Equal(t, "Alice: standup?", n.Body)
			assert.Equal(t, "group_message", n.Data["type"])
			assert.Equal(t, "g1", n.Data["groupId"])
		}
	})

	t.Run("TruncatesLongBody", func(t *testing.T) {
		d, pusher, tokens, _ := newDispatcherFixture()
		tokens.tokens["bob"] = []string{"tok-b"}

		msg := &domain.Message{ID: "m1", Content: strings.Repeat("a", 150), SenderID: "alice", ChatID: "alice_bob"}
		d.NotifyNewMessage(ctx, msg, []string{"bob"}, "Alice", "Alice")

		if assert.Len(t, pusher.sent, 1) {
			assert.Equal(t, strings.Repeat("a", 100)+"...", pusher.sent[0].Body)
		}
	})

	t.Run("AttachmentOnlyFallbackBody", func(t *testing.T) {
		d, pusher, tokens, _ := newDispatcherFixture()
		tokens.tokens["bob"] = []string{"tok-b"}

		msg := &domain.Message{
			ID:          "m1",
			SenderID:    "alice",
			ChatID:      "alice_bob",
			Attachments: []domain.Attachment{{Type: domain.AttachmentImage, URL: "http://x/1.png"}},
		}
		d.NotifyNewMessage(ctx, msg, []string{"bob"}, "Alice", "Alice")

		if assert.Len(t, pusher.sent, 1) {
			assert.Equal(t, "Attachment", pusher.sent[0].Body)
		}
	})

	t.Run("PerRecipientFailureIsolation", func(t *testing.T) {
		d, pusher, tokens, inbox := newDispatcherFixture()
		tokens.tokens["bob"] = []string{"tok-broken"}
		tokens.tokens["carol"] = []string{"tok-c"}
		pusher.failFor["tok-broken"] = true

		msg := &domain.Message{ID: "m1", Content: "hi", SenderID: "alice", GroupID: "g1"}
		d.NotifyNewMessage(ctx, msg, []string{"bob", "carol"}, "Team", "Alice")

		// delivery to carol proceeds despite bob's gateway failure
		if assert.Len(t, pusher.sent, 1) {
			assert.Equal(t, "carol", pusher.sent[0].UserID)
		}
		// both still get the inbox record
		assert.Len(t, inbox.byUser["bob"], 1)
		assert.Len(t, inbox.byUser["carol"], 1)
	})

	t.Run("InboxFailureDoesNotBlockPush", func(t *testing.T) {
		d, pusher, tokens, inbox := newDispatcherFixture()
		tokens.tokens["bob"] = []string{"tok-b"}
		inbox.fail = true

		msg := &domain.Message{ID: "m1", Content: "hi", SenderID: "alice", ChatID: "alice_bob"}
		d.NotifyNewMessage(ctx, msg, []string{"bob"}, "Alice", "Alice")

		assert.Len(t, pusher.sent, 1)
	})
}

func TestSaveToken(t *testing.T) {
	d, _, tokens, _ := newDispatcherFixture()

	assert.NoError(t, d.SaveToken(context.Background(), "alice", "tok-a"))
	assert.Equal(t, []string{"tok-a"}, tokens.tokens["alice"])

	assert.ErrorIs(t, d.SaveToken(context.Background(), "", "tok"), domain.ErrInvalidInput)
	assert.ErrorIs(t, d.SaveToken(context.Background(), "alice", ""), domain.ErrInvalidInput)
}
