package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatd/internal/domain"
	"chatd/internal/service"
)

func TestTypingUsers(t *testing.T) {
	ctx := context.Background()
	typingRepo := newFakeTypingRepo()
	svc := service.NewPresenceService(typingRepo, new(MockUserRepo))

	now := time.Now()
	_ = typingRepo.Set(ctx, "alice_bob", "alice", now)
	_ = typingRepo.Set(ctx, "alice_bob", "bob", now)

	t.Run("ExcludesCaller", func(t *testing.T) {
		users, err := svc.TypingUsers(ctx, "alice_bob", "alice")
		assert.NoError(t, err)
		assert.Equal(t, []string{"bob"}, users)
	})

	t.Run("ExcludesStaleEntries", func(t *testing.T) {
		stale := now.Add(-domain.TypingFreshness - time.Second)
		_ = typingRepo.Set(ctx, "g1", "alice", stale)
		_ = typingRepo.Set(ctx, "g1", "bob", now)

		users, err := svc.TypingUsers(ctx, "g1", "carol")
		assert.NoError(t, err)
		assert.Equal(t, []string{"bob"}, users)
	})

	t.Run("EmptyConversation", func(t *testing.T) {
		users, err := svc.TypingUsers(ctx, "nobody_here", "alice")
		assert.NoError(t, err)
		assert.Empty(t, users)
	})
}

func TestSetTyping(t *testing.T) {
	ctx := context.Background()
	typingRepo := newFakeTypingRepo()
	svc := service.NewPresenceService(typingRepo, new(MockUserRepo))

	t.Run("FalseClearsEntry", func(t *testing.T) {
		assert.NoError(t, svc.SetTyping(ctx, "alice_bob", "alice", true))
		users, _ := svc.TypingUsers(ctx, "alice_bob", "bob")
		assert.Equal(t, []string{"alice"}, users)

		assert.NoError(t, svc.SetTyping(ctx, "alice_bob", "alice", false))
		users, _ = svc.TypingUsers(ctx, "alice_bob", "bob")
		assert.Empty(t, users)
	})

	t.Run("RequiresConversationAndUser", func(t *testing.T) {
		assert.ErrorIs(t, svc.SetTyping(ctx, "", "alice", true), domain.ErrInvalidInput)
		assert.ErrorIs(t, svc.SetTyping(ctx, "alice_bob", "", true), domain.ErrInvalidInput)
	})
}

func TestSetOnline(t *testing.T) {
	userRepo := new(MockUserRepo)
	svc := service.NewPresenceService(newFakeTypingRepo(), userRepo)

	userRepo.On("SetOnline", mock.Anything, "alice", true, mock.AnythingOfType("int64")).Return(nil)

	assert.NoError(t, svc.SetOnline(context.Background(), "alice", true))
	userRepo.AssertExpectations(t)
}
