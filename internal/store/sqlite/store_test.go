package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/internal/domain"
	"chatd/internal/store/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	// in-memory DBs are per-connection; pin the pool to one
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepo(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewUserRepo(db)
	ctx := context.Background()

	alice := &domain.User{
		ID:          "alice",
		DisplayName: "Alice",
		Email:       "alice@example.com",
		Avatar:      "https://api.dicebear.com/7.x/initials/svg?seed=Alice",
		Provider:    "password",
		CreatedAt:   1000,
	}
	require.NoError(t, repo.Create(ctx, alice))

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.DisplayName)
		assert.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.ID)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SetOnline", func(t *testing.T) {
		require.NoError(t, repo.SetOnline(ctx, "alice", true, 2000))
		got, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, got.Online)
		assert.EqualValues(t, 2000, got.LastSeen)

		online, err := repo.ListOnline(ctx)
		require.NoError(t, err)
		assert.Len(t, online, 1)

		require.NoError(t, repo.SetOnline(ctx, "alice", false, 3000))
		online, err = repo.ListOnline(ctx)
		require.NoError(t, err)
		assert.Empty(t, online)
	})

	t.Run("MissingUser", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMessageRepoRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	msg := &domain.Message{
		ID:         "m1",
		Content:    "hello",
		SenderID:   "alice",
		ReceiverID: "bob",
		ChatID:     "alice_bob",
		Timestamp:  1000,
		ReadBy:     []string{"alice"},
		Reactions:  map[string]string{},
		Attachments: []domain.Attachment{{
			Type:     domain.AttachmentImage,
			URL:      "http://x/1.png",
			Name:     "1.png",
			Size:     42,
			FileType: "image/png",
		}},
		Forwarded: &domain.Forwarded{
			OriginalMessageID:  "m0",
			OriginalSenderID:   "carol",
			OriginalSenderName: "Carol",
		},
	}
	require.NoError(t, repo.Create(ctx, msg))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, []string{"alice"}, got.ReadBy)
	assert.False(t, got.Read)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, domain.AttachmentImage, got.Attachments[0].Type)
	require.NotNil(t, got.Forwarded)
	assert.Equal(t, "Carol", got.Forwarded.OriginalSenderName)
}

func TestMessageRepoReaders(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Message{
		ID: "m1", Content: "hi", SenderID: "alice", ReceiverID: "bob",
		ChatID: "alice_bob", Timestamp: 1000, ReadBy: []string{"alice"},
	}))

	require.NoError(t, repo.AddReader(ctx, "m1", "bob"))
	// second add is a no-op
	require.NoError(t, repo.AddReader(ctx, "m1", "bob"))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.ReadBy)
	// read flag derives from the receiver appearing in read_by
	assert.True(t, got.Read)

	assert.ErrorIs(t, repo.AddReader(ctx, "ghost", "bob"), domain.ErrNotFound)
}

func TestMessageRepoReactions(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Message{
		ID: "m1", Content: "hi", SenderID: "alice", ReceiverID: "bob",
		ChatID: "alice_bob", Timestamp: 1000, ReadBy: []string{"alice"},
	}))

	require.NoError(t, repo.SetReaction(ctx, "m1", "bob", "👍"))
	require.NoError(t, repo.SetReaction(ctx, "m1", "bob", "❤️"))
	require.NoError(t, repo.SetReaction(ctx, "m1", "carol", "😂"))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	// last write per user wins
	assert.Equal(t, map[string]string{"bob": "❤️", "carol": "😂"}, got.Reactions)
}

func TestMessageRepoListing(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	for i, ts := range []int64{100, 300, 200} {
		require.NoError(t, repo.Create(ctx, &domain.Message{
			ID: string(rune('a' + i)), Content: "x", SenderID: "alice",
			ReceiverID: "bob", ChatID: "alice_bob", Timestamp: ts, ReadBy: []string{"alice"},
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Message{
		ID: "g", Content: "x", SenderID: "alice", GroupID: "g1",
		Timestamp: 400, ReadBy: []string{"alice"},
	}))

	t.Run("NewestFirstWithLimit", func(t *testing.T) {
		msgs, err := repo.ListByChat(ctx, "alice_bob", 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.EqualValues(t, 300, msgs[0].Timestamp)
		assert.EqualValues(t, 200, msgs[1].Timestamp)
	})

	t.Run("GroupMessagesSeparate", func(t *testing.T) {
		msgs, err := repo.ListByGroup(ctx, "g1", 10)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "g", msgs[0].ID)
	})

	t.Run("DeleteByGroup", func(t *testing.T) {
		require.NoError(t, repo.DeleteByGroup(ctx, "g1"))
		msgs, err := repo.ListByGroup(ctx, "g1", 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		// direct messages untouched
		direct, err := repo.ListByChat(ctx, "alice_bob", 10)
		require.NoError(t, err)
		assert.Len(t, direct, 3)
	})
}

func TestGroupRepo(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewGroupRepo(db)
	ctx := context.Background()

	group := &domain.Group{
		ID:        "g1",
		Name:      "Team",
		CreatedBy: "alice",
		CreatedAt: 1000,
		Members:   []string{"alice", "bob"},
	}
	require.NoError(t, repo.Create(ctx, group))

	t.Run("GetWithMembers", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "Team", got.Name)
		assert.ElementsMatch(t, []string{"alice", "bob"}, got.Members)
	})

	t.Run("MembershipReadFromBothSides", func(t *testing.T) {
		groups, err := repo.ListForUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "g1", groups[0].ID)

		groups, err = repo.ListForUser(ctx, "mallory")
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("AddMemberIdempotent", func(t *testing.T) {
		require.NoError(t, repo.AddMember(ctx, "g1", "carol"))
		require.NoError(t, repo.AddMember(ctx, "g1", "carol"))

		got, err := repo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Len(t, got.Members, 3)

		assert.ErrorIs(t, repo.AddMember(ctx, "ghost", "carol"), domain.ErrNotFound)
	})

	t.Run("RemoveMemberNoOpForNonMember", func(t *testing.T) {
		require.NoError(t, repo.RemoveMember(ctx, "g1", "carol"))
		require.NoError(t, repo.RemoveMember(ctx, "g1", "carol"))

		got, err := repo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Len(t, got.Members, 2)
	})

	t.Run("SetLastMessage", func(t *testing.T) {
		require.NoError(t, repo.SetLastMessage(ctx, "g1", &domain.LastMessage{
			ID: "m1", Content: "latest", SenderID: "alice", Timestamp: 2000,
		}))
		got, err := repo.GetByID(ctx, "g1")
		require.NoError(t, err)
		require.NotNil(t, got.LastMessage)
		assert.Equal(t, "latest", got.LastMessage.Content)
	})

	t.Run("DeleteCascadesMembership", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "g1"))
		_, err := repo.GetByID(ctx, "g1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		groups, err := repo.ListForUser(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, groups)

		assert.ErrorIs(t, repo.Delete(ctx, "g1"), domain.ErrNotFound)
	})
}

func TestConversationRepo(t *testing.T) {
	db := openTestDB(t)
	repo := sqlite.NewConversationRepo(db)
	ctx := context.Background()

	first := &domain.Conversation{
		ID:           "alice_bob",
		Participants: []string{"alice", "bob"},
		LastMessage:  &domain.LastMessage{ID: "m1", Content: "hi", SenderID: "alice", Timestamp: 1000},
		CreatedAt:    1000,
		UpdatedAt:    1000,
	}
	require.NoError(t, repo.Upsert(ctx, first))

	t.Run("UpsertRefreshesSummaryKeepsCreatedAt", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &domain.Conversation{
			ID:           "alice_bob",
			Participants: []string{"alice", "bob"},
			LastMessage:  &domain.LastMessage{ID: "m2", Content: "hello again", SenderID: "bob", Timestamp: 2000},
			CreatedAt:    2000,
			UpdatedAt:    2000,
		}))

		got, err := repo.GetByID(ctx, "alice_bob")
		require.NoError(t, err)
		assert.Equal(t, "hello again", got.LastMessage.Content)
		assert.EqualValues(t, 1000, got.CreatedAt)
		assert.EqualValues(t, 2000, got.UpdatedAt)
	})

	t.Run("ListForUserEitherSide", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &domain.Conversation{
			ID:           "bob_carol",
			Participants: []string{"bob", "carol"},
			LastMessage:  &domain.LastMessage{ID: "m3", Content: "yo", SenderID: "carol", Timestamp: 3000},
			CreatedAt:    3000,
			UpdatedAt:    3000,
		}))

		convs, err := repo.ListForUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, convs, 2)
		// most recently updated first
		assert.Equal(t, "bob_carol", convs[0].ID)

		convs, err = repo.ListForUser(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, convs, 1)
	})

	t.Run("RejectsMalformedParticipants", func(t *testing.T) {
		err := repo.Upsert(ctx, &domain.Conversation{ID: "x", Participants: []string{"alice"}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
