package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chatd/internal/domain"
)

const typingPrefix = "typing:" // typing:{chatId} -> hash userId -> unix ms

// typingTTL bounds how long abandoned entries linger. Readers apply the real
// freshness window themselves; the TTL is lazy cleanup only.
const typingTTL = time.Minute

type TypingRepo struct {
	rdb *redis.Client
}

func NewTypingRepo(rdb *redis.Client) *TypingRepo {
	return &TypingRepo{rdb: rdb}
}

var _ domain.TypingRepository = (*TypingRepo)(nil)

func typingKey(chatID string) string { return typingPrefix + chatID }

func (r *TypingRepo) Set(ctx context.Context, chatID, userID string, at time.Time) error {
	key := typingKey(chatID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, userID, at.UnixMilli())
	pipe.Expire(ctx, key, typingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

func (r *TypingRepo) Clear(ctx context.Context, chatID, userID string) error {
	if err := r.rdb.HDel(ctx, typingKey(chatID), userID).Err(); err != nil {
		return fmt.Errorf("clear typing: %w", err)
	}
	return nil
}

func (r *TypingRepo) List(ctx context.Context, chatID string) ([]domain.TypingState, error) {
	entries, err := r.rdb.HGetAll(ctx, typingKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list typing: %w", err)
	}
	res := make([]domain.TypingState, 0, len(entries))
	for userID, raw := range entries {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		res = append(res, domain.TypingState{UserID: userID, Timestamp: ts})
	}
	return res, nil
}
