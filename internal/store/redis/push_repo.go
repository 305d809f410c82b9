package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatd/internal/push"
)

const (
	tokenPrefix = "push:tokens:" // push:tokens:{userId} -> set of device tokens
	inboxPrefix = "notif:"       // notif:{userId} -> list of notification JSON, newest first

	inboxTTL = 30 * 24 * time.Hour
	inboxCap = 200
)

// PushRepo implements the push token registry and the notification inbox.
type PushRepo struct {
	rdb *redis.Client
}

func NewPushRepo(rdb *redis.Client) *PushRepo {
	return &PushRepo{rdb: rdb}
}

var (
	_ push.TokenStore = (*PushRepo)(nil)
	_ push.Inbox      = (*PushRepo)(nil)
)

// SaveToken registers a device token. The set de-duplicates repeated
// registrations of the same token.
func (r *PushRepo) SaveToken(ctx context.Context, userID, token string) error {
	if err := r.rdb.SAdd(ctx, tokenPrefix+userID, token).Err(); err != nil {
		return fmt.Errorf("save push token: %w", err)
	}
	return nil
}

func (r *PushRepo) Tokens(ctx context.Context, userID string) ([]string, error) {
	tokens, err := r.rdb.SMembers(ctx, tokenPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("list push tokens: %w", err)
	}
	return tokens, nil
}

func (r *PushRepo) Push(ctx context.Context, n push.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := inboxPrefix + n.UserID
	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, inboxCap-1)
	pipe.Expire(ctx, key, inboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func (r *PushRepo) List(ctx context.Context, userID string, limit int64) ([]push.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	vals, err := r.rdb.LRange(ctx, inboxPrefix+userID, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]push.Notification, 0, len(vals))
	for _, v := range vals {
		var n push.Notification
		if json.Unmarshal([]byte(v), &n) == nil {
			out = append(out, n)
		}
	}
	return out, nil
}
