package auth

import (
	"context"

	"caskmarket-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// UserSessionsPrefix keys the set of session ids the identity service keeps per user.
const UserSessionsPrefix = "user_sessions:"

// DestroyUserSessions removes every session for a user plus the index set.
// Returns the number of session keys deleted.
func DestroyUserSessions(ctx context.Context, rdb *redis.Client, userID string) (int64, error) {
	if userID == "" {
		return 0, nil
	}
	key := UserSessionsPrefix + userID
	sessionIDs, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(sessionIDs))
	for _, sid := range sessionIDs {
		keys = append(keys, middleware.SessionRedisPrefix+sid)
	}
	var deleted int64
	if len(keys) > 0 {
		if deleted, err = rdb.Del(ctx, keys...).Result(); err != nil {
			return 0, err
		}
	}
	return deleted, rdb.Del(ctx, key).Err()
}
