package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"watchtrail/model"
)

// userDataTTL bounds staleness if an invalidation is ever missed.
const userDataTTL = 10 * time.Minute

// ErrCacheMiss is returned when no cached data exists for a user.
var ErrCacheMiss = redis.Nil

// userDataKey builds the Redis key for a user's progress map.
func userDataKey(userID string) string {
	return fmt.Sprintf("userdata:%s", userID)
}

// GetUserData returns the cached progress map for a user, or
// ErrCacheMiss if absent.
func GetUserData(ctx context.Context, userID string) (map[string]model.ProgressRecord, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	raw, err := RedisClient.Get(ctx, userDataKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	var data map[string]model.ProgressRecord
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user data: %w", err)
	}
	return data, nil
}

// SetUserData caches a user's progress map.
func SetUserData(ctx context.Context, userID string, data map[string]model.ProgressRecord) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal user data: %w", err)
	}
	return RedisClient.Set(ctx, userDataKey(userID), raw, userDataTTL).Err()
}

// InvalidateUserData drops the cached map after a sync writes new rows.
func InvalidateUserData(ctx context.Context, userID string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Del(ctx, userDataKey(userID)).Err()
}
