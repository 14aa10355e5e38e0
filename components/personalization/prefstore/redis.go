package prefstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

const defaultRedisKeyPrefix = "personalize:prefs:"

// RedisConfig configures the Redis-backed preference store.
type RedisConfig struct {
	Client    redis.UniversalClient
	KeyPrefix string
}

// RedisStore keeps one JSON document per user in a Redis key.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ personalization.PreferenceStore = (*RedisStore)(nil)

// NewRedisStore builds a store over an existing Redis client.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("prefstore: redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: cfg.Client, prefix: prefix}, nil
}

// Fetch loads the user's document, ok=false when the key is absent.
func (s *RedisStore) Fetch(ctx context.Context, userID string) (personalization.Preferences, bool, error) {
	if userID == "" {
		return personalization.Preferences{}, false, fmt.Errorf("prefstore: user id is required")
	}
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return personalization.Preferences{}, false, nil
	}
	if err != nil {
		return personalization.Preferences{}, false, fmt.Errorf("prefstore: redis get: %w", err)
	}
	prefs, err := personalization.DecodePreferences(data)
	if err != nil {
		return personalization.Preferences{}, false, err
	}
	return prefs, true, nil
}

// Replace overwrites the user's document.
func (s *RedisStore) Replace(ctx context.Context, userID string, prefs personalization.Preferences) error {
	if userID == "" {
		return fmt.Errorf("prefstore: user id is required")
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("prefstore: encode preferences: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("prefstore: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}
