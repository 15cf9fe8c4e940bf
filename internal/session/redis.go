package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "hermes/internal/adapters/redis"
	"hermes/pkg/errors"
)

// RedisStore implements Store on Redis so pending selections survive
// process restarts. Entries carry a TTL instead of a sweep: Redis
// evicts stale sessions on its own.
type RedisStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

const redisKeyPrefix = "pending_selection:"

// NewRedisStore creates a Redis-backed store. Sessions expire after ttl.
func NewRedisStore(client *redisclient.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Present stores a new session at key, replacing any prior one
func (s *RedisStore) Present(ctx context.Context, key Key, ref string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.Wrap(errors.ErrInvalidInput, "options must be non-empty")
	}

	sess := &Session{
		Ref:       ref,
		Options:   options,
		CreatedAt: time.Now(),
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key.String(), sess, s.ttl); err != nil {
		return "", errors.Wrap(err, "failed to store session")
	}

	return FormatMenu(options), nil
}

// Resolve consumes the pending session on a valid index. The read and the
// delete are not atomic; per-key access is a single human typing into one
// chat, so the window is accepted the same way the in-memory store accepts
// a racing Present.
func (s *RedisStore) Resolve(ctx context.Context, key Key, rawText string) (Selection, error) {
	var sess Session
	err := s.client.Get(ctx, redisKeyPrefix+key.String(), &sess)
	if err == redis.Nil {
		return Selection{}, errors.ErrNoSession
	}
	if err != nil {
		return Selection{}, errors.Wrap(err, "failed to load session")
	}

	idx, err := parseChoice(rawText, len(sess.Options))
	if err != nil {
		return Selection{}, err
	}

	if err := s.client.Delete(ctx, redisKeyPrefix+key.String()); err != nil {
		return Selection{}, errors.Wrap(err, "failed to consume session")
	}

	opt := sess.Options[idx]
	return Selection{
		Label:    opt.Label,
		Selector: opt.Selector,
		Ref:      sess.Ref,
	}, nil
}

// Exists checks whether a session is pending for key
func (s *RedisStore) Exists(ctx context.Context, key Key) (bool, error) {
	return s.client.Exists(ctx, redisKeyPrefix+key.String())
}

// Delete removes any pending session for key
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	return s.client.Delete(ctx, redisKeyPrefix+key.String())
}
