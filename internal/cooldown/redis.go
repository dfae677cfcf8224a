package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "invitetrack:cooldown:"

// Redis is a Tracker shared across processes. A window is a key with a TTL;
// Claim uses SET NX PX so exactly one of several concurrent claims wins.
type Redis struct {
	client *redis.Client
	window time.Duration
	prefix string
}

var _ Tracker = (*Redis)(nil)

// NewRedis creates a redis-backed Tracker.
func NewRedis(client *redis.Client, window time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("cooldown: redis client not configured")
	}
	return &Redis{client: client, window: window, prefix: defaultPrefix}, nil
}

// Dial parses a redis:// URL and verifies the server answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cooldown: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cooldown: ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Claim implements Tracker.
func (r *Redis) Claim(ctx context.Context, key string) (bool, time.Duration, error) {
	if r.window <= 0 {
		return true, 0, nil
	}

	k := r.key(key)
	set, err := r.client.SetNX(ctx, k, uuid.NewString(), r.window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown: claim %s: %w", key, err)
	}
	if set {
		return true, 0, nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown: claim %s: ttl: %w", key, err)
	}
	// -2: expired since SETNX, -1: key without expiry. Report a full window.
	if ttl <= 0 {
		ttl = r.window
	}
	return false, ttl, nil
}
