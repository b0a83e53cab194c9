package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/coding-vasu/devdose-sub000/internal/ports"
)

const defaultKey = "devdose:published"

// RedisSeenSet keeps snippet hashes in a Redis set so they survive between runs.
type RedisSeenSet struct {
	client redis.UniversalClient
	key    string
}

var _ ports.PublishedSet = (*RedisSeenSet)(nil)

// NewRedisSeenSet wires a client and the set key; key defaults to devdose:published.
func NewRedisSeenSet(client redis.UniversalClient, key string) *RedisSeenSet {
	if key == "" {
		key = defaultKey
	}
	return &RedisSeenSet{client: client, key: key}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// Contains reports whether hash is a member.
func (r *RedisSeenSet) Contains(ctx context.Context, hash string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, hash).Result()
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", r.key, err)
	}
	return ok, nil
}

// Add records hashes in one SADD; existing members are left alone.
func (r *RedisSeenSet) Add(ctx context.Context, hashes ...string) error {
	if len(hashes) == 0 {
		return nil
	}
	members := make([]any, len(hashes))
	for i, h := range hashes {
		members[i] = h
	}
	if err := r.client.SAdd(ctx, r.key, members...).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", r.key, err)
	}
	return nil
}
