package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quill-chat/quill/internal/domain"
)

// RedisStore keeps typing markers in a redis hash per channel, so every node
// serving the channel sees the same set. Markers expire with the hash TTL in
// case a client dies without clearing its marker.
type RedisStore struct {
	cli *redis.Client
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

// ConnectRedis connects to the redis server and pings it to ensure the
// connection is working.
func ConnectRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{cli: cli, ttl: ttl}, nil
}

func markerKey(channel domain.ChannelId) string {
	return "typing:" + channel
}

func (r *RedisStore) SetMarker(ctx context.Context, channel domain.ChannelId, user domain.UserId, displayName domain.DisplayName) error {
	key := markerKey(channel)
	if err := r.cli.HSet(ctx, key, string(user), displayName).Err(); err != nil {
		return fmt.Errorf("hset marker: %w", err)
	}
	// Refresh the safety-net expiry on every write.
	if err := r.cli.Expire(ctx, key, r.ttl).Err(); err != nil {
		return fmt.Errorf("expire marker: %w", err)
	}
	return nil
}

func (r *RedisStore) RemoveMarker(ctx context.Context, channel domain.ChannelId, user domain.UserId) error {
	// HDEL of an absent field is a no-op, which gives us idempotent removal.
	if err := r.cli.HDel(ctx, markerKey(channel), string(user)).Err(); err != nil {
		return fmt.Errorf("hdel marker: %w", err)
	}
	return nil
}

// Markers returns the display names of everyone currently typing in a channel.
func (r *RedisStore) Markers(ctx context.Context, channel domain.ChannelId) (map[domain.UserId]domain.DisplayName, error) {
	vals, err := r.cli.HGetAll(ctx, markerKey(channel)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall markers: %w", err)
	}
	out := make(map[domain.UserId]domain.DisplayName, len(vals))
	for user, name := range vals {
		out[domain.UserId(user)] = name
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.cli.Close()
}
