package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client        *redis.Client
	eventsChannel string
}

func NewRedisStore(addr, eventsChannel string) *RedisStore {
	return NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: addr}), eventsChannel)
}

func NewRedisStoreWithClient(client *redis.Client, eventsChannel string) *RedisStore {
	return &RedisStore{client: client, eventsChannel: eventsChannel}
}

func (r *RedisStore) IsProcessed(ctx context.Context, msgID string) (bool, error) {
	count, err := r.client.Exists(ctx, "processed:"+msgID).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RedisStore) MarkProcessed(ctx context.Context, msgID string, ttl time.Duration) error {
	return r.client.Set(ctx, "processed:"+msgID, "1", ttl).Err()
}

// PublishEvent fans the event out on the events pub/sub channel and keeps the
// latest recentEventLimit events in a list at <channel>:recent.
func (r *RedisStore) PublishEvent(ctx context.Context, data []byte) error {
	pipe := r.client.Pipeline()
	pipe.Publish(ctx, r.eventsChannel, data)
	pipe.LPush(ctx, r.recentKey(), data)
	pipe.LTrim(ctx, r.recentKey(), 0, recentEventLimit-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Recent(ctx context.Context, n int) ([][]byte, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	items, err := r.client.LRange(ctx, r.recentKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		out[len(items)-1-i] = []byte(item)
	}
	return out, nil
}

func (r *RedisStore) recentKey() string {
	return r.eventsChannel + ":recent"
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
