package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/checkpointgo/checkpoint"
)

// Backend implements checkpoint.Backend using Redis. Values live under
// string keys; a sorted set with zero scores doubles as a lexicographic key
// index so prefix scans map onto ZRANGEBYLEX.
type Backend struct {
	client *redis.Client
	prefix string
}

var _ checkpoint.Backend = (*Backend)(nil)

// Options configuration for Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "checkpointgo:"
}

// New creates a new Redis backend.
func New(opts Options) *Backend {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "checkpointgo:"
	}

	return &Backend{
		client: client,
		prefix: prefix,
	}
}

func (b *Backend) dataKey(key string) string {
	return b.prefix + "kv:" + key
}

func (b *Backend) indexKey() string {
	return b.prefix + "kv-index"
}

// Close closes the Redis client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// PutIfAbsent implements checkpoint.Backend. SETNX is the atomic
// compare-and-insert; the index entry follows only after it succeeds.
func (b *Backend) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	ok, err := b.client.SetNX(ctx, b.dataKey(key), value, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	if !ok {
		return fmt.Errorf("key %q: %w", key, checkpoint.ErrConflict)
	}

	if err := b.client.ZAdd(ctx, b.indexKey(), redis.Z{Score: 0, Member: key}).Err(); err != nil {
		return fmt.Errorf("%w: index %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	return nil
}

// Get implements checkpoint.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.dataKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("key %q: %w", key, checkpoint.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	return data, nil
}

// Scan implements checkpoint.Backend.
func (b *Backend) Scan(ctx context.Context, prefix, cursor string, limit int) ([]checkpoint.Entry, error) {
	start, end := checkpoint.PrefixRange(prefix)

	min := "[" + start
	if cursor != "" && cursor >= start {
		min = "(" + cursor
	}
	max := "+"
	if end != "" {
		max = "(" + end
	}

	count := int64(-1)
	if limit > 0 {
		count = int64(limit)
	}

	keys, err := b.client.ZRangeByLex(ctx, b.indexKey(), &redis.ZRangeBy{
		Min:    min,
		Max:    max,
		Offset: 0,
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: scan %q: %v", checkpoint.ErrBackendUnavailable, prefix, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	dataKeys := make([]string, len(keys))
	for i, k := range keys {
		dataKeys[i] = b.dataKey(k)
	}

	// MGET returns nil for members whose value was deleted out-of-band;
	// those index leftovers are skipped.
	values, err := b.client.MGet(ctx, dataKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: scan %q: %v", checkpoint.ErrBackendUnavailable, prefix, err)
	}

	var entries []checkpoint.Entry
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		entries = append(entries, checkpoint.Entry{Key: keys[i], Value: []byte(s)})
	}
	return entries, nil
}

// Delete implements checkpoint.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	pipe := b.client.Pipeline()
	pipe.Del(ctx, b.dataKey(key))
	pipe.ZRem(ctx, b.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: delete %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	return nil
}
