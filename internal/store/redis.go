package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// maxWatchRetries bounds optimistic-lock retries in RedisKV.Update.
const maxWatchRetries = 10

// RedisOptions configures a Redis-backed KV.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // prepended to every key, e.g. "learnloop:"
}

// RedisKV implements KV on Redis strings.
type RedisKV struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisKV connects to Redis and verifies the connection.
func NewRedisKV(ctx context.Context, opts RedisOptions) (*RedisKV, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisKV{rdb: rdb, prefix: opts.Prefix}, nil
}

// Close releases the Redis connection pool.
func (r *RedisKV) Close() error {
	return r.rdb.Close()
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

func (r *RedisKV) Get(ctx context.Context, key string) (json.RawMessage, error) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return json.RawMessage(b), nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := r.rdb.Set(ctx, r.key(key), []byte(value), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Update uses WATCH/MULTI so a concurrent writer forces a retry instead of a lost update.
func (r *RedisKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	full := r.key(key)
	txf := func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, full).Bytes()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		next, err := fn(json.RawMessage(current))
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, full, []byte(next), 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.rdb.Watch(ctx, txf, full)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("update %s: too many concurrent writers", key)
}
