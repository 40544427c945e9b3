package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hailam/reversi/internal/eval"
)

// RedisTTL is how long an evaluation stays in redis.
const RedisTTL = 7 * 24 * time.Hour

// RedisCache shares evaluations between processes through redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to url, which is either a redis:// URL or a plain
// host:port, and pings the server.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redisOptions(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisCache{client: client}, nil
}

func redisOptions(url string) (*redis.Options, error) {
	if url == "" {
		return nil, errors.New("redis url is empty")
	}
	if strings.Contains(url, "://") {
		return redis.ParseURL(url)
	}
	return &redis.Options{Addr: url}, nil
}

// Get looks up a cached evaluation.
func (c *RedisCache) Get(ctx context.Context, key eval.Key) (eval.Result, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return eval.Result{}, false, nil
	}
	if err != nil {
		return eval.Result{}, false, err
	}

	res, err := decodeResult(data)
	if err != nil {
		return eval.Result{}, false, err
	}
	return res, true, nil
}

// Put stores an evaluation with RedisTTL.
func (c *RedisCache) Put(ctx context.Context, key eval.Key, res eval.Result) error {
	data, err := encodeResult(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(key), data, RedisTTL).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
