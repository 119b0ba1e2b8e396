package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/sidechain/views/internal/logger"
	"go.uber.org/zap"
)

const (
	flagKeyPrefix  = "view_counts_hidden:"
	limitKeyPrefix = "view_rate:"

	// FlagTTL bounds how long a cached privacy flag survives without a write
	FlagTTL = 10 * time.Minute
)

// RedisClient wraps the redis.Client with centralized connection pooling
type RedisClient struct {
	client *redis.Client
}

var globalRedis *RedisClient

// NewRedisClient connects to Redis and pings it before returning
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		DialTimeout:  3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.ErrorWithFields("Failed to connect to Redis", err)
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc

	logger.Log.Info("Redis client connected", zap.String("address", addr))
	return rc, nil
}

// NewFromClient wraps an existing go-redis client
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// GetRedisClient returns the global Redis client instance, nil if Redis is disabled
func GetRedisClient() *RedisClient {
	return globalRedis
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	if globalRedis == rc {
		globalRedis = nil
	}
	return rc.client.Close()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func flagKey(userID string) string {
	return flagKeyPrefix + userID
}

// GetFlag returns the cached viewCountsHidden flag. found is false on a miss.
func (rc *RedisClient) GetFlag(ctx context.Context, userID string) (hidden bool, found bool, err error) {
	val, err := rc.client.Get(ctx, flagKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	hidden, err = strconv.ParseBool(val)
	if err != nil {
		// Unreadable entries are treated as a miss and dropped
		_ = rc.client.Del(ctx, flagKey(userID)).Err()
		return false, false, nil
	}
	return hidden, true, nil
}

// SetFlag stores the flag with FlagTTL
func (rc *RedisClient) SetFlag(ctx context.Context, userID string, hidden bool) error {
	return rc.client.Set(ctx, flagKey(userID), strconv.FormatBool(hidden), FlagTTL).Err()
}

// FillFlag stores the flag only if no entry exists, so a read-through fill
// never overwrites a value written by a concurrent SetFlag.
func (rc *RedisClient) FillFlag(ctx context.Context, userID string, hidden bool) error {
	return rc.client.SetNX(ctx, flagKey(userID), strconv.FormatBool(hidden), FlagTTL).Err()
}

// InvalidateFlag removes a cached flag
func (rc *RedisClient) InvalidateFlag(ctx context.Context, userID string) error {
	return rc.client.Del(ctx, flagKey(userID)).Err()
}

// AllowN counts one hit against key in a fixed window and reports whether
// the caller is still within max. The window starts on the first hit.
func (rc *RedisClient) AllowN(ctx context.Context, key string, max int, window time.Duration) (bool, time.Duration, error) {
	fullKey := limitKeyPrefix + key

	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.TTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		retryAfter = window
	}
	return incr.Val() <= int64(max), retryAfter, nil
}
