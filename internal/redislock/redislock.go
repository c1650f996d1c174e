// Package redislock holds the engine's single shared Redis connection and a
// SetNX-based advisory lock built on it.
package redislock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/libra-dev/deploy-engine/internal/logging"
)

// Connection is a lazily-dialed, reused Redis client, mirroring
// internal/postgres.Connection and internal/rabbitmq.Connection: a single
// handle opened once and shared by every caller.
type Connection struct {
	uri string

	mu     sync.Mutex
	client *redis.Client
}

// NewConnection wires a Connection against uri. Nothing is dialed yet.
func NewConnection(uri string) *Connection {
	return &Connection{uri: uri}
}

// Client returns the shared client, dialing and pinging it on first use.
func (c *Connection) Client(ctx context.Context) (*redis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	log := logging.FromContext(ctx)
	log.Info("connecting to redis")

	opts, err := redis.ParseURL(c.uri)
	if err != nil {
		return nil, fmt.Errorf("redislock: parse uri: %w", err)
	}

	client := redis.NewClient(opts)

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redislock: ping: %w", err)
	}

	log.Info("connected to redis")

	c.client = client

	return c.client, nil
}

// Close releases the client, if opened.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	return c.client.Close()
}

// Locker acquires and releases short-lived, best-effort advisory locks.
// Every lock here is TTL-bounded: a holder that dies without releasing
// never wedges a key forever.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// lockValue is the marker written under a lock key; callers never read it
// back, it only occupies the key.
const lockValue = "held"

// RedisLocker implements Locker with SetNX/Del, the same pattern the
// idempotency check in batch.go and the account lock in
// get-account-redis-or-database.go use.
type RedisLocker struct {
	conn *Connection
}

// NewRedisLocker wires a RedisLocker against conn.
func NewRedisLocker(conn *Connection) *RedisLocker {
	return &RedisLocker{conn: conn}
}

// TryLock attempts to set key with ttl, succeeding only if key was absent.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	client, err := l.conn.Client(ctx)
	if err != nil {
		return false, err
	}

	acquired, err := client.SetNX(ctx, key, lockValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redislock: setnx %s: %w", key, err)
	}

	return acquired, nil
}

// Unlock deletes key. Safe to call even if the lock already expired.
func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	client, err := l.conn.Client(ctx)
	if err != nil {
		return err
	}

	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redislock: del %s: %w", key, err)
	}

	return nil
}

// NoopLocker never acquires anything; every caller of Locker treats a
// failed TryLock as "proceed without the lock", so this degrades every
// lock-guarded path to unconditional contention rather than failing it.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (bool, error) { return false, nil }
func (NoopLocker) Unlock(context.Context, string) error                         { return nil }
