// Package dedup keeps a reply from being processed twice when the same
// message arrives more than once.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// KeyPrefix namespaces guard keys in shared stores.
const KeyPrefix = "outreach:reply:"

// Guard claims message keys. Claim returns false when the key was already
// claimed. Release gives a claim back after a failure so the message can be
// retried.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisGuard claims keys with SET NX and a TTL, shared across processes.
type RedisGuard struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisGuard creates a guard on client. Claims expire after ttl.
func NewRedisGuard(client redisClient, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "dedup: ping redis %s", addr)
	}
	return client, nil
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, KeyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, eris.Wrapf(err, "dedup: claim %s", key)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	err := g.client.Del(ctx, KeyPrefix+key).Err()
	if err != nil && err != redis.Nil {
		return eris.Wrapf(err, "dedup: release %s", key)
	}
	return nil
}

const sweepThreshold = 4096

// MemoryGuard is an in-process Guard for local runs and tests.
type MemoryGuard struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryGuard creates an in-process guard. ttl <= 0 keeps claims forever.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, claims: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if at, ok := g.claims[key]; ok && (g.ttl <= 0 || now.Sub(at) < g.ttl) {
		return false, nil
	}
	if g.ttl > 0 && len(g.claims) >= sweepThreshold {
		for k, at := range g.claims {
			if now.Sub(at) >= g.ttl {
				delete(g.claims, k)
			}
		}
	}
	g.claims[key] = now
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.claims, key)
	g.mu.Unlock()
	return nil
}

// Len returns the number of live claims.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claims)
}

// Processed reports whether a message key is already persisted.
type Processed interface {
	IsProcessed(ctx context.Context, key string) (bool, error)
}

// inFlightTTL bounds how long a StoreGuard claim blocks a key that has not
// reached the store yet.
const inFlightTTL = 10 * time.Minute

// StoreGuard combines an in-process claim with the store's processed lookup.
// It is the default when no Redis is configured.
type StoreGuard struct {
	store Processed
	mem   *MemoryGuard
}

// NewStoreGuard creates a guard backed by s.
func NewStoreGuard(s Processed) *StoreGuard {
	return &StoreGuard{store: s, mem: NewMemoryGuard(inFlightTTL)}
}

func (g *StoreGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, _ := g.mem.Claim(ctx, key)
	if !ok {
		return false, nil
	}
	done, err := g.store.IsProcessed(ctx, key)
	if err != nil {
		g.mem.Release(ctx, key) //nolint:errcheck
		return false, eris.Wrapf(err, "dedup: lookup %s", key)
	}
	if done {
		return false, nil
	}
	return true, nil
}

func (g *StoreGuard) Release(ctx context.Context, key string) error {
	return g.mem.Release(ctx, key)
}
