package guard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBusy means another submission holds the key.
var ErrBusy = errors.New("submission already in progress")

// Guard hands out short-lived exclusive keys. Release must be called once
// the guarded work is done; the TTL only covers crashes.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisGuard struct {
	client *redis.Client
	prefix string
}

func NewRedisGuard(client *redis.Client, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	fullKey := g.prefix + key

	ok, err := g.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("guard %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{fullKey}, token).Err()
	}, nil
}

// NewRedisClient connects with the timeouts used across the service.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// MemoryGuard is the single-instance fallback when no Redis is configured.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: map[string]time.Time{}, now: time.Now}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if until, ok := g.held[key]; ok && now.Before(until) {
		return nil, ErrBusy
	}
	until := now.Add(ttl)
	g.held[key] = until

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.held[key].Equal(until) {
			delete(g.held, key)
		}
	}, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
