package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore tracks revoked JWT IDs until their natural expiration.
type TokenStore interface {
	// Revoke blacklists jti until the given expiry.
	Revoke(ctx context.Context, jti string, until time.Time) error
	// IsRevoked reports whether jti has been revoked. Lookup failures
	// count as revoked: a token we cannot verify is not accepted.
	IsRevoked(ctx context.Context, jti string) bool
	Close() error
}

// MemoryTokenStore is the default single-process token store.
type MemoryTokenStore struct {
	revoked  sync.Map // jti -> expiry time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryTokenStore creates an in-memory store with a janitor that drops
// entries whose tokens have expired anyway.
func NewMemoryTokenStore() *MemoryTokenStore {
	s := &MemoryTokenStore{stopCh: make(chan struct{})}
	go s.janitor()
	return s
}

// Revoke blacklists jti until the token's own expiry.
func (s *MemoryTokenStore) Revoke(_ context.Context, jti string, until time.Time) error {
	s.revoked.Store(jti, until)
	return nil
}

// IsRevoked reports whether jti is blacklisted and not yet expired.
func (s *MemoryTokenStore) IsRevoked(_ context.Context, jti string) bool {
	value, exists := s.revoked.Load(jti)
	if !exists {
		return false
	}
	until, ok := value.(time.Time)
	if !ok || time.Now().After(until) {
		s.revoked.Delete(jti)
		return false
	}
	return true
}

// Close stops the janitor.
func (s *MemoryTokenStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemoryTokenStore) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.revoked.Range(func(key, value interface{}) bool {
				if until, ok := value.(time.Time); !ok || now.After(until) {
					s.revoked.Delete(key)
				}
				return true
			})
		case <-s.stopCh:
			return
		}
	}
}

// RedisTokenStore shares revocations across processes. Keys expire with the
// token itself so the set never needs explicit cleanup.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore connects to Redis and verifies the connection.
func NewRedisTokenStore(addr, password string, db int) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisTokenStore{client: client}, nil
}

func revocationKey(jti string) string {
	return "taskvault:revoked:" + jti
}

// Revoke stores jti with a TTL matching the token's remaining lifetime.
func (s *RedisTokenStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// Already expired, nothing to blacklist
		return nil
	}
	if err := s.client.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks the revocation key. Redis errors fail closed.
func (s *RedisTokenStore) IsRevoked(ctx context.Context, jti string) bool {
	n, err := s.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return true
	}
	return n > 0
}

// Close releases the Redis connection.
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
