// internal/services/nonce_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore holds one pending sign-in nonce per wallet. Take removes the
// nonce so a signature can only be used once.
type NonceStore interface {
	Put(ctx context.Context, wallet, nonce string, ttl time.Duration) error
	Take(ctx context.Context, wallet string) (string, bool, error)
}

type memoryNonce struct {
	nonce   string
	expires time.Time
}

type MemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]memoryNonce
	now    func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{nonces: make(map[string]memoryNonce), now: time.Now}
}

func (s *MemoryNonceStore) Put(ctx context.Context, wallet, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[wallet] = memoryNonce{nonce: nonce, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryNonceStore) Take(ctx context.Context, wallet string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nonces[wallet]
	delete(s.nonces, wallet)
	if !ok || s.now().After(n.expires) {
		return "", false, nil
	}
	return n.nonce, true, nil
}

type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

func NewRedisNonceStore(client *redis.Client, prefix string) *RedisNonceStore {
	return &RedisNonceStore{client: client, prefix: prefix}
}

func (s *RedisNonceStore) key(wallet string) string {
	return s.prefix + ":nonce:" + wallet
}

func (s *RedisNonceStore) Put(ctx context.Context, wallet, nonce string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(wallet), nonce, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store sign-in nonce: %w", err)
	}
	return nil
}

func (s *RedisNonceStore) Take(ctx context.Context, wallet string) (string, bool, error) {
	nonce, err := s.client.GetDel(ctx, s.key(wallet)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load sign-in nonce: %w", err)
	}
	return nonce, true, nil
}
