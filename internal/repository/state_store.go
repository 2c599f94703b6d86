package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/pkg/cache"
)

// CacheStateStore implements StateStore on a cache.Service, which covers
// both the Redis deployment and the in-memory fallback. Records carry a TTL
// a little past the retention horizon so abandoned keys clean themselves up.
type CacheStateStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheStateStore(c cache.Service, ttl time.Duration) *CacheStateStore {
	return &CacheStateStore{cache: c, ttl: ttl}
}

func (s *CacheStateStore) Load(ctx context.Context, key string) ([]byte, error) {
	var b []byte
	if err := s.cache.Get(ctx, key, &b); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrUnknownKey
		}
		return nil, err
	}
	return b, nil
}

func (s *CacheStateStore) Save(ctx context.Context, key string, record []byte) error {
	return s.cache.Set(ctx, key, record, s.ttl)
}

func (s *CacheStateStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.cache.Keys(ctx, pattern)
}

func (s *CacheStateStore) Health(ctx context.Context) error {
	return s.cache.Health(ctx)
}

var _ repository.StateStore = (*CacheStateStore)(nil)
