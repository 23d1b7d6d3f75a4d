package softlock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds the raw lock records for a canvas, expired entries
// included. Staleness filtering is the reader's job, not the store's.
type Store interface {
	Put(ctx context.Context, canvasID string, lock SoftLock) error
	Delete(ctx context.Context, canvasID, shapeID string) error
	List(ctx context.Context, canvasID string) (map[string]SoftLock, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	locks map[string]map[string]SoftLock // canvasID -> shapeID -> lock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks: make(map[string]map[string]SoftLock),
	}
}

func (s *MemoryStore) Put(ctx context.Context, canvasID string, lock SoftLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locks[canvasID] == nil {
		s.locks[canvasID] = make(map[string]SoftLock)
	}
	s.locks[canvasID][lock.ShapeID] = lock
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, canvasID, shapeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks[canvasID], shapeID)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, canvasID string) (map[string]SoftLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locks := make(map[string]SoftLock, len(s.locks[canvasID]))
	for shapeID, lock := range s.locks[canvasID] {
		locks[shapeID] = lock
	}
	return locks, nil
}

// RedisStore keeps each canvas's locks in one hash so List is a single
// HGETALL. The hash key expires a while after the last write; that is
// only garbage collection, never the staleness mechanism.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(canvasID string) string {
	return fmt.Sprintf("canvas:%s:locks", canvasID)
}

func (s *RedisStore) Put(ctx context.Context, canvasID string, lock SoftLock) error {
	raw, err := json.Marshal(lock)
	if err != nil {
		return err
	}

	key := redisKey(canvasID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, lock.ShapeID, raw)
	pipe.Expire(ctx, key, s.ttl*4)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, canvasID, shapeID string) error {
	return s.client.HDel(ctx, redisKey(canvasID), shapeID).Err()
}

func (s *RedisStore) List(ctx context.Context, canvasID string) (map[string]SoftLock, error) {
	raw, err := s.client.HGetAll(ctx, redisKey(canvasID)).Result()
	if err != nil {
		return nil, err
	}

	locks := make(map[string]SoftLock, len(raw))
	for shapeID, value := range raw {
		var lock SoftLock
		if err := json.Unmarshal([]byte(value), &lock); err != nil {
			continue // skip records another version wrote
		}
		locks[shapeID] = lock
	}
	return locks, nil
}
