package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	Upsert(ctx context.Context, canvasID string, entry Entry) error
	Delete(ctx context.Context, canvasID, userID string) error
	List(ctx context.Context, canvasID string) (map[string]Entry, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry // canvasID -> userID -> entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]Entry),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, canvasID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[canvasID] == nil {
		s.entries[canvasID] = make(map[string]Entry)
	}
	s.entries[canvasID][entry.UserID] = entry
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, canvasID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries[canvasID], userID)
	if len(s.entries[canvasID]) == 0 {
		delete(s.entries, canvasID)
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, canvasID string) (map[string]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make(map[string]Entry, len(s.entries[canvasID]))
	for userID, entry := range s.entries[canvasID] {
		entries[userID] = entry
	}
	return entries, nil
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(canvasID string) string {
	return fmt.Sprintf("canvas:%s:presence", canvasID)
}

func (s *RedisStore) Upsert(ctx context.Context, canvasID string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, redisKey(canvasID), entry.UserID, raw).Err()
}

func (s *RedisStore) Delete(ctx context.Context, canvasID, userID string) error {
	return s.client.HDel(ctx, redisKey(canvasID), userID).Err()
}

func (s *RedisStore) List(ctx context.Context, canvasID string) (map[string]Entry, error) {
	raw, err := s.client.HGetAll(ctx, redisKey(canvasID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Entry, len(raw))
	for userID, value := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			continue
		}
		entries[userID] = entry
	}
	return entries, nil
}
