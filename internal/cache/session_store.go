package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore 基于 Redis 的结算会话存储，键按 TTL 自动过期
type RedisSessionStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSessionStore 创建 Redis 会话存储
func NewRedisSessionStore(client redis.Cmdable, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisSessionStore{client: client, prefix: prefix + ":session"}
}

// Get 读取会话值，不存在返回 false
func (s *RedisSessionStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return getJSON(ctx, s.client, buildKey(s.prefix, key), dest)
}

// Set 写入会话值
func (s *RedisSessionStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return setJSON(ctx, s.client, buildKey(s.prefix, key), value, ttl)
}

// Clear 删除会话值
func (s *RedisSessionStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, buildKey(s.prefix, key)).Err()
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySessionStore 进程内会话存储，未启用 Redis 时使用（单实例）
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySessionStore 创建进程内会话存储
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get 读取会话值，过期视为不存在
func (s *MemorySessionStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set 写入会话值，ttl <= 0 表示不过期
func (s *MemorySessionStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Clear 删除会话值
func (s *MemorySessionStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep 清理已过期的键，返回清理数量
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Store 会话存储接口（与 service.SessionStore 一致）
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// NewSessionStore Redis 启用时返回 Redis 存储，否则返回进程内存储
func NewSessionStore() Store {
	if Enabled() {
		return NewRedisSessionStore(redisClient, redisPrefix)
	}
	return NewMemorySessionStore()
}
