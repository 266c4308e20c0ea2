package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"heal-engine/internal/domain"
)

// UssdSessionStore holds ephemeral per-call menu state keyed by the gateway
// session id. Get returns nil for an unknown id (not an error). Entries are
// evicted on END responses and after an idle TTL so ended calls never leak.
type UssdSessionStore interface {
	Get(ctx context.Context, id string) (*domain.UssdSession, error)
	Put(ctx context.Context, session *domain.UssdSession) error
	Delete(ctx context.Context, id string) error
}

type memoryUssdEntry struct {
	session   *domain.UssdSession
	expiresAt time.Time
}

// MemoryUssdStore is the in-process store used when redis is not configured.
type MemoryUssdStore struct {
	mu      sync.Mutex
	items   map[string]memoryUssdEntry
	ttl     time.Duration
	done    chan struct{}
	closeMu sync.Once
}

func NewMemoryUssdStore(ttl time.Duration) *MemoryUssdStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &MemoryUssdStore{
		items: make(map[string]memoryUssdEntry),
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryUssdStore) Get(_ context.Context, id string) (*domain.UssdSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.items, id)
		return nil, nil
	}
	return entry.session, nil
}

func (s *MemoryUssdStore) Put(_ context.Context, session *domain.UssdSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.ID] = memoryUssdEntry{
		session:   session,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryUssdStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Close stops the background sweep.
func (s *MemoryUssdStore) Close() {
	s.closeMu.Do(func() { close(s.done) })
}

// janitor sweeps idle entries so abandoned calls do not accumulate.
func (s *MemoryUssdStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.items {
				if now.After(entry.expiresAt) {
					delete(s.items, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// redisSessionCommands is the slice of the redis client the store needs,
// narrow enough to hand-mock in tests.
type redisSessionCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisUssdStore keeps the session state as a JSON value with a per-key TTL,
// so idle eviction is handled by redis itself.
type RedisUssdStore struct {
	client redisSessionCommands
	ttl    time.Duration
	prefix string
}

func NewRedisUssdStore(client redisSessionCommands, ttl time.Duration) *RedisUssdStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisUssdStore{
		client: client,
		ttl:    ttl,
		prefix: "ussd:sess:",
	}
}

func (s *RedisUssdStore) Get(ctx context.Context, id string) (*domain.UssdSession, error) {
	val, err := s.client.Get(ctx, s.prefix+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session domain.UssdSession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisUssdStore) Put(ctx context.Context, session *domain.UssdSession) error {
	val, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+session.ID, val, s.ttl).Err()
}

func (s *RedisUssdStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}
