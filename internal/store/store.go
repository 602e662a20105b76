package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mediadlapi/internal/models"
)

var ErrNotFound = errors.New("not found")

// SessionStore records download sessions for observability. Entries are
// short-lived: the session manager deletes them once cleanup completes.
type SessionStore interface {
	Create(ctx context.Context, s *models.DownloadSession) error
	Update(ctx context.Context, s *models.DownloadSession) error
	Get(ctx context.Context, id string) (*models.DownloadSession, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.DownloadSession, error)
}

// MemoryStore is the fallback when Redis is unavailable.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.DownloadSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.DownloadSession)}
}

func (m *MemoryStore) Create(ctx context.Context, s *models.DownloadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return errors.New("session exists")
	}
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, s *models.DownloadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.DownloadSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]models.DownloadSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DownloadSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

// RedisStore keeps session records in Redis so observability survives
// restarts and works across replicas sharing a downloads volume.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

// Sessions are transient; the TTL is a backstop in case a crash skips the
// manager's delete.
const sessionTTL = 24 * time.Hour

func (r *RedisStore) key(id string) string { return "dlsession:" + id }

func (r *RedisStore) Create(ctx context.Context, s *models.DownloadSession) error {
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	return r.set(ctx, s)
}

func (r *RedisStore) Update(ctx context.Context, s *models.DownloadSession) error {
	s.UpdatedAt = time.Now().UTC()
	return r.set(ctx, s)
}

func (r *RedisStore) set(ctx context.Context, s *models.DownloadSession) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(s.ID), b, sessionTTL).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*models.DownloadSession, error) {
	b, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var s models.DownloadSession
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.key(id)).Err()
}

func (r *RedisStore) List(ctx context.Context) ([]models.DownloadSession, error) {
	var out []models.DownloadSession
	iter := r.rdb.Scan(ctx, 0, "dlsession:*", 100).Iterator()
	for iter.Next(ctx) {
		b, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var s models.DownloadSession
		if err := json.Unmarshal(b, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
