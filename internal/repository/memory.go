package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

type memorySession struct {
	session   models.Session
	expiresAt time.Time
}

// MemorySessionRepository is the in-process session store used when Redis
// is not configured or is down.
type MemorySessionRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	if ttl <= 0 {
		ttl = models.DefaultSessionTTL
	}
	return &MemorySessionRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySessionRepository) GetSession(_ context.Context, id string) (*models.Session, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*memorySession)
	if r.now().After(entry.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	s := entry.session
	return &s, nil
}

// SaveSession stores a copy so callers cannot mutate stored state.
func (r *MemorySessionRepository) SaveSession(_ context.Context, session *models.Session) error {
	r.sessions.Store(session.ID, &memorySession{session: *session, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemorySessionRepository) DeleteSession(_ context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

// Sweep drops expired sessions and rate-limit windows.
func (r *MemorySessionRepository) Sweep() int {
	now := r.now()
	removed := 0
	r.sessions.Range(func(key, value interface{}) bool {
		if now.After(value.(*memorySession).expiresAt) {
			r.sessions.Delete(key)
			removed++
		}
		return true
	})
	r.rateLimits.Range(func(key, value interface{}) bool {
		entry := value.(*rateLimitEntry)
		entry.mu.Lock()
		expired := now.After(entry.expiresAt)
		entry.mu.Unlock()
		if expired {
			r.rateLimits.Delete(key)
		}
		return true
	})
	return removed
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{expiresAt: now.Add(window)})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if now.After(entry.expiresAt) {
		entry.count = 0
		entry.expiresAt = now.Add(window)
	}
	entry.count++
	return entry.count <= limit, nil
}
