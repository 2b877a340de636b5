package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionService loads and stores conversations and serializes updates to
// a single session within this process.
type SessionService struct {
	repo      domain.SessionRepository
	locks     *keyedMutex
	rateLimit int
	window    time.Duration
	now       func() time.Time
	logger    *zerolog.Logger
}

func NewSessionService(repo domain.SessionRepository, rateLimit int, window time.Duration, logger *zerolog.Logger) *SessionService {
	if rateLimit <= 0 {
		rateLimit = models.RateLimitMessages
	}
	if window <= 0 {
		window = models.RateLimitWindow * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SessionService{
		repo:      repo,
		locks:     newKeyedMutex(),
		rateLimit: rateLimit,
		window:    window,
		now:       time.Now,
		logger:    logger,
	}
}

// Create stores a new session. An empty id gets a random one.
func (s *SessionService) Create(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	session := models.NewSession(id, s.now().UTC())
	if err := s.repo.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return session, nil
}

func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// Update runs fn on the stored session while holding the session lock and
// saves the result. With create set a missing session starts fresh.
func (s *SessionService) Update(ctx context.Context, id string, create bool, fn func(models.Session) (models.Session, error)) (*models.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		if !create {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		current = models.NewSession(id, s.now().UTC())
	}

	next, err := fn(*current)
	if err != nil {
		return nil, err
	}
	next.ID = id
	next.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveSession(ctx, &next); err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("save session failed")
		return nil, err
	}
	return &next, nil
}

// Allow applies the per-conversation message rate limit.
func (s *SessionService) Allow(ctx context.Context, key string) bool {
	ok, err := s.repo.CheckRateLimit(ctx, key, s.rateLimit, s.window)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return true
	}
	return ok
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock blocks until key is free and returns its unlock func. Entries are
// dropped once nobody holds or waits for them.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
