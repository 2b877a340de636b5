package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService() *SessionService {
	return NewSessionService(repository.NewMemorySessionRepository(time.Hour), 2, time.Minute, testLogger())
}

func TestSessionService_CreateAndGet(t *testing.T) {
	svc := newSessionService()
	ctx := context.Background()

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.StageInitial, session.Stage)

	loaded, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)

	require.NoError(t, svc.Delete(ctx, session.ID))
	_, err = svc.Get(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_Update(t *testing.T) {
	svc := newSessionService()
	ctx := context.Background()

	_, err := svc.Update(ctx, "tg:1", false, func(s models.Session) (models.Session, error) { return s, nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	updated, err := svc.Update(ctx, "tg:1", true, func(s models.Session) (models.Session, error) {
		s.Stage = models.StageName
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageName, updated.Stage)

	_, err = svc.Update(ctx, "tg:1", false, func(s models.Session) (models.Session, error) {
		s.Stage = models.StageEmail
		return s, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	loaded, err := svc.Get(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, models.StageName, loaded.Stage, "failed update must not be saved")
}

func TestSessionService_UpdateSerializesPerSession(t *testing.T) {
	svc := newSessionService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Update(ctx, "web", true, func(s models.Session) (models.Session, error) {
				s.Visitors.Adult++
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := svc.Get(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.Visitors.Adult)
	assert.Zero(t, svc.locks.size())
}

func TestSessionService_Allow(t *testing.T) {
	svc := newSessionService()
	ctx := context.Background()

	assert.True(t, svc.Allow(ctx, "tg:1"))
	assert.True(t, svc.Allow(ctx, "tg:1"))
	assert.False(t, svc.Allow(ctx, "tg:1"))
	assert.True(t, svc.Allow(ctx, "tg:2"))
}
