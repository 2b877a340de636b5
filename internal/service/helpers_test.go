package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/database"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var visitDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testVenue() models.Venue {
	return models.Venue{
		ID:        "1",
		Name:      "National Museum",
		Capacity:  10,
		TimeSlots: []string{"10:00 AM", "12:00 PM", "02:00 PM"},
		Pricing:   models.Pricing{Adult: 150, Child: 50, Senior: 100, Tourist: 300},
	}
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func closedDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", testLogger())
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return db
}

func draft(slot string, visitors models.VisitorCounts) *models.Booking {
	return &models.Booking{
		Name:      "Asha Rao",
		Email:     "a@b.co",
		Phone:     "+919876543210",
		VenueID:   "1",
		Date:      visitDate,
		TimeSlot:  slot,
		Visitors:  visitors,
		OrderID:   "order_1",
		PaymentID: "pay_" + uuid.NewString(),
	}
}

type recordingWorker struct {
	mu    sync.Mutex
	tasks []string
}

func (w *recordingWorker) EnqueueTask(_ context.Context, taskType string, _ *models.Booking) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tasks = append(w.tasks, taskType)
	return nil
}

func (w *recordingWorker) Tasks() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.tasks...)
}
