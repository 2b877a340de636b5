package worker

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/database"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorTaskSuccess(t *testing.T) {
	local := newTestDB(t, "local.db")
	sheets := &fakeSheets{}
	worker := NewSyncWorker(local, Options{Sheets: sheets})
	ctx := context.Background()

	booking := completedBooking("TKT-1", 2)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskMirrorBooking, booking))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok, "expected task in local queue")
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, local, task.ID)
	assert.Equal(t, models.TaskStatusCompleted, status)
	assert.Equal(t, 0, retryCount)
	assert.False(t, nextRetry.Valid)
	assert.Equal(t, 1, sheets.upsertCalls)
}

func TestMirrorTaskRetry(t *testing.T) {
	local := newTestDB(t, "local.db")
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	worker := NewSyncWorker(local, Options{Sheets: sheets, Retry: RetryPolicy{MaxRetries: 3, InitialDelay: time.Minute}})
	ctx := context.Background()

	booking := completedBooking("TKT-2", 1)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskMirrorBooking, booking))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, local, task.ID)
	assert.Equal(t, models.TaskStatusRetry, status)
	assert.Equal(t, 1, retryCount)
	require.True(t, nextRetry.Valid)
	assert.True(t, nextRetry.Time.After(time.Now()))
}

func TestMirrorTaskFailsAfterMaxRetries(t *testing.T) {
	local := newTestDB(t, "local.db")
	worker := NewSyncWorker(local, Options{Sheets: &fakeSheets{err: errors.New("fatal")}, Retry: RetryPolicy{MaxRetries: 1}})
	ctx := context.Background()

	booking := completedBooking("TKT-3", 1)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskMirrorBooking, booking))
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, local, task.ID)
	assert.Equal(t, models.TaskStatusFailed, status)
}

func TestMirrorWithoutSheetsIsNoop(t *testing.T) {
	worker := NewSyncWorker(newTestDB(t, "local.db"), Options{})
	assert.NoError(t, worker.handleTask(context.Background(), models.TaskMirrorBooking, taskPayload{BookingID: 1}))
	assert.Error(t, worker.handleTask(context.Background(), "bogus", taskPayload{}))
}

func TestReconcileCopiesLocalBookingToPrimary(t *testing.T) {
	local := newTestDB(t, "local.db")
	primary := newTestDB(t, "primary.db")
	bus := events.NewEventBus()
	synced := make(chan string, 1)
	bus.Subscribe(events.EventBookingSynced, func(ev *events.Event) error {
		p, err := ev.DecodeBooking()
		if err == nil {
			synced <- p.Booking.TicketID
		}
		return err
	})

	worker := NewSyncWorker(local, Options{Primary: primary, Catalog: fakeCatalog{capacity: 10}, Publisher: bus})
	ctx := context.Background()

	booking := localBooking("TKT-local", 3)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskReconcileBooking, booking))

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remote, err := primary.GetBookingByTicket(ctx, "TKT-local")
	require.NoError(t, err)
	assert.Equal(t, models.SourceLocal, remote.Source)
	assert.Equal(t, models.SyncSynced, remote.SyncStatus)

	stored, err := local.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, stored.SyncStatus)
	assert.Equal(t, "TKT-local", <-synced)

	// a second run finds nothing to do and does not duplicate the booking
	require.NoError(t, worker.reconcile(ctx, booking.ID))
	rows, err := primary.ListBookings(ctx, models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReconcileMirrorsPrimaryCopy(t *testing.T) {
	local := newTestDB(t, "local.db")
	primary := newTestDB(t, "primary.db")
	sheets := &fakeSheets{}
	worker := NewSyncWorker(local, Options{Primary: primary, Catalog: fakeCatalog{capacity: 10}, Sheets: sheets})
	ctx := context.Background()

	// ids diverge between tiers
	require.NoError(t, primary.CreateBooking(ctx, completedBooking("TKT-online-1", 1)))
	require.NoError(t, primary.CreateBooking(ctx, completedBooking("TKT-online-2", 1)))

	booking := localBooking("TKT-offline", 2)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskReconcileBooking, booking))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	remote, err := primary.GetBookingByTicket(ctx, "TKT-offline")
	require.NoError(t, err)
	assert.NotEqual(t, booking.ID, remote.ID)

	mirror, ok := worker.tryLocalQueue()
	require.True(t, ok, "reconcile should queue a mirror task")
	assert.Equal(t, models.TaskMirrorBooking, mirror.TaskType)
	assert.Equal(t, remote.ID, mirror.BookingID)

	worker.processTask(ctx, &mirror)
	require.Len(t, sheets.upserted, 1)
	assert.Equal(t, remote.ID, sheets.upserted[0].ID)
	assert.Equal(t, "TKT-offline", sheets.upserted[0].TicketID)

	status, _, _ := loadTaskStatus(t, local, mirror.ID)
	assert.Equal(t, models.TaskStatusCompleted, status)
}

func TestReconcileFailedAttemptIsNotMirrored(t *testing.T) {
	local := newTestDB(t, "local.db")
	primary := newTestDB(t, "primary.db")
	worker := NewSyncWorker(local, Options{Primary: primary, Catalog: fakeCatalog{capacity: 10}, Sheets: &fakeSheets{}})
	ctx := context.Background()

	booking := localBooking("", 1)
	booking.PaymentStatus = models.PaymentFailed
	require.NoError(t, local.CreateBooking(ctx, booking))

	require.NoError(t, worker.reconcile(ctx, booking.ID))
	_, ok := worker.tryLocalQueue()
	assert.False(t, ok)
}

func TestReconcileConflictWhenPaymentAlreadyUsed(t *testing.T) {
	local := newTestDB(t, "local.db")
	primary := newTestDB(t, "primary.db")
	worker := NewSyncWorker(local, Options{Primary: primary, Catalog: fakeCatalog{capacity: 10}})
	ctx := context.Background()

	online := completedBooking("TKT-online", 1)
	online.PaymentID = "pay_shared"
	require.NoError(t, primary.CreateBooking(ctx, online))

	booking := localBooking("TKT-offline", 1)
	booking.PaymentID = "pay_shared"
	require.NoError(t, local.CreateBooking(ctx, booking))

	err := worker.reconcile(ctx, booking.ID)
	var permanent permanentError
	require.True(t, errors.As(err, &permanent))
	assert.ErrorIs(t, err, domain.ErrPaymentReused)

	stored, err := local.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncConflict, stored.SyncStatus)
}

func TestDeleteRowTask(t *testing.T) {
	local := newTestDB(t, "local.db")
	sheets := &fakeSheets{}
	worker := NewSyncWorker(local, Options{Sheets: sheets})
	ctx := context.Background()

	require.NoError(t, worker.EnqueueTask(ctx, models.TaskDeleteBookingRow, &models.Booking{ID: 41, TicketID: "TKT-gone"}))
	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	assert.Equal(t, []int64{41}, sheets.deleted)
	status, _, _ := loadTaskStatus(t, local, task.ID)
	assert.Equal(t, models.TaskStatusCompleted, status)

	noSheets := NewSyncWorker(local, Options{})
	assert.NoError(t, noSheets.handleTask(ctx, models.TaskDeleteBookingRow, taskPayload{BookingID: 41}))
}

func TestReconcileIsIdempotentPerTicket(t *testing.T) {
	local := newTestDB(t, "local.db")
	primary := newTestDB(t, "primary.db")
	worker := NewSyncWorker(local, Options{Primary: primary, Catalog: fakeCatalog{capacity: 10}})
	ctx := context.Background()

	// the primary committed but the caller saw an error
	require.NoError(t, primary.CreateBooking(ctx, completedBooking("TKT-dup", 2)))
	booking := localBooking("TKT-dup", 2)
	require.NoError(t, local.CreateBooking(ctx, booking))

	require.NoError(t, worker.reconcile(ctx, booking.ID))
	rows, err := primary.ListBookings(ctx, models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReconcileConflictWhenSlotFilled(t *testing.T) {
	local := newTestDB(t, "local.db")
	primary := newTestDB(t, "primary.db")
	bus := events.NewEventBus()
	conflicts := 0
	bus.Subscribe(events.EventBookingConflict, func(*events.Event) error { conflicts++; return nil })

	worker := NewSyncWorker(local, Options{Primary: primary, Catalog: fakeCatalog{capacity: 4}, Publisher: bus})
	ctx := context.Background()

	require.NoError(t, primary.CreateBooking(ctx, completedBooking("TKT-online", 3)))
	booking := localBooking("TKT-offline", 2)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskReconcileBooking, booking))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, local, task.ID)
	assert.Equal(t, models.TaskStatusFailed, status)
	stored, err := local.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncConflict, stored.SyncStatus)
	assert.Equal(t, 1, conflicts)
}

func TestReconcileRetriesWhenPrimaryDown(t *testing.T) {
	local := newTestDB(t, "local.db")
	primary := newTestDB(t, "primary.db")
	require.NoError(t, primary.Close())
	worker := NewSyncWorker(local, Options{Primary: primary, Catalog: fakeCatalog{capacity: 10}})
	ctx := context.Background()

	booking := localBooking("TKT-wait", 1)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskReconcileBooking, booking))
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	status, retryCount, _ := loadTaskStatus(t, local, task.ID)
	assert.Equal(t, models.TaskStatusRetry, status)
	assert.Equal(t, 1, retryCount)
}

func TestEnqueueTaskUsesRedisAndDeadLetter(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	local := newTestDB(t, "local.db")
	worker := NewSyncWorker(local, Options{Redis: client, Sheets: &fakeSheets{err: errors.New("down")}, Retry: RetryPolicy{MaxRetries: 1}})
	ctx := context.Background()

	booking := completedBooking("TKT-r", 1)
	require.NoError(t, local.CreateBooking(ctx, booking))
	require.NoError(t, worker.EnqueueTask(ctx, models.TaskMirrorBooking, booking))

	_, ok := worker.tryLocalQueue()
	assert.False(t, ok, "task should go to redis, not memory")

	task, ok := worker.tryRedis(ctx)
	require.True(t, ok)
	assert.Equal(t, booking.ID, task.BookingID)

	worker.processTask(ctx, &task)
	dead, err := s.List(deadLetterKey)
	require.NoError(t, err)
	assert.Len(t, dead, 1)
}

func TestEnqueueTaskValidation(t *testing.T) {
	worker := NewSyncWorker(newTestDB(t, "local.db"), Options{})
	ctx := context.Background()

	assert.Error(t, worker.EnqueueTask(ctx, "", &models.Booking{ID: 1}))
	assert.Error(t, worker.EnqueueTask(ctx, models.TaskMirrorBooking, nil))
	assert.Error(t, worker.EnqueueTask(ctx, models.TaskMirrorBooking, &models.Booking{}))
}

func TestStartStopsOnCancel(t *testing.T) {
	worker := NewSyncWorker(newTestDB(t, "local.db"), Options{PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDecodePayload(t *testing.T) {
	decoded, err := decodePayload(`{"booking_id":123}`)
	require.NoError(t, err)
	assert.Equal(t, int64(123), decoded.BookingID)

	_, err = decodePayload(`invalid json`)
	assert.Error(t, err)
}

// Helpers

type fakeSheets struct {
	err         error
	upsertCalls int
	deleteCalls int
	upserted    []*models.Booking
	deleted     []int64
}

func (f *fakeSheets) UpsertBooking(_ context.Context, b *models.Booking) error {
	f.upsertCalls++
	f.upserted = append(f.upserted, b)
	return f.err
}

func (f *fakeSheets) DeleteBookingRow(_ context.Context, id int64) error {
	f.deleteCalls++
	f.deleted = append(f.deleted, id)
	return f.err
}

type fakeCatalog struct {
	capacity int
}

func (c fakeCatalog) List() []models.Venue {
	v, _ := c.Get("1")
	return []models.Venue{v}
}

func (c fakeCatalog) Get(id string) (models.Venue, error) {
	if id != "1" {
		return models.Venue{}, domain.ErrVenueNotFound
	}
	return models.Venue{ID: "1", Name: "National Museum", Capacity: c.capacity, TimeSlots: []string{"10:00 AM"}}, nil
}

func completedBooking(ticket string, adults int) *models.Booking {
	return &models.Booking{
		TicketID:      ticket,
		Name:          "Asha Rao",
		Email:         "a@b.co",
		Phone:         "+919876543210",
		VenueID:       "1",
		VenueName:     "National Museum",
		Date:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TimeSlot:      "10:00 AM",
		Visitors:      models.VisitorCounts{Adult: adults},
		TotalAmount:   int64(adults) * 150,
		PaymentStatus: models.PaymentCompleted,
	}
}

func localBooking(ticket string, adults int) *models.Booking {
	b := completedBooking(ticket, adults)
	b.Source = models.SourceLocal
	b.SyncStatus = models.SyncUnsynced
	return b
}

func newTestDB(t *testing.T, name string) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), name), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM sync_queue WHERE id = ?`, id)
	require.NoError(t, row.Scan(&status, &retryCount, &nextRetry))
	return status, retryCount, nextRetry
}
