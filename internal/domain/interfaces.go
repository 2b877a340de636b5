package domain

import (
	"context"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingStore is the durable record of bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateBookingWithLock(ctx context.Context, booking *models.Booking, capacity int) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByTicket(ctx context.Context, ticketID string) (*models.Booking, error)
	GetBookingsByVenueAndDate(ctx context.Context, venueID string, date time.Time) ([]*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	GetStats(ctx context.Context, today time.Time) (*models.Stats, error)
	Ping(ctx context.Context) error
}

// SyncQueue persists reconciliation tasks.
type SyncQueue interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
}

// LocalStore is the on-host tier: a booking store that also owns the sync
// queue and tracks which rows still need to reach the primary.
type LocalStore interface {
	BookingStore
	SyncQueue
	MarkBookingSyncStatus(ctx context.Context, id int64, status string) error
	ListUnsyncedBookings(ctx context.Context) ([]*models.Booking, error)
}

// SessionRepository stores conversation state with a TTL.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SlotCache keeps the last computed availability per venue and date.
type SlotCache interface {
	Get(ctx context.Context, venueID string, date time.Time) ([]models.SlotAvailability, bool, error)
	Set(ctx context.Context, venueID string, date time.Time, slots []models.SlotAvailability) error
	Invalidate(ctx context.Context, venueID string, date time.Time) error
}

// Catalog is the read-only venue list.
type Catalog interface {
	List() []models.Venue
	Get(id string) (models.Venue, error)
}

// AvailabilityCalculator derives per-slot availability.
type AvailabilityCalculator interface {
	ComputeSlots(ctx context.Context, date time.Time, venue models.Venue) ([]models.SlotAvailability, error)
}

// PaymentVerifier checks a checkout confirmation.
type PaymentVerifier interface {
	Verify(confirmation models.PaymentConfirmation) models.VerificationResult
}

// OrderCreator mints gateway orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*models.Order, error)
}

// BookingFinalizer persists bookings produced by a conversation.
type BookingFinalizer interface {
	Finalize(ctx context.Context, booking *models.Booking) error
	RecordFailed(ctx context.Context, booking *models.Booking, reason string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker accepts background tasks for a booking.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error
}

// SheetsWriter mirrors bookings into a spreadsheet.
type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID int64) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type TelegramService interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditKeyboard(chatID int64, messageID int, keyboard tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
