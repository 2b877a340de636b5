package models

import (
	"strings"
	"time"
)

const (
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

const (
	SourcePrimary = "primary"
	SourceLocal   = "local"
)

const (
	SyncSynced   = "synced"
	SyncUnsynced = "unsynced"
	SyncConflict = "conflict"
)

// Sync task types.
const (
	TaskReconcileBooking = "reconcile_booking"
	TaskMirrorBooking    = "mirror_booking"
	TaskDeleteBookingRow = "delete_booking_row"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusRetry     = "retry"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

const (
	// DateLayout is the wire and storage format of booking dates.
	DateLayout = "2006-01-02"

	// TicketPrefix starts every ticket id.
	TicketPrefix = "TKT-"

	// DefaultCurrency is used when an order request omits the currency.
	DefaultCurrency = "INR"

	// DefaultSessionTTL is how long an idle conversation is kept.
	DefaultSessionTTL = 24 * time.Hour

	// RateLimitMessages messages allowed per window per conversation.
	RateLimitMessages = 30

	// RateLimitWindow in seconds.
	RateLimitWindow = 60

	// DefaultMaxBookingDays is how far ahead a visit can be booked.
	DefaultMaxBookingDays = 90

	// SlotCacheTTL is how long an availability snapshot may serve degraded reads.
	SlotCacheTTL = 15 * time.Minute
)

// NormalizeDate drops the time of day, keeping the calendar date in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
