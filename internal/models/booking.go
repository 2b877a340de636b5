package models

import "time"

type Booking struct {
	ID            int64         `json:"id"`
	TicketID      string        `json:"ticket_id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	VenueID       string        `json:"venue_id"`
	VenueName     string        `json:"venue_name"`
	Date          time.Time     `json:"date"`
	TimeSlot      string        `json:"time_slot"`
	Visitors      VisitorCounts `json:"visitors"`
	TotalAmount   int64         `json:"total_amount"`
	PaymentStatus string        `json:"payment_status"` // completed, failed
	OrderID       string        `json:"order_id,omitempty"`
	PaymentID     string        `json:"payment_id,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`

	SpecialRequirements string `json:"special_requirements,omitempty"`
	Language            string `json:"language,omitempty"`
	GuidedTour          bool   `json:"guided_tour"`
	AudioGuide          bool   `json:"audio_guide"`

	Source     string    `json:"source"`      // primary, local
	SyncStatus string    `json:"sync_status"` // synced, unsynced, conflict
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// Counts reports whether the booking takes up slot capacity.
func (b *Booking) Counts() bool {
	return b.PaymentStatus != PaymentFailed
}

// BookingFilter selects bookings for listing. Zero fields match everything.
type BookingFilter struct {
	VenueID string
	Date    time.Time
	From    time.Time
	To      time.Time
	Limit   int
}

// Matches applies the filter to a single booking. Used by change
// notifications, which evaluate filters in memory.
func (f BookingFilter) Matches(b *Booking) bool {
	if f.VenueID != "" && b.VenueID != f.VenueID {
		return false
	}
	if !f.Date.IsZero() && !SameDate(f.Date, b.Date) {
		return false
	}
	if !f.From.IsZero() && b.Date.Before(NormalizeDate(f.From)) {
		return false
	}
	if !f.To.IsZero() && b.Date.After(NormalizeDate(f.To)) {
		return false
	}
	return true
}
