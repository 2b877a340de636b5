package repository

import (
	"context"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/rs/zerolog"
)

// TieredBookingStore writes to the primary store and keeps bookings in the
// local store when the primary is unreachable. Local rows are tagged
// unsynced and a reconcile task is queued for each. With no primary the
// local store is the only tier.
type TieredBookingStore struct {
	primary domain.BookingStore
	local   domain.LocalStore
	queue   domain.SyncWorker
	logger  *zerolog.Logger
}

func NewTieredBookingStore(primary domain.BookingStore, local domain.LocalStore, queue domain.SyncWorker, logger *zerolog.Logger) *TieredBookingStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TieredBookingStore{
		primary: primary,
		local:   local,
		queue:   queue,
		logger:  logger,
	}
}

// SetQueue attaches the reconcile queue once the worker exists.
func (s *TieredBookingStore) SetQueue(queue domain.SyncWorker) {
	s.queue = queue
}

// HasPrimary reports whether a remote primary is configured.
func (s *TieredBookingStore) HasPrimary() bool {
	return s.primary != nil
}

// classify keeps domain outcomes as they are and marks everything else as
// a store outage.
func classify(op string, err error) error {
	if err == nil || domain.IsDomainOutcome(err) {
		return err
	}
	return domain.StoreUnavailable(op, err)
}

func (s *TieredBookingStore) CreateBookingWithLock(ctx context.Context, booking *models.Booking, capacity int) error {
	if s.primary == nil {
		return classify("create booking", s.local.CreateBookingWithLock(ctx, booking, capacity))
	}

	err := s.primary.CreateBookingWithLock(ctx, booking, capacity)
	if err == nil || domain.IsDomainOutcome(err) {
		return err
	}
	return s.holdLocally(ctx, booking, err, func(ctx context.Context) error {
		return s.local.CreateBookingWithLock(ctx, booking, capacity)
	})
}

func (s *TieredBookingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if s.primary == nil {
		return classify("create booking", s.local.CreateBooking(ctx, booking))
	}

	err := s.primary.CreateBooking(ctx, booking)
	if err == nil || domain.IsDomainOutcome(err) {
		return err
	}
	return s.holdLocally(ctx, booking, err, func(ctx context.Context) error {
		return s.local.CreateBooking(ctx, booking)
	})
}

func (s *TieredBookingStore) holdLocally(ctx context.Context, booking *models.Booking, primaryErr error, write func(context.Context) error) error {
	log := s.logger.With().Str("venue_id", booking.VenueID).Str("ticket_id", booking.TicketID).Logger()
	log.Warn().Err(primaryErr).Msg("primary booking store unavailable, keeping booking locally")

	booking.ID = 0
	booking.Source = models.SourceLocal
	booking.SyncStatus = models.SyncUnsynced
	if err := write(ctx); err != nil {
		if domain.IsDomainOutcome(err) {
			return err
		}
		return domain.StoreUnavailable("create booking", err)
	}

	// completed bookings need to reach the primary; failed attempts are
	// kept for refunds and reconciled the same way
	if s.queue != nil {
		if err := s.queue.EnqueueTask(ctx, models.TaskReconcileBooking, booking); err != nil {
			log.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to queue reconcile task")
		}
	}
	return nil
}

func (s *TieredBookingStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	if s.primary == nil {
		b, err := s.local.GetBooking(ctx, id)
		return b, classify("get booking", err)
	}
	b, err := s.primary.GetBooking(ctx, id)
	return b, classify("get booking", err)
}

// GetBookingByTicket also looks at the local tier, where unsynced
// bookings live until reconciled.
func (s *TieredBookingStore) GetBookingByTicket(ctx context.Context, ticketID string) (*models.Booking, error) {
	if s.primary != nil {
		b, err := s.primary.GetBookingByTicket(ctx, ticketID)
		if err == nil {
			return b, nil
		}
		if !domain.IsDomainOutcome(err) {
			s.logger.Warn().Err(err).Msg("primary unavailable, reading ticket from local store")
		}
	}
	b, err := s.local.GetBookingByTicket(ctx, ticketID)
	return b, classify("get booking", err)
}

// GetBookingsByVenueAndDate never falls back: the local tier holds only a
// fraction of the bookings and would overstate availability.
func (s *TieredBookingStore) GetBookingsByVenueAndDate(ctx context.Context, venueID string, date time.Time) ([]*models.Booking, error) {
	if s.primary == nil {
		b, err := s.local.GetBookingsByVenueAndDate(ctx, venueID, date)
		return b, classify("list slot bookings", err)
	}
	b, err := s.primary.GetBookingsByVenueAndDate(ctx, venueID, date)
	return b, classify("list slot bookings", err)
}

func (s *TieredBookingStore) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	if s.primary != nil {
		b, err := s.primary.ListBookings(ctx, filter)
		if err == nil {
			return b, nil
		}
		s.logger.Warn().Err(err).Msg("primary unavailable, listing bookings from local store (degraded)")
	}
	b, err := s.local.ListBookings(ctx, filter)
	return b, classify("list bookings", err)
}

func (s *TieredBookingStore) DeleteBooking(ctx context.Context, id int64) error {
	if s.primary == nil {
		return classify("delete booking", s.local.DeleteBooking(ctx, id))
	}
	return classify("delete booking", s.primary.DeleteBooking(ctx, id))
}

func (s *TieredBookingStore) GetStats(ctx context.Context, today time.Time) (*models.Stats, error) {
	if s.primary != nil {
		stats, err := s.primary.GetStats(ctx, today)
		if err == nil {
			return stats, nil
		}
		s.logger.Warn().Err(err).Msg("primary unavailable, computing stats from local store (degraded)")
	}
	stats, err := s.local.GetStats(ctx, today)
	return stats, classify("stats", err)
}

func (s *TieredBookingStore) Ping(ctx context.Context) error {
	if s.primary != nil {
		return classify("ping", s.primary.Ping(ctx))
	}
	return classify("ping", s.local.Ping(ctx))
}
