package service

import (
	"context"
	"errors"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/metrics"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingService struct {
	store    domain.BookingStore
	catalog  domain.Catalog
	cache    domain.SlotCache
	eventBus domain.EventPublisher
	worker   domain.SyncWorker
	failed   domain.SyncQueue
	now      func() time.Time
	logger   *zerolog.Logger
}

type BookingServiceOptions struct {
	Cache    domain.SlotCache
	EventBus domain.EventPublisher
	Worker   domain.SyncWorker
	// Queue exposes failed sync tasks to admins.
	Queue  domain.SyncQueue
	Now    func() time.Time
	Logger *zerolog.Logger
}

func NewBookingService(store domain.BookingStore, catalog domain.Catalog, opts BookingServiceOptions) *BookingService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &BookingService{
		store:    store,
		catalog:  catalog,
		cache:    opts.Cache,
		eventBus: opts.EventBus,
		worker:   opts.Worker,
		failed:   opts.Queue,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// NewTicketID returns a fresh ticket identifier.
func NewTicketID() string {
	return models.TicketPrefix + uuid.NewString()
}

// Finalize persists a paid booking. The amount is recomputed from the
// catalog and the slot capacity is re-checked inside the store write.
func (s *BookingService) Finalize(ctx context.Context, booking *models.Booking) error {
	if booking.ID != 0 {
		return domain.ErrBookingImmutable
	}

	venue, err := s.prepare(booking)
	if err != nil {
		return err
	}
	if booking.Visitors.Total() == 0 {
		return &domain.ValidationError{Field: "visitors", Code: "InvalidVisitors"}
	}
	if !venue.HasSlot(booking.TimeSlot) {
		return &domain.ValidationError{Field: "time_slot", Code: "SlotUnavailable"}
	}

	booking.PaymentStatus = models.PaymentCompleted
	if booking.TicketID == "" {
		booking.TicketID = NewTicketID()
	}

	err = s.store.CreateBookingWithLock(ctx, booking, venue.Capacity)
	if errors.Is(err, domain.ErrCapacity) {
		metrics.IncCapacityRejection(venue.ID)
		return &domain.CapacityError{VenueID: venue.ID, Date: booking.Date, Slot: booking.TimeSlot}
	}
	if err != nil {
		return err
	}

	log := s.logger.With().Int64("booking_id", booking.ID).Str("ticket_id", booking.TicketID).Logger()
	log.Info().Str("venue_id", venue.ID).Str("source", booking.Source).Msg("booking confirmed")

	s.invalidate(ctx, booking)
	metrics.IncBookingCreated(venue.ID, booking.Source)
	s.publishEvent(events.EventBookingCreated, booking, "")
	if booking.SyncStatus == models.SyncSynced {
		s.enqueue(ctx, models.TaskMirrorBooking, booking)
	}
	return nil
}

// RecordFailed keeps a failed payment attempt for refunds and audits. It
// holds no capacity and gets no ticket.
func (s *BookingService) RecordFailed(ctx context.Context, booking *models.Booking, reason string) error {
	if booking.ID != 0 {
		return domain.ErrBookingImmutable
	}
	if _, err := s.prepare(booking); err != nil && !errors.Is(err, domain.ErrVenueNotFound) {
		return err
	}
	booking.PaymentStatus = models.PaymentFailed
	booking.TicketID = ""

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return err
	}
	s.logger.Warn().Int64("booking_id", booking.ID).Str("payment_id", booking.PaymentID).Str("reason", reason).Msg("failed booking recorded")
	s.publishEvent(events.EventBookingFailed, booking, reason)
	return nil
}

// prepare fills the server-side fields of a draft.
func (s *BookingService) prepare(booking *models.Booking) (models.Venue, error) {
	if err := booking.Visitors.Validate(); err != nil {
		return models.Venue{}, &domain.ValidationError{Field: "visitors", Code: "InvalidVisitors"}
	}
	booking.Date = models.NormalizeDate(booking.Date)

	venue, err := s.catalog.Get(booking.VenueID)
	if err != nil {
		return models.Venue{}, err
	}
	booking.VenueName = venue.Name
	booking.TotalAmount = venue.Pricing.Total(booking.Visitors)
	return venue, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) GetByTicket(ctx context.Context, ticketID string) (*models.Booking, error) {
	return s.store.GetBookingByTicket(ctx, ticketID)
}

func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	return s.store.ListBookings(ctx, filter)
}

// Recent returns the latest bookings across all venues.
func (s *BookingService) Recent(ctx context.Context, limit int) ([]*models.Booking, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListBookings(ctx, models.BookingFilter{Limit: limit})
}

func (s *BookingService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.GetStats(ctx, s.now().UTC())
}

func (s *BookingService) Delete(ctx context.Context, id int64) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("booking_id", id).Str("ticket_id", booking.TicketID).Msg("booking deleted")
	s.invalidate(ctx, booking)
	s.publishEvent(events.EventBookingDeleted, booking, "")
	s.enqueue(ctx, models.TaskDeleteBookingRow, booking)
	return nil
}

// FailedSyncTasks lists reconcile and mirror tasks that ran out of retries.
func (s *BookingService) FailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	if s.failed == nil {
		return nil, nil
	}
	return s.failed.GetFailedSyncTasks(ctx)
}

func (s *BookingService) invalidate(ctx context.Context, booking *models.Booking) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, booking.VenueID, booking.Date); err != nil {
		s.logger.Warn().Err(err).Str("venue_id", booking.VenueID).Msg("slot cache invalidate failed")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, reason string) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{Booking: booking, Reason: reason}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueue(ctx context.Context, taskType string, booking *models.Booking) {
	if s.worker == nil {
		return
	}
	if err := s.worker.EnqueueTask(ctx, taskType, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sync enqueue error")
	}
}
