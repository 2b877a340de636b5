package service

import (
	"context"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/rs/zerolog"
)

// AvailabilityService derives per-slot availability from the booking store.
type AvailabilityService struct {
	store   domain.BookingStore
	cache   domain.SlotCache
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewAvailabilityService(store domain.BookingStore, cache domain.SlotCache, timeout time.Duration, logger *zerolog.Logger) *AvailabilityService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AvailabilityService{store: store, cache: cache, timeout: timeout, logger: logger}
}

// ComputeSlots returns one entry per venue slot, in catalog order. A store
// failure is reported as StoreUnavailable and never read as "no bookings".
func (s *AvailabilityService) ComputeSlots(ctx context.Context, date time.Time, venue models.Venue) ([]models.SlotAvailability, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	date = models.NormalizeDate(date)
	bookings, err := s.store.GetBookingsByVenueAndDate(ctx, venue.ID, date)
	if err != nil {
		return nil, domain.StoreUnavailable("compute slots", err)
	}

	slots := Tally(venue, bookings)
	if s.cache != nil {
		if err := s.cache.Set(ctx, venue.ID, date, slots); err != nil {
			s.logger.Debug().Err(err).Str("venue_id", venue.ID).Msg("slot cache write failed")
		}
	}
	return slots, nil
}

// SlotsWithFallback serves the last cached snapshot, flagged stale, when
// the store is unavailable.
func (s *AvailabilityService) SlotsWithFallback(ctx context.Context, date time.Time, venue models.Venue) (slots []models.SlotAvailability, stale bool, err error) {
	slots, err = s.ComputeSlots(ctx, date, venue)
	if err == nil || s.cache == nil {
		return slots, false, err
	}

	cached, ok, cacheErr := s.cache.Get(ctx, venue.ID, models.NormalizeDate(date))
	if cacheErr != nil || !ok {
		return nil, false, err
	}
	s.logger.Warn().Err(err).Str("venue_id", venue.ID).Str("date", date.Format(models.DateLayout)).
		Msg("booking store unavailable, serving cached availability")
	return cached, true, nil
}

// Tally sums visitors of non-failed bookings per slot. Bookings for other
// slots are ignored; every venue slot gets an entry.
func Tally(venue models.Venue, bookings []*models.Booking) []models.SlotAvailability {
	used := make(map[string]int, len(venue.TimeSlots))
	for _, b := range bookings {
		if b == nil || !b.Counts() || b.VenueID != venue.ID {
			continue
		}
		used[b.TimeSlot] += b.Visitors.Total()
	}

	slots := make([]models.SlotAvailability, 0, len(venue.TimeSlots))
	for _, label := range venue.TimeSlots {
		available := venue.Capacity - used[label]
		if available < 0 {
			available = 0
		}
		slots = append(slots, models.SlotAvailability{
			Time:        label,
			Available:   available,
			Total:       venue.Capacity,
			IsAvailable: available > 0,
		})
	}
	return slots
}
