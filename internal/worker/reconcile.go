package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

// reconcile copies a locally held booking into the primary store. It is
// idempotent per ticket: a booking the primary already has is only marked
// synced locally.
func (w *SyncWorker) reconcile(ctx context.Context, localID int64) error {
	if w.primary == nil {
		return permanentError{errors.New("no primary store configured")}
	}

	booking, err := w.local.GetBooking(ctx, localID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return permanentError{fmt.Errorf("local booking %d: %w", localID, err)}
	}
	if err != nil {
		return err
	}
	if booking.SyncStatus != models.SyncUnsynced {
		return nil
	}

	if booking.TicketID != "" {
		existing, err := w.primary.GetBookingByTicket(ctx, booking.TicketID)
		switch {
		case err == nil && existing != nil:
			if err := w.markSynced(ctx, booking); err != nil {
				return err
			}
			w.mirror(ctx, existing)
			return nil
		case err != nil && !errors.Is(err, domain.ErrBookingNotFound):
			return err
		}
	}

	remote := *booking
	remote.ID = 0
	remote.SyncStatus = models.SyncSynced

	if booking.Counts() {
		venue, err := w.catalog.Get(booking.VenueID)
		if err != nil {
			return permanentError{err}
		}
		err = w.primary.CreateBookingWithLock(ctx, &remote, venue.Capacity)
		switch {
		case errors.Is(err, domain.ErrCapacity):
			return w.conflict(ctx, booking, err, "slot filled while the primary was unreachable")
		case errors.Is(err, domain.ErrPaymentReused):
			return w.conflict(ctx, booking, err, "payment already confirms a booking in the primary store")
		case err != nil:
			return err
		}
	} else if err := w.primary.CreateBooking(ctx, &remote); err != nil {
		return err
	}

	if err := w.markSynced(ctx, booking); err != nil {
		return err
	}
	w.mirror(ctx, &remote)
	return nil
}

// conflict parks a booking the primary refused; an operator settles it.
func (w *SyncWorker) conflict(ctx context.Context, booking *models.Booking, cause error, reason string) error {
	if err := w.local.MarkBookingSyncStatus(ctx, booking.ID, models.SyncConflict); err != nil {
		return err
	}
	booking.SyncStatus = models.SyncConflict
	w.publish(events.EventBookingConflict, booking, reason)
	return permanentError{cause}
}

// mirror queues the primary copy of a reconciled booking for Sheets, whose
// rows are keyed by primary ids.
func (w *SyncWorker) mirror(ctx context.Context, remote *models.Booking) {
	if w.sheets == nil || !remote.Counts() {
		return
	}
	if err := w.EnqueueTask(ctx, models.TaskMirrorBooking, remote); err != nil {
		w.logger.Error().Err(err).Str("ticket_id", remote.TicketID).Msg("queue mirror after reconcile")
	}
}

func (w *SyncWorker) markSynced(ctx context.Context, booking *models.Booking) error {
	if err := w.local.MarkBookingSyncStatus(ctx, booking.ID, models.SyncSynced); err != nil {
		return err
	}
	booking.SyncStatus = models.SyncSynced
	w.publish(events.EventBookingSynced, booking, "")
	return nil
}
