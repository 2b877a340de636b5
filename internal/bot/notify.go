package bot

import (
	"fmt"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

// Subscribe pushes booking outcomes for Telegram sessions to their chats.
// Payments complete in the API process, so in production these events
// arrive through the Redis bridge. The returned func unsubscribes.
func (b *Bot) Subscribe(bus *events.EventBus) func() {
	offCreated := bus.Subscribe(events.EventBookingCreated, b.onBookingCreated)
	offFailed := bus.Subscribe(events.EventBookingFailed, b.onBookingFailed)
	return func() {
		offCreated()
		offFailed()
	}
}

func (b *Bot) onBookingCreated(ev *events.Event) error {
	booking, chatID, ok := b.chatBooking(ev)
	if !ok {
		return nil
	}
	text := "✅ Payment confirmed!\n\n" + b.formatTicket(booking)
	if booking.SyncStatus == models.SyncUnsynced {
		text += "\n\nYour booking is saved and will be confirmed with the museum shortly."
	}
	kb := completeKeyboard()
	b.sendWithKeyboard(chatID, text, &kb)
	return nil
}

func (b *Bot) onBookingFailed(ev *events.Event) error {
	booking, chatID, ok := b.chatBooking(ev)
	if !ok {
		return nil
	}
	b.send(chatID, fmt.Sprintf(msgPaymentFailed, b.venueName(booking.VenueID), booking.Date.Format(models.DateLayout)))
	return nil
}

func (b *Bot) chatBooking(ev *events.Event) (*models.Booking, int64, bool) {
	payload, err := ev.DecodeBooking()
	if err != nil || payload.Booking == nil {
		b.logger.Warn().Err(err).Str("event", ev.Type).Msg("undecodable booking event")
		return nil, 0, false
	}
	chatID, ok := ChatIDFromSession(payload.Booking.SessionID)
	if !ok {
		return nil, 0, false
	}
	b.logger.Info().Str("event", ev.Type).Int64("chat_id", chatID).Bool("remote", ev.Remote).Msg("notifying chat")
	return payload.Booking, chatID, true
}
