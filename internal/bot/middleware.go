package bot

import (
	"context"
	"errors"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
)

const (
	msgSlowDown       = "⚠️ You're sending messages too quickly. Please wait a moment."
	msgSessionExpired = "Your booking session has expired. Send /start to begin again."
	msgBusy           = "⚠️ The booking service is busy right now. Please try again shortly."
	msgPaymentStart   = "❌ I couldn't start the payment. Please try again in a moment."
	msgGeneric        = "❌ Something went wrong while handling your request. Please try again later."
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// userMessage turns a failed step into something a visitor can act on.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrSessionNotFound):
		return msgSessionExpired
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return msgBusy
	case errors.Is(err, domain.ErrGateway):
		return msgPaymentStart
	default:
		return msgGeneric
	}
}
