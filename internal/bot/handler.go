package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/conversation"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var errNotAwaitingPayment = errors.New("session is not awaiting payment")

const (
	msgCancelled     = "Booking cancelled. Send /start whenever you'd like to book again."
	msgUnknown       = "I didn't recognise that command. Send /start to book tickets or /status to check your booking."
	msgNoSession     = "There's no booking in progress. Send /start to begin."
	msgNotAtPayment  = "There's nothing to pay for yet. Send /status to see where you are."
	msgNeedsText     = "Please reply with text or use the buttons."
	msgPaymentFailed = "❌ Your payment for %s on %s could not be confirmed. Send /status to see what to do next."
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.step(ctx, chatID, models.Input{Kind: models.InputStart})
		case "cancel":
			b.step(ctx, chatID, models.Input{Kind: models.InputReturnHome})
		case "status":
			b.status(ctx, chatID)
		default:
			b.send(chatID, msgUnknown)
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.send(chatID, msgNeedsText)
		return
	}
	b.step(ctx, chatID, models.Input{Kind: models.InputText, Text: text})
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if err := b.tg.AnswerCallback(cb.ID, ""); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("answer callback failed")
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case data == cbNoop:
	case data == cbPay:
		b.checkout(ctx, chatID)
	case data == cbAgain:
		b.step(ctx, chatID, models.Input{Kind: models.InputBookAgain})
	case data == cbHome:
		b.step(ctx, chatID, models.Input{Kind: models.InputReturnHome})
	case strings.HasPrefix(data, cbVenue):
		b.step(ctx, chatID, models.Input{Kind: models.InputSelectVenue, VenueID: strings.TrimPrefix(data, cbVenue)})
	case strings.HasPrefix(data, cbDate):
		b.step(ctx, chatID, models.Input{Kind: models.InputSelectDate, Date: strings.TrimPrefix(data, cbDate)})
	case strings.HasPrefix(data, cbSlot):
		b.step(ctx, chatID, models.Input{Kind: models.InputSelectSlot, Slot: strings.TrimPrefix(data, cbSlot)})
	case strings.HasPrefix(data, cbMonth):
		month, err := time.Parse(monthLayout, strings.TrimPrefix(data, cbMonth))
		if err != nil {
			return
		}
		first, last := b.bookingWindow()
		b.editKeyboard(chatID, cb.Message.MessageID, calendarKeyboard(month, first, last))
	case strings.HasPrefix(data, cbVisitorOK):
		counts, err := decodeCounts(strings.TrimPrefix(data, cbVisitorOK))
		if err != nil {
			return
		}
		b.step(ctx, chatID, models.Input{Kind: models.InputVisitors, Visitors: &counts})
	case strings.HasPrefix(data, cbVisitors):
		counts, err := decodeCounts(strings.TrimPrefix(data, cbVisitors))
		if err != nil {
			return
		}
		b.editKeyboard(chatID, cb.Message.MessageID, visitorKeyboard(counts))
	default:
		zerolog.Ctx(ctx).Warn().Str("data", data).Msg("unknown callback")
	}
}

func (b *Bot) editKeyboard(chatID int64, messageID int, kb tgbotapi.InlineKeyboardMarkup) {
	if err := b.tg.EditKeyboard(chatID, messageID, kb); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("edit keyboard failed")
	}
}

// render sends the replies of one step as a single message with the
// keyboard for the stage the session is now in.
func (b *Bot) render(chatID int64, res conversation.Result) {
	if res.Navigate == conversation.NavigateHome {
		b.send(chatID, msgCancelled)
		return
	}

	texts := make([]string, 0, len(res.Replies))
	for _, r := range res.Replies {
		texts = append(texts, r.Text)
	}
	if len(texts) == 0 {
		return
	}
	b.sendWithKeyboard(chatID, strings.Join(texts, "\n\n"), b.keyboardFor(res))
}

func (b *Bot) keyboardFor(res conversation.Result) *tgbotapi.InlineKeyboardMarkup {
	var kb tgbotapi.InlineKeyboardMarkup
	switch res.Session.Stage {
	case models.StageMuseum:
		kb = venueKeyboard(b.catalog.List())
	case models.StageDate:
		first, last := b.bookingWindow()
		kb = calendarKeyboard(first, first, last)
	case models.StageTime:
		return slotKeyboard(res.Slots)
	case models.StageVisitors:
		kb = visitorKeyboard(res.Session.Visitors)
	case models.StagePayment:
		kb = paymentKeyboard()
	case models.StageComplete:
		kb = completeKeyboard()
	default:
		return nil
	}
	return &kb
}

// checkout mints an order for the session's amount and sends the
// payment link. The confirmation itself reaches the API, which publishes
// the completed booking back to this chat.
func (b *Bot) checkout(ctx context.Context, chatID int64) {
	id := SessionID(chatID)

	var order *models.Order
	var amount int64
	_, err := b.sessions.Update(ctx, id, false, func(cur models.Session) (models.Session, error) {
		if cur.Stage != models.StagePayment || cur.TotalAmount <= 0 {
			return cur, errNotAwaitingPayment
		}
		o, err := b.orders.CreateOrder(ctx, float64(cur.TotalAmount), b.opts.Currency, receipt(chatID, b.opts.Now()))
		if err != nil {
			return cur, err
		}
		order, amount = o, cur.TotalAmount
		cur.OrderID = o.ID
		return cur, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, errNotAwaitingPayment), errors.Is(err, domain.ErrSessionNotFound):
		b.send(chatID, msgNotAtPayment)
		return
	default:
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("create order failed")
		b.send(chatID, userMessage(err))
		return
	}

	zerolog.Ctx(ctx).Info().Int64("chat_id", chatID).Str("order_id", order.ID).Msg("checkout started")

	text := fmt.Sprintf("Your order %s for %s is ready. I'll send your ticket here as soon as the payment is confirmed.", order.ID, formatRupees(amount))
	link, ok := checkoutLink(b.opts.CheckoutURL, order.ID, id)
	if !ok {
		b.send(chatID, text)
		return
	}
	kb := checkoutKeyboard(link)
	b.sendWithKeyboard(chatID, text, &kb)
}

func checkoutLink(base, orderID, sessionID string) (string, bool) {
	if strings.TrimSpace(base) == "" {
		return "", false
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("order_id", orderID)
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), true
}

// receipt stays within the gateway's 40 character limit.
func receipt(chatID int64, now time.Time) string {
	return fmt.Sprintf("rcpt_tg%d_%d", chatID, now.Unix())
}

func (b *Bot) status(ctx context.Context, chatID int64) {
	session, err := b.sessions.Get(ctx, SessionID(chatID))
	if errors.Is(err, domain.ErrSessionNotFound) {
		b.send(chatID, msgNoSession)
		return
	}
	if err != nil {
		b.send(chatID, userMessage(err))
		return
	}

	if session.TicketID != "" && b.tickets != nil {
		booking, err := b.tickets.GetByTicket(ctx, session.TicketID)
		if err == nil {
			b.send(chatID, b.formatTicket(booking))
			return
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("ticket_id", session.TicketID).Msg("ticket lookup failed")
	}
	b.send(chatID, b.formatProgress(session))
}

func (b *Bot) formatProgress(s *models.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Booking in progress (step: %s)", s.Stage)
	if s.VenueID != "" {
		fmt.Fprintf(&sb, "\nMuseum: %s", b.venueName(s.VenueID))
	}
	if !s.Date.IsZero() {
		fmt.Fprintf(&sb, "\nDate: %s", s.Date.Format(models.DateLayout))
	}
	if s.TimeSlot != "" {
		fmt.Fprintf(&sb, "\nTime: %s", s.TimeSlot)
	}
	if s.TotalAmount > 0 {
		fmt.Fprintf(&sb, "\nTotal: %s", formatRupees(s.TotalAmount))
	}
	if s.Stage == models.StagePayment && s.OrderID != "" {
		fmt.Fprintf(&sb, "\nAwaiting payment for order %s", s.OrderID)
	}
	return sb.String()
}

func (b *Bot) formatTicket(booking *models.Booking) string {
	venue := booking.VenueName
	if venue == "" {
		venue = b.venueName(booking.VenueID)
	}
	return fmt.Sprintf("🎟 Ticket %s\n%s\n%s at %s\nVisitors: %d\nPaid: %s",
		booking.TicketID,
		venue,
		booking.Date.Format(models.DateLayout),
		booking.TimeSlot,
		booking.Visitors.Total(),
		formatRupees(booking.TotalAmount),
	)
}
