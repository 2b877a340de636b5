package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/conversation"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/metrics"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	sessionPrefix        = "tg:"
	defaultUpdateTimeout = 30 * time.Second
)

// TicketLookup resolves a ticket id for /status.
type TicketLookup interface {
	GetByTicket(ctx context.Context, ticketID string) (*models.Booking, error)
}

type Options struct {
	// CheckoutURL is the hosted payment page; the order id and session id
	// are appended as query parameters.
	CheckoutURL    string
	Currency       string
	MaxBookingDays int
	UpdateTimeout  time.Duration
	Now            func() time.Time
}

// Bot is the Telegram front-end of the booking conversation.
type Bot struct {
	tg       domain.TelegramService
	sessions *service.SessionService
	engine   *conversation.Engine
	catalog  domain.Catalog
	orders   domain.OrderCreator
	tickets  TicketLookup
	opts     Options
	logger   *zerolog.Logger
}

func NewBot(
	tg domain.TelegramService,
	sessions *service.SessionService,
	engine *conversation.Engine,
	catalog domain.Catalog,
	orders domain.OrderCreator,
	tickets TicketLookup,
	opts Options,
	logger *zerolog.Logger,
) *Bot {
	if opts.Currency == "" {
		opts.Currency = models.DefaultCurrency
	}
	if opts.MaxBookingDays <= 0 {
		opts.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = defaultUpdateTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "bot").Logger()

	return &Bot{
		tg:       tg,
		sessions: sessions,
		engine:   engine,
		catalog:  catalog,
		orders:   orders,
		tickets:  tickets,
		opts:     opts,
		logger:   &l,
	}
}

// SessionID is the conversation id used for a chat.
func SessionID(chatID int64) string {
	return sessionPrefix + strconv.FormatInt(chatID, 10)
}

// ChatIDFromSession reverses SessionID. Sessions started elsewhere report
// false.
func ChatIDFromSession(sessionID string) (int64, bool) {
	raw, ok := strings.CutPrefix(sessionID, sessionPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.tg.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() { metrics.ObserveBotUpdate(time.Since(start)) }()

	updateCtx, cancel := context.WithTimeout(ctx, b.opts.UpdateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		chatID := chatOf(update)
		if chatID == 0 {
			return
		}

		if !b.sessions.Allow(updateCtx, SessionID(chatID)) {
			l.Warn().Int64("chat_id", chatID).Msg("rate limit exceeded")
			if update.CallbackQuery != nil {
				_ = b.tg.AnswerCallback(update.CallbackQuery.ID, msgSlowDown)
				return
			}
			b.send(chatID, msgSlowDown)
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallback(updateCtx, update.CallbackQuery)
			return
		}
		b.handleMessage(updateCtx, update.Message)
	})
}

func chatOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	default:
		return 0
	}
}

// step feeds one input to the engine for the chat's session and renders
// the outcome.
func (b *Bot) step(ctx context.Context, chatID int64, input models.Input) {
	var res conversation.Result
	saved, err := b.sessions.Update(ctx, SessionID(chatID), true, func(cur models.Session) (models.Session, error) {
		cur.ChatID = chatID
		out, err := b.engine.Handle(ctx, cur, input)
		if err != nil {
			return cur, err
		}
		res = out
		return out.Session, nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Str("input", string(input.Kind)).Msg("conversation step failed")
		b.send(chatID, userMessage(err))
		return
	}
	res.Session = *saved
	b.render(chatID, res)
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.tg.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if kb == nil {
		b.send(chatID, text)
		return
	}
	if _, err := b.tg.SendWithInlineKeyboard(chatID, text, *kb); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func (b *Bot) bookingWindow() (time.Time, time.Time) {
	today := models.NormalizeDate(b.opts.Now())
	return today, today.AddDate(0, 0, b.opts.MaxBookingDays)
}

func (b *Bot) venueName(id string) string {
	if v, err := b.catalog.Get(id); err == nil {
		return v.Name
	}
	return id
}

func formatRupees(amount int64) string {
	return fmt.Sprintf("₹%d", amount)
}
