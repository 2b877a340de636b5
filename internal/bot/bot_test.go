package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/conversation"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/payments"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/repository"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChat int64 = 42

var testClock = time.Date(2024, 12, 30, 9, 30, 0, 0, time.UTC)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

type editedKeyboard struct {
	chatID    int64
	messageID int
	keyboard  tgbotapi.InlineKeyboardMarkup
}

type mockTelegramService struct {
	domain.TelegramService

	mu       sync.Mutex
	updates  chan tgbotapi.Update
	sent     []sentMessage
	edits    []editedKeyboard
	answered []string
	stopped  bool
}

func (m *mockTelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendWithInlineKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, keyboard: &kb})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) EditKeyboard(chatID int64, messageID int, kb tgbotapi.InlineKeyboardMarkup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, editedKeyboard{chatID: chatID, messageID: messageID, keyboard: kb})
	return nil
}

func (m *mockTelegramService) AnswerCallback(id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, id)
	return nil
}

func (m *mockTelegramService) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "museum_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *mockTelegramService) last(t *testing.T) sentMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func (m *mockTelegramService) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeSlots struct{}

func (fakeSlots) ComputeSlots(_ context.Context, _ time.Time, venue models.Venue) ([]models.SlotAvailability, error) {
	out := make([]models.SlotAvailability, 0, len(venue.TimeSlots))
	for i, s := range venue.TimeSlots {
		avail := venue.Capacity
		if i > 0 {
			avail = 0
		}
		out = append(out, models.SlotAvailability{Time: s, Available: avail, Total: venue.Capacity, IsAvailable: avail > 0})
	}
	return out, nil
}

type fakeFinalizer struct{}

func (fakeFinalizer) Finalize(_ context.Context, b *models.Booking) error {
	b.ID = 1
	b.TicketID = "TKT-1"
	return nil
}

func (fakeFinalizer) RecordFailed(context.Context, *models.Booking, string) error { return nil }

type fakeOrders struct {
	mu      sync.Mutex
	amounts []float64
	err     error
}

func (f *fakeOrders) CreateOrder(_ context.Context, amount float64, currency, receipt string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.amounts = append(f.amounts, amount)
	return &models.Order{ID: fmt.Sprintf("order_%d", len(f.amounts)), Currency: currency, Receipt: receipt}, nil
}

type fakeTickets map[string]*models.Booking

func (f fakeTickets) GetByTicket(_ context.Context, id string) (*models.Booking, error) {
	if b, ok := f[id]; ok {
		return b, nil
	}
	return nil, domain.ErrBookingNotFound
}

type botEnv struct {
	bot      *Bot
	tg       *mockTelegramService
	orders   *fakeOrders
	sessions *service.SessionService
}

func newBotEnv(t *testing.T, rateLimit int, tickets TicketLookup) *botEnv {
	t.Helper()
	logger := zerolog.Nop()

	catalog := service.NewVenueService([]models.Venue{{
		ID:        "1",
		Name:      "National Museum",
		Location:  "New Delhi",
		Capacity:  10,
		TimeSlots: []string{"10:00 AM", "02:00 PM"},
		Pricing:   models.Pricing{Adult: 150, Child: 50, Senior: 100, Tourist: 300},
	}})
	now := func() time.Time { return testClock }
	engine := conversation.NewEngine(catalog, fakeSlots{}, payments.NewVerifier("secret"), fakeFinalizer{}, conversation.Options{
		Now: now, MaxBookingDays: 30, Logger: &logger,
	})
	sessions := service.NewSessionService(repository.NewMemorySessionRepository(time.Hour), rateLimit, time.Minute, &logger)

	tg := &mockTelegramService{updates: make(chan tgbotapi.Update, 4)}
	orders := &fakeOrders{}
	b := NewBot(tg, sessions, engine, catalog, orders, tickets, Options{
		CheckoutURL:    "https://museum.example/checkout",
		MaxBookingDays: 30,
		Now:            now,
	}, &logger)

	return &botEnv{bot: b, tg: tg, orders: orders, sessions: sessions}
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat}, Text: text}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: testChat}},
	}}
}

func callbackData(kb *tgbotapi.InlineKeyboardMarkup) []string {
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out = append(out, *btn.CallbackData)
			}
		}
	}
	return out
}

func (e *botEnv) process(u tgbotapi.Update) {
	e.bot.processUpdate(context.Background(), u)
}

func (e *botEnv) advanceToPayment(t *testing.T) {
	t.Helper()
	e.process(textUpdate("/start"))
	e.process(textUpdate("Asha Rao"))
	e.process(textUpdate("a@b.co"))
	e.process(textUpdate("+919876543210"))
	e.process(callbackUpdate(cbVenue + "1"))
	e.process(callbackUpdate(cbDate + "2025-01-01"))
	e.process(callbackUpdate(cbSlot + "10:00 AM"))
	e.process(callbackUpdate(cbVisitorOK + "2:1:0:0"))
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "tg:42", SessionID(42))

	id, ok := ChatIDFromSession("tg:-100123")
	require.True(t, ok)
	assert.Equal(t, int64(-100123), id)

	_, ok = ChatIDFromSession("123e4567-e89b-12d3-a456-426614174000")
	assert.False(t, ok)
	_, ok = ChatIDFromSession("tg:abc")
	assert.False(t, ok)
}

func TestBot_StartGreets(t *testing.T) {
	env := newBotEnv(t, 0, nil)

	env.process(textUpdate("/start"))
	msg := env.tg.last(t)
	assert.Equal(t, testChat, msg.chatID)
	assert.Contains(t, msg.text, "museum booking assistant")
	assert.Nil(t, msg.keyboard)

	session, err := env.sessions.Get(context.Background(), SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, models.StageName, session.Stage)
	assert.Equal(t, testChat, session.ChatID)
}

func TestBot_FullFlowWithKeyboards(t *testing.T) {
	env := newBotEnv(t, 0, nil)

	env.process(textUpdate("/start"))
	env.process(textUpdate("Asha Rao"))
	env.process(textUpdate("a@b.co"))
	env.process(textUpdate("+919876543210"))

	venues := env.tg.last(t)
	require.NotNil(t, venues.keyboard)
	assert.Equal(t, []string{cbVenue + "1"}, callbackData(venues.keyboard))

	env.process(callbackUpdate(cbVenue + "1"))
	calendar := env.tg.last(t)
	require.NotNil(t, calendar.keyboard)
	assert.Contains(t, callbackData(calendar.keyboard), cbDate+"2024-12-31")
	assert.Contains(t, callbackData(calendar.keyboard), cbMonth+"2025-01")

	env.process(callbackUpdate(cbDate + "2025-01-01"))
	slots := env.tg.last(t)
	require.NotNil(t, slots.keyboard)
	data := callbackData(slots.keyboard)
	assert.Contains(t, data, cbSlot+"10:00 AM")
	assert.NotContains(t, data, cbSlot+"02:00 PM")

	env.process(callbackUpdate(cbSlot + "10:00 AM"))
	visitors := env.tg.last(t)
	require.NotNil(t, visitors.keyboard)
	assert.Contains(t, callbackData(visitors.keyboard), cbVisitorOK+"0:0:0:0")

	env.process(callbackUpdate(cbVisitors + "1:0:0:0"))
	require.Len(t, env.tg.edits, 1)
	assert.Equal(t, 7, env.tg.edits[0].messageID)
	assert.Contains(t, callbackData(&env.tg.edits[0].keyboard), cbVisitorOK+"1:0:0:0")

	env.process(callbackUpdate(cbVisitorOK + "2:1:0:0"))
	confirm := env.tg.last(t)
	assert.Contains(t, confirm.text, "₹350")
	require.NotNil(t, confirm.keyboard)
	assert.Contains(t, callbackData(confirm.keyboard), cbPay)

	env.process(callbackUpdate(cbPay))
	checkout := env.tg.last(t)
	assert.Contains(t, checkout.text, "order_1")
	require.NotNil(t, checkout.keyboard)
	btn := checkout.keyboard.InlineKeyboard[0][0]
	require.NotNil(t, btn.URL)
	assert.Equal(t, "https://museum.example/checkout?order_id=order_1&session=tg%3A42", *btn.URL)
	assert.Equal(t, []float64{350}, env.orders.amounts)

	session, err := env.sessions.Get(context.Background(), SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, "order_1", session.OrderID)
	assert.Equal(t, models.StagePayment, session.Stage)
}

func TestBot_PayOutsidePaymentStage(t *testing.T) {
	env := newBotEnv(t, 0, nil)

	env.process(callbackUpdate(cbPay))
	assert.Equal(t, msgNotAtPayment, env.tg.last(t).text)

	env.process(textUpdate("/start"))
	env.process(callbackUpdate(cbPay))
	assert.Equal(t, msgNotAtPayment, env.tg.last(t).text)
	assert.Empty(t, env.orders.amounts)
}

func TestBot_PayGatewayFailure(t *testing.T) {
	env := newBotEnv(t, 0, nil)
	env.advanceToPayment(t)
	env.orders.err = &domain.GatewayError{Op: "create_order", Err: errors.New("timeout")}

	env.process(callbackUpdate(cbPay))
	assert.Equal(t, msgPaymentStart, env.tg.last(t).text)

	session, err := env.sessions.Get(context.Background(), SessionID(testChat))
	require.NoError(t, err)
	assert.Empty(t, session.OrderID)
}

func TestBot_Cancel(t *testing.T) {
	env := newBotEnv(t, 0, nil)
	env.process(textUpdate("/start"))
	env.process(textUpdate("Asha Rao"))

	env.process(textUpdate("/cancel"))
	assert.Equal(t, msgCancelled, env.tg.last(t).text)

	session, err := env.sessions.Get(context.Background(), SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, models.StageInitial, session.Stage)
	assert.Empty(t, session.Name)
}

func TestBot_Status(t *testing.T) {
	date, _ := models.ParseDate("2025-01-01")
	tickets := fakeTickets{"TKT-1": {
		TicketID: "TKT-1", VenueID: "1", Date: date, TimeSlot: "10:00 AM",
		Visitors: models.VisitorCounts{Adult: 2, Child: 1}, TotalAmount: 350,
	}}
	env := newBotEnv(t, 0, tickets)

	env.process(textUpdate("/status"))
	assert.Equal(t, msgNoSession, env.tg.last(t).text)

	env.advanceToPayment(t)
	env.process(textUpdate("/status"))
	progress := env.tg.last(t).text
	assert.Contains(t, progress, "step: payment")
	assert.Contains(t, progress, "National Museum")
	assert.Contains(t, progress, "₹350")

	_, err := env.sessions.Update(context.Background(), SessionID(testChat), false, func(s models.Session) (models.Session, error) {
		s.Stage = models.StageComplete
		s.TicketID = "TKT-1"
		return s, nil
	})
	require.NoError(t, err)

	env.process(textUpdate("/status"))
	ticket := env.tg.last(t).text
	assert.Contains(t, ticket, "TKT-1")
	assert.Contains(t, ticket, "2025-01-01 at 10:00 AM")
	assert.Contains(t, ticket, "Visitors: 3")
}

func TestBot_UnknownCommandAndEmptyText(t *testing.T) {
	env := newBotEnv(t, 0, nil)

	env.process(textUpdate("/help"))
	assert.Equal(t, msgUnknown, env.tg.last(t).text)

	env.process(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat}}})
	assert.Equal(t, msgNeedsText, env.tg.last(t).text)
}

func TestBot_RateLimit(t *testing.T) {
	env := newBotEnv(t, 1, nil)

	env.process(textUpdate("/start"))
	env.process(textUpdate("Asha Rao"))
	assert.Equal(t, msgSlowDown, env.tg.last(t).text)

	env.process(callbackUpdate(cbNoop))
	assert.Contains(t, env.tg.answered, "cb-"+cbNoop)
}

func TestBot_IgnoresUpdatesWithoutChat(t *testing.T) {
	env := newBotEnv(t, 0, nil)
	env.process(tgbotapi.Update{})
	env.process(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x", Data: cbPay}})
	assert.Equal(t, 0, env.tg.count())
}

func TestBot_NotifiesChatOnBookingEvents(t *testing.T) {
	env := newBotEnv(t, 0, nil)
	bus := events.NewEventBus()
	unsubscribe := env.bot.Subscribe(bus)

	date, _ := models.ParseDate("2025-01-01")
	booking := &models.Booking{
		TicketID: "TKT-9", SessionID: SessionID(testChat), VenueID: "1", Date: date,
		TimeSlot: "10:00 AM", Visitors: models.VisitorCounts{Adult: 1}, TotalAmount: 150,
		SyncStatus: models.SyncUnsynced,
	}
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{Booking: booking}))

	msg := env.tg.last(t)
	assert.Equal(t, testChat, msg.chatID)
	assert.Contains(t, msg.text, "Payment confirmed")
	assert.Contains(t, msg.text, "TKT-9")
	assert.Contains(t, msg.text, "confirmed with the museum shortly")
	require.NotNil(t, msg.keyboard)
	assert.Contains(t, callbackData(msg.keyboard), cbAgain)

	require.NoError(t, bus.PublishJSON(events.EventBookingFailed, events.BookingEventPayload{Booking: booking, Reason: "rejected"}))
	assert.Contains(t, env.tg.last(t).text, "could not be confirmed")

	// web sessions are not ours
	before := env.tg.count()
	web := *booking
	web.SessionID = "9b2f0c1e"
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{Booking: &web}))
	assert.Equal(t, before, env.tg.count())

	unsubscribe()
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{Booking: booking}))
	assert.Equal(t, before, env.tg.count())
}

func TestBot_StartStopsOnContextCancel(t *testing.T) {
	env := newBotEnv(t, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.bot.Start(ctx)
		close(done)
	}()

	env.tg.updates <- textUpdate("/start")
	require.Eventually(t, func() bool { return env.tg.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	env.tg.mu.Lock()
	assert.True(t, env.tg.stopped)
	env.tg.mu.Unlock()
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, msgSessionExpired, userMessage(fmt.Errorf("load: %w", domain.ErrSessionNotFound)))
	assert.Equal(t, msgBusy, userMessage(&domain.StoreUnavailableError{Op: "save", Err: errors.New("down")}))
	assert.Equal(t, msgBusy, userMessage(context.DeadlineExceeded))
	assert.Equal(t, msgPaymentStart, userMessage(&domain.GatewayError{Op: "create_order", Err: errors.New("500")}))
	assert.Equal(t, msgGeneric, userMessage(errors.New("boom")))
	assert.Empty(t, userMessage(nil))
}

func TestCheckoutLink(t *testing.T) {
	link, ok := checkoutLink("https://pay.example/c?lang=en", "order_1", "tg:5")
	require.True(t, ok)
	assert.Equal(t, "https://pay.example/c?lang=en&order_id=order_1&session=tg%3A5", link)

	_, ok = checkoutLink("", "order_1", "tg:5")
	assert.False(t, ok)
}

func TestReceiptLength(t *testing.T) {
	r := receipt(-1001234567890, testClock)
	assert.LessOrEqual(t, len(r), 40)
	assert.True(t, strings.HasPrefix(r, "rcpt_tg"))
}
