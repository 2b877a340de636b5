package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/conversation"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/database"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/payments"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/report"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/repository"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret        = "gateway_secret"
	testAdminUser     = "curator"
	testAdminPassword = "s3cret-pass"
)

var (
	testClock = time.Date(2024, 12, 30, 9, 30, 0, 0, time.UTC)
	visitDate = "2025-01-01"
)

func testVenues() []models.Venue {
	return []models.Venue{
		{
			ID:        "1",
			Name:      "National Museum",
			Location:  "New Delhi",
			Capacity:  10,
			TimeSlots: []string{"10:00 AM", "02:00 PM"},
			Pricing:   models.Pricing{Adult: 150, Child: 50, Senior: 100, Tourist: 300},
		},
		{
			ID:        "2",
			Name:      "Science Centre",
			Capacity:  5,
			TimeSlots: []string{"11:00 AM"},
			Pricing:   models.Pricing{Adult: 100, Child: 40, Senior: 60, Tourist: 200},
		},
	}
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []payments.OrderRequest
	err   error
}

func (g *fakeGateway) CreateOrder(_ context.Context, req payments.OrderRequest) (*models.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}

	id := fmt.Sprintf("order_test_%d", len(g.calls))
	raw, _ := json.Marshal(map[string]any{
		"id":       id,
		"entity":   "order",
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"status":   "created",
	})
	return &models.Order{ID: id, Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created", Raw: raw}, nil
}

func (g *fakeGateway) Calls() []payments.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payments.OrderRequest(nil), g.calls...)
}

type envOptions struct {
	cfg         func(*config.APIConfig)
	rateLimit   int
	noAdmin     bool
	nilVerifier bool
}

type testEnv struct {
	ts       *httptest.Server
	server   *HTTPServer
	db       *database.DB
	gateway  *fakeGateway
	bookings *service.BookingService
	client   *http.Client
}

func testAdminConfig(t *testing.T) config.AdminConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return config.AdminConfig{
		Enabled:           true,
		Username:          testAdminUser,
		PasswordHash:      string(hash),
		SessionHashKey:    hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)),
		SessionBlockKey:   hex.EncodeToString(bytes.Repeat([]byte{0xcd}, 32)),
		SessionTTLMinutes: 60,
	}
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := service.NewVenueService(testVenues())
	bus := events.NewEventBus()
	bookings := service.NewBookingService(db, catalog, service.BookingServiceOptions{
		EventBus: bus,
		Queue:    db,
		Now:      func() time.Time { return testClock },
		Logger:   &logger,
	})
	availability := service.NewAvailabilityService(db, nil, time.Second, &logger)

	rateLimit := opts.rateLimit
	if rateLimit == 0 {
		rateLimit = models.RateLimitMessages
	}
	sessions := service.NewSessionService(repository.NewMemorySessionRepository(time.Hour), rateLimit, time.Minute, &logger)

	verifier := payments.NewVerifier(testSecret)
	engine := conversation.NewEngine(catalog, availability, verifier, bookings, conversation.Options{
		Now:            func() time.Time { return testClock },
		MaxBookingDays: 30,
		Logger:         &logger,
	})

	gateway := &fakeGateway{}
	svc := Services{
		Venues:   catalog,
		Slots:    availability,
		Bookings: bookings,
		Sessions: sessions,
		Engine:   engine,
		Orders:   payments.NewOrderService(gateway, time.Second, &logger),
		Verifier: verifier,
		Exporter: report.NewExcelExporter(bookings, t.TempDir(), logger),
		Events:   bus,
		Ready:    db.Ping,
		Currency: "INR",
	}
	if opts.nilVerifier {
		svc.Verifier = nil
	}
	if !opts.noAdmin {
		admin, err := NewAdminSessions(testAdminConfig(t))
		require.NoError(t, err)
		svc.Admin = admin
	}

	cfg := config.APIConfig{
		HTTP: config.APIHTTPConfig{RequestTimeoutSeconds: 5},
		CORS: config.APICORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}
	if opts.cfg != nil {
		opts.cfg(&cfg)
	}

	server := NewHTTPServer(&cfg, svc, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		ts:       ts,
		server:   server,
		db:       db,
		gateway:  gateway,
		bookings: bookings,
		client:   &http.Client{Jar: jar, Timeout: 5 * time.Second},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(raw))
}

// seedBooking stores a completed booking for venue 1 on visitDate.
func (e *testEnv) seedBooking(t *testing.T, slot string, visitors models.VisitorCounts) *models.Booking {
	t.Helper()
	date, err := models.ParseDate(visitDate)
	require.NoError(t, err)
	b := &models.Booking{
		Name:      "Asha Rao",
		Email:     "a@b.co",
		Phone:     "+919876543210",
		VenueID:   "1",
		Date:      date,
		TimeSlot:  slot,
		Visitors:  visitors,
		OrderID:   "order_seed",
		PaymentID: "pay_" + uuid.NewString(),
	}
	require.NoError(t, e.bookings.Finalize(context.Background(), b))
	return b
}

var errGatewayDown = errors.New("gateway down")
