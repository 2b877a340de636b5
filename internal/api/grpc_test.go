package api

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/database"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1 << 20

type grpcEnv struct {
	client *AvailabilityClient
	health healthpb.HealthClient
	db     *database.DB
}

func newGRPCEnv(t *testing.T, cfg config.APIConfig) *grpcEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := service.NewVenueService(testVenues())
	slots := service.NewAvailabilityService(db, nil, time.Second, &logger)

	srv, err := NewGRPCServer(&cfg, NewAvailabilityService(catalog, slots), &logger)
	require.NoError(t, err)

	lis := bufconn.Listen(bufSize)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &grpcEnv{
		client: NewAvailabilityClient(conn),
		health: healthpb.NewHealthClient(conn),
		db:     db,
	}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestGRPC_ListVenues(t *testing.T) {
	env := newGRPCEnv(t, config.APIConfig{})

	resp, err := env.client.ListVenues(context.Background(), &structpb.Struct{})
	require.NoError(t, err)

	venues := resp.AsMap()["venues"].([]any)
	require.Len(t, venues, 2)
	first := venues[0].(map[string]any)
	assert.Equal(t, "1", first["id"])
	assert.Equal(t, "National Museum", first["name"])
	assert.Equal(t, float64(10), first["capacity"])
	pricing := first["pricing"].(map[string]any)
	assert.Equal(t, float64(150), pricing["adult"])
}

func TestGRPC_GetSlots(t *testing.T) {
	env := newGRPCEnv(t, config.APIConfig{})

	date, err := models.ParseDate(visitDate)
	require.NoError(t, err)
	require.NoError(t, env.db.CreateBooking(context.Background(), &models.Booking{
		TicketID:      "TKT-grpc",
		Name:          "Asha Rao",
		VenueID:       "1",
		Date:          date,
		TimeSlot:      "02:00 PM",
		Visitors:      models.VisitorCounts{Adult: 3},
		TotalAmount:   450,
		PaymentStatus: models.PaymentCompleted,
	}))

	resp, err := env.client.GetSlots(context.Background(), mustStruct(t, map[string]any{
		"venue_id": "1", "date": visitDate,
	}))
	require.NoError(t, err)

	body := resp.AsMap()
	assert.Equal(t, "1", body["venue_id"])
	assert.Equal(t, false, body["stale"])
	slots := body["slots"].([]any)
	require.Len(t, slots, 2)
	afternoon := slots[1].(map[string]any)
	assert.Equal(t, "02:00 PM", afternoon["time"])
	assert.Equal(t, float64(7), afternoon["available"])
	assert.Equal(t, float64(10), afternoon["total"])
	assert.Equal(t, true, afternoon["is_available"])
}

func TestGRPC_GetSlotsErrors(t *testing.T) {
	env := newGRPCEnv(t, config.APIConfig{})

	tests := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"missing venue", map[string]any{"date": visitDate}, codes.InvalidArgument},
		{"missing date", map[string]any{"venue_id": "1"}, codes.InvalidArgument},
		{"bad date", map[string]any{"venue_id": "1", "date": "tomorrow"}, codes.InvalidArgument},
		{"unknown venue", map[string]any{"venue_id": "42", "date": visitDate}, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.GetSlots(context.Background(), mustStruct(t, tt.req))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestGRPC_Health(t *testing.T) {
	env := newGRPCEnv(t, config.APIConfig{Auth: config.APIAuthConfig{Enabled: true}})

	resp, err := env.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: availabilityServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPC_Auth(t *testing.T) {
	env := newGRPCEnv(t, config.APIConfig{Auth: config.APIAuthConfig{
		Enabled: true,
		APIKeys: []config.APIClientKey{
			{Key: "kiosk-key", Extra: "kiosk-extra", Name: "kiosk", Permissions: []string{permReadVenues}},
		},
	}})

	_, err := env.client.ListVenues(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), apiKeyHeaderDefault, "kiosk-key", apiExtraHeaderDefault, "wrong")
	_, err = env.client.ListVenues(ctx, &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx = metadata.AppendToOutgoingContext(context.Background(), apiKeyHeaderDefault, "kiosk-key", apiExtraHeaderDefault, "kiosk-extra")
	_, err = env.client.ListVenues(ctx, &structpb.Struct{})
	require.NoError(t, err)

	_, err = env.client.GetSlots(ctx, mustStruct(t, map[string]any{"venue_id": "1", "date": visitDate}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestGRPC_ReflectionRegistersDescriptor(t *testing.T) {
	newGRPCEnv(t, config.APIConfig{GRPC: config.APIGRPCConfig{Reflection: true}})

	fd, err := protoregistry.GlobalFiles.FindFileByPath(availabilityProtoFile)
	require.NoError(t, err)
	svc := fd.Services().ByName("AvailabilityService")
	require.NotNil(t, svc)
	assert.NotNil(t, svc.Methods().ByName("GetSlots"))

	// a second server must not re-register
	newGRPCEnv(t, config.APIConfig{GRPC: config.APIGRPCConfig{Reflection: true}})
}
