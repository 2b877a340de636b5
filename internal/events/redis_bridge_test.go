package events

import (
	"context"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBridge(t *testing.T) {
	s := miniredis.RunT(t)

	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { c.Close() })
		return c
	}

	apiBus := NewEventBus()
	botBus := NewEventBus()
	apiBridge := NewRedisBridge(newClient(), apiBus, "", nil)
	botBridge := NewRedisBridge(newClient(), botBus, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go apiBridge.Start(ctx)
	go botBridge.Start(ctx)

	received := make(chan *Event, 4)
	botBus.Subscribe(EventBookingCreated, func(ev *Event) error {
		received <- ev
		return nil
	})
	echoed := make(chan *Event, 4)
	apiBus.Subscribe(EventBookingCreated, func(ev *Event) error {
		if ev.Remote {
			echoed <- ev
		}
		return nil
	})

	// wait for both subscriptions to be registered
	require.Eventually(t, func() bool {
		return len(s.PubSubNumSub(DefaultBridgeChannel)) == 1 &&
			s.PubSubNumSub(DefaultBridgeChannel)[DefaultBridgeChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, apiBus.PublishJSON(EventBookingCreated, BookingEventPayload{
		Booking: &models.Booking{TicketID: "TKT-1", SessionID: "tg:42"},
	}))

	select {
	case ev := <-received:
		assert.True(t, ev.Remote)
		payload, err := ev.DecodeBooking()
		require.NoError(t, err)
		assert.Equal(t, "tg:42", payload.Booking.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("event did not cross the bridge")
	}

	select {
	case <-echoed:
		t.Fatal("bridge replayed its own event")
	case <-time.After(100 * time.Millisecond):
	}
}
