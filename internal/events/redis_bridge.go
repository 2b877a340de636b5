package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultBridgeChannel = "museum:events"

type envelope struct {
	Origin    string          `json:"origin"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// RedisBridge mirrors bus events across processes over Redis Pub/Sub. The
// API process publishes completions; the bot process receives them here.
type RedisBridge struct {
	client  *redis.Client
	bus     *EventBus
	channel string
	origin  string
	logger  *zerolog.Logger
}

func NewRedisBridge(client *redis.Client, bus *EventBus, channel string, logger *zerolog.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultBridgeChannel
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisBridge{
		client:  client,
		bus:     bus,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Start forwards local events and replays remote ones until ctx is done.
func (r *RedisBridge) Start(ctx context.Context) {
	var unsubs []func()
	for _, eventType := range BookingEvents {
		unsubs = append(unsubs, r.bus.Subscribe(eventType, r.forward))
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	r.logger.Info().Str("channel", r.channel).Msg("event bridge started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.receive(msg.Payload)
		}
	}
}

func (r *RedisBridge) forward(ev *Event) error {
	if ev.Remote {
		return nil
	}
	data, err := json.Marshal(envelope{
		Origin:    r.origin,
		Type:      ev.Type,
		Payload:   ev.Payload,
		CreatedAt: ev.CreatedAt,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn().Err(err).Str("event", ev.Type).Msg("failed to forward event")
		return err
	}
	return nil
}

func (r *RedisBridge) receive(raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.logger.Warn().Err(err).Msg("dropping malformed bridge message")
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.bus.Publish(&Event{
		Type:      env.Type,
		Payload:   env.Payload,
		CreatedAt: env.CreatedAt,
		Remote:    true,
	})
}
