package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

const (
	EventBookingCreated  = "booking_created"
	EventBookingFailed   = "booking_failed"
	EventBookingSynced   = "booking_synced"
	EventBookingConflict = "booking_conflict"
	EventBookingDeleted  = "booking_deleted"
)

// BookingEvents lists every booking event type, used by subscribers that
// want all of them.
var BookingEvents = []string{
	EventBookingCreated,
	EventBookingFailed,
	EventBookingSynced,
	EventBookingConflict,
	EventBookingDeleted,
}

// BookingEventPayload carries the booking snapshot an event refers to.
type BookingEventPayload struct {
	Booking *models.Booking `json:"booking"`
	Reason  string          `json:"reason,omitempty"`
}

// Event represents a lightweight domain event. Remote is set on events that
// arrived from another process through the Redis bridge.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Remote    bool
}

// DecodeBooking unmarshals a booking event payload.
func (e *Event) DecodeBooking() (BookingEventPayload, error) {
	var payload BookingEventPayload
	err := json.Unmarshal(e.Payload, &payload)
	return payload, err
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]subscription
	nextID      uint64
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]subscription)}
}

// Subscribe registers a handler for a given event type. The returned func
// removes it.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish notifies subscribers of the event type. Handlers run
// synchronously in the caller's goroutine.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, s := range subs {
		_ = s.handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
