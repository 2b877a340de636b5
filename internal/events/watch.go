package events

import (
	"sync"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

// Watch streams newly created bookings that match filter. Bookings are
// dropped when the consumer falls more than buffer events behind. Call the
// returned func to stop; it closes the channel.
func (b *EventBus) Watch(filter models.BookingFilter, buffer int) (<-chan *models.Booking, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan *models.Booking, buffer)
	var (
		mu      sync.Mutex
		stopped bool
	)

	unsubscribe := b.Subscribe(EventBookingCreated, func(ev *Event) error {
		payload, err := ev.DecodeBooking()
		if err != nil || payload.Booking == nil {
			return err
		}
		if !filter.Matches(payload.Booking) {
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return nil
		}
		select {
		case ch <- payload.Booking:
		default:
		}
		return nil
	})

	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		stopped = true
		unsubscribe()
		close(ch)
	}
	return ch, stop
}
