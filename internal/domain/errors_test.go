package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		err := fmt.Errorf("handle: %w", &ValidationError{Field: "name", Code: "InvalidName"})
		assert.ErrorIs(t, err, ErrValidation)

		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.Equal(t, "InvalidName", ve.Code)
	})

	t.Run("Capacity", func(t *testing.T) {
		err := &CapacityError{VenueID: "1", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Slot: "10:00 AM"}
		assert.ErrorIs(t, err, ErrCapacity)
		assert.Contains(t, err.Error(), "2025-01-01")
		assert.True(t, IsDomainOutcome(err))
	})

	t.Run("StoreUnavailable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := StoreUnavailable("compute slots", cause)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.False(t, IsDomainOutcome(err))

		// already classified errors are not wrapped twice
		assert.Same(t, err, StoreUnavailable("outer", err))
		assert.Nil(t, StoreUnavailable("noop", nil))
	})

	t.Run("PaymentReused", func(t *testing.T) {
		err := fmt.Errorf("create booking: %w", ErrPaymentReused)
		assert.True(t, IsDomainOutcome(err))
		assert.False(t, errors.Is(err, ErrStoreUnavailable))
	})

	t.Run("Gateway", func(t *testing.T) {
		err := &GatewayError{Op: "create order", Err: context.DeadlineExceeded}
		assert.ErrorIs(t, err, ErrGateway)
		assert.True(t, IsTimeout(err))
	})
}
