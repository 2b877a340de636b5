package payments

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/rs/zerolog"
)

// OrderRequest is the gateway order body. Amount is in minor units.
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Gateway mints orders with a payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*models.Order, error)
}

type OrderService struct {
	gateway Gateway
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewOrderService(gateway Gateway, timeout time.Duration, logger *zerolog.Logger) *OrderService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OrderService{gateway: gateway, timeout: timeout, logger: logger}
}

// CreateOrder converts amount (major units) to minor units and asks the
// gateway for an order, returned as the gateway sent it.
func (s *OrderService) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*models.Order, error) {
	currency = strings.TrimSpace(currency)
	receipt = strings.TrimSpace(receipt)
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) || currency == "" || receipt == "" {
		return nil, domain.ErrMissingFields
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := OrderRequest{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
		Receipt:  receipt,
	}
	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("receipt", receipt).Int64("amount", req.Amount).Msg("create order failed")
		return nil, &domain.GatewayError{Op: "create order", Err: err}
	}
	if order == nil || order.ID == "" {
		return nil, &domain.GatewayError{Op: "create order", Err: fmt.Errorf("gateway returned no order id")}
	}

	s.logger.Info().Str("order_id", order.ID).Str("receipt", receipt).Int64("amount", req.Amount).Msg("order created")
	return order, nil
}
