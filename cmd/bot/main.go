package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/app"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/bot"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/logging"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/metrics"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/payments"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, baseLogger, cleanup, err := app.LoadConfigAndLogger()
	if err != nil {
		return err
	}
	defer cleanup()
	logger := logging.Component(baseLogger, "bot-main")

	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer stack.Close()

	if stack.Redis == nil {
		logger.Warn().Msg("redis unavailable: payment confirmations from the API will not reach Telegram chats")
	}

	wrapper, err := bot.NewBotWrapper(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		return fmt.Errorf("create telegram client: %w", err)
	}

	metrics.Register()

	engine := stack.Engine(payments.NewVerifier(cfg.Payments.KeySecret))
	b := bot.NewBot(
		service.NewTelegramService(wrapper),
		stack.Sessions,
		engine,
		stack.Venues,
		stack.Orders(),
		stack.Bookings,
		bot.Options{
			CheckoutURL:    cfg.Payments.CheckoutURL,
			Currency:       cfg.Payments.Currency,
			MaxBookingDays: cfg.Conversation.MaxBookingDays,
		},
		baseLogger,
	)
	unsubscribe := b.Subscribe(stack.Bus)
	defer unsubscribe()

	// The API process owns the sync worker and backups.
	stack.RunBackground(ctx, false)

	logger.Info().Msg("bot started")
	b.Start(ctx)
	logger.Info().Msg("bot stopped")
	return nil
}
