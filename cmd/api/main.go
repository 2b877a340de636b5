package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/api"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/app"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/logging"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/metrics"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/payments"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/report"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
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
	logger := logging.Component(baseLogger, "api-main")

	if err := app.PrepareDirectories(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.Build(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer stack.Close()

	httpServer, err := buildHTTPServer(cfg, stack, baseLogger)
	if err != nil {
		return err
	}

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, api.NewAvailabilityService(stack.Venues, stack.Availability), baseLogger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	stack.RunBackground(ctx, true)
	startMetrics(ctx, cfg, logger)

	return startServers(ctx, grpcServer, httpServer, cfg, logger)
}

func buildHTTPServer(cfg *config.Config, stack *app.Stack, logger *zerolog.Logger) (*api.HTTPServer, error) {
	verifier := payments.NewVerifier(cfg.Payments.KeySecret)
	svc := api.Services{
		Venues:       stack.Venues,
		Slots:        stack.Availability,
		Bookings:     stack.Bookings,
		Sessions:     stack.Sessions,
		Engine:       stack.Engine(verifier),
		Orders:       stack.Orders(),
		Verifier:     verifier,
		Events:       stack.Bus,
		Ready:        stack.Ready,
		Currency:     cfg.Payments.Currency,
		OrderTimeout: cfg.Payments.Timeout(),
	}

	if cfg.Admin.Enabled {
		sessions, err := api.NewAdminSessions(cfg.Admin)
		if err != nil {
			return nil, fmt.Errorf("admin sessions: %w", err)
		}
		svc.Admin = sessions
		svc.Exporter = report.NewExcelExporter(stack.Bookings, cfg.Exports.Path, logger.With().Str("component", "export").Logger())
	}

	return api.NewHTTPServer(&cfg.API, svc, logger), nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)

	if grpcServer != nil {
		go func() {
			if err := grpcServer.ListenAndServe(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
