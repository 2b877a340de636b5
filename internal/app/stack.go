package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/conversation"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/database"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/google"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/logging"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/payments"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/repository"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/service"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	sheetsRefreshInterval = 10 * time.Minute
	sweepInterval         = 5 * time.Minute
)

// Stack is the storage and booking core shared by the API, the bot and
// museumctl. Optional tiers (Postgres, Redis, Sheets) are nil when not
// configured or unreachable.
type Stack struct {
	Config *config.Config
	Logger *zerolog.Logger

	Venues   *service.VenueService
	DB       *database.DB
	Postgres *database.PostgresStore
	Store    *repository.TieredBookingStore
	Redis    *redis.Client
	Sheets   *google.SheetsMirror
	Bus      *events.EventBus
	Worker   *worker.SyncWorker

	SessionRepo  domain.SessionRepository
	Sessions     *service.SessionService
	Bookings     *service.BookingService
	Availability *service.AvailabilityService

	memory *repository.MemorySessionRepository
}

// LoadConfigAndLogger reads CONFIG_PATH (default configs/config.yaml).
func LoadConfigAndLogger() (*config.Config, *zerolog.Logger, func(), error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	cleanup := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}
	return cfg, logger, cleanup, nil
}

// PrepareDirectories creates the export and backup directories.
func PrepareDirectories(cfg *config.Config) error {
	dirs := []string{cfg.Exports.Path}
	if cfg.Backup.Enabled && cfg.Backup.StoragePath != "" {
		dirs = append(dirs, cfg.Backup.StoragePath)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Build opens every store and wires the booking services. Close releases
// what it opened.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: logger}

	venues, err := config.LoadVenues(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load venues: %w", err)
	}
	s.Venues = service.NewVenueService(venues)
	logger.Info().Int("count", len(venues)).Str("path", cfg.Catalog.Path).Msg("venues loaded")

	s.DB, err = database.NewDB(cfg.Database.Path, logging.Component(logger, "sqlite"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var primary domain.BookingStore
	if cfg.Database.Postgres.Enabled() {
		pg, err := database.NewPostgresStore(ctx, cfg.Database.Postgres, logging.Component(logger, "postgres"))
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, bookings stay local until reconciled")
		} else {
			s.Postgres = pg
			primary = pg
		}
	}
	s.Store = repository.NewTieredBookingStore(primary, s.DB, nil, logging.Component(logger, "store"))

	s.initRedis(ctx)
	s.initSheets(ctx)

	s.Bus = events.NewEventBus()

	opts := worker.Options{
		Primary:      primary,
		Catalog:      s.Venues,
		Publisher:    s.Bus,
		Retry:        worker.PolicyFromConfig(cfg.Worker),
		Logger:       logging.Component(logger, "worker"),
		PollInterval: time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second,
		BatchSize:    cfg.Worker.BatchSize,
	}
	if s.Sheets != nil {
		opts.Sheets = s.Sheets
	}
	if s.Redis != nil {
		opts.Redis = s.Redis
	}
	s.Worker = worker.NewSyncWorker(s.DB, opts)
	s.Store.SetQueue(s.Worker)

	var cache domain.SlotCache
	if s.Redis != nil {
		cache = repository.NewRedisSlotCache(s.Redis, models.SlotCacheTTL)
	}

	s.Availability = service.NewAvailabilityService(s.Store, cache, cfg.Conversation.StoreTimeout(), logging.Component(logger, "availability"))
	s.Bookings = service.NewBookingService(s.Store, s.Venues, service.BookingServiceOptions{
		Cache:    cache,
		EventBus: s.Bus,
		Worker:   s.Worker,
		Queue:    s.DB,
		Logger:   logging.Component(logger, "bookings"),
	})

	s.memory = repository.NewMemorySessionRepository(cfg.Conversation.SessionTTL())
	s.SessionRepo = s.memory
	if s.Redis != nil {
		s.SessionRepo = repository.NewFailoverSessionRepository(
			repository.NewRedisSessionRepository(s.Redis, cfg.Conversation.SessionTTL()),
			s.memory,
			logging.Component(logger, "sessions"),
		)
	}
	s.Sessions = service.NewSessionService(
		s.SessionRepo,
		cfg.Conversation.RateLimitMessages,
		time.Duration(cfg.Conversation.RateLimitWindow)*time.Second,
		logging.Component(logger, "sessions"),
	)

	return s, nil
}

func (s *Stack) initRedis(ctx context.Context) {
	if s.Config.Redis.Address == "" {
		s.Logger.Info().Msg("redis not configured, sessions are kept in memory")
		return
	}

	client := repository.NewRedisClient(s.Config.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		s.Logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(client)
		return
	}

	s.Logger.Info().Str("addr", s.Config.Redis.Address).Msg("redis connected")
	s.Redis = client
}

func (s *Stack) initSheets(ctx context.Context) {
	if !s.Config.Google.Enabled() {
		return
	}

	mirror, err := google.NewSheetsMirror(ctx, s.Config.Google.GoogleCredentialsFile, s.Config.Google.BookingSpreadSheetID,
		s.Logger.With().Str("component", "sheets").Logger())
	if err != nil {
		s.Logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}

	s.Logger.Info().Msg("google sheets connected")
	s.Sheets = mirror
}

// Engine builds the conversation engine over the stack's services.
func (s *Stack) Engine(verifier domain.PaymentVerifier) *conversation.Engine {
	return conversation.NewEngine(s.Venues, s.Availability, verifier, s.Bookings, conversation.Options{
		MaxBookingDays: s.Config.Conversation.MaxBookingDays,
		Logger:         logging.Component(s.Logger, "conversation"),
	})
}

// Orders builds the Razorpay order service.
func (s *Stack) Orders() *payments.OrderService {
	gateway := payments.NewRazorpayGateway(s.Config.Payments, nil)
	return payments.NewOrderService(gateway, s.Config.Payments.Timeout(), logging.Component(s.Logger, "payments"))
}

// RunBackground starts the long-running helpers: the sync worker, the
// Redis event bridge, the Sheets row cache, the SQLite backups and the
// in-memory session sweep. All stop when ctx is done.
func (s *Stack) RunBackground(ctx context.Context, withWorker bool) {
	if withWorker && s.Config.Worker.Enabled {
		go s.Worker.Start(ctx)
	}

	if s.Redis != nil {
		bridge := events.NewRedisBridge(s.Redis, s.Bus, "", logging.Component(s.Logger, "bridge"))
		go bridge.Start(ctx)
	}

	if s.Sheets != nil {
		go s.Sheets.RunCacheRefresh(ctx, sheetsRefreshInterval)
	}

	if withWorker {
		backup := database.NewBackupService(s.DB.Path(), s.Config.Backup, logging.Component(s.Logger, "backup"))
		go backup.Start(ctx)
	}

	go s.sweepSessions(ctx)
}

func (s *Stack) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.memory.Sweep(); n > 0 {
				s.Logger.Debug().Int("expired", n).Msg("swept in-memory sessions")
			}
		}
	}
}

// Ready reports whether the local store answers.
func (s *Stack) Ready(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *Stack) Close() {
	if s.Redis != nil {
		_ = repository.Close(s.Redis)
	}
	if s.Postgres != nil {
		_ = s.Postgres.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
}
