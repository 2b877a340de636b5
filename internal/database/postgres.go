package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/config"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const serializationRetries = 3

// PostgresStore is the remote primary booking store.
type PostgresStore struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, logger *zerolog.Logger) (*PostgresStore, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("postgres booking store ready")
	return store, nil
}

// NewPostgresStoreFromDB wraps an already opened handle without migrating it.
func NewPostgresStoreFromDB(db *sql.DB, logger *zerolog.Logger) *PostgresStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id BIGSERIAL PRIMARY KEY,
            ticket_id TEXT UNIQUE,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NOT NULL,
            venue_id TEXT NOT NULL,
            venue_name TEXT NOT NULL,
            date DATE NOT NULL,
            time_slot TEXT NOT NULL,
            adults INTEGER NOT NULL DEFAULT 0,
            children INTEGER NOT NULL DEFAULT 0,
            seniors INTEGER NOT NULL DEFAULT 0,
            tourists INTEGER NOT NULL DEFAULT 0,
            total_amount BIGINT NOT NULL,
            payment_status TEXT NOT NULL,
            order_id TEXT NOT NULL DEFAULT '',
            payment_id TEXT NOT NULL DEFAULT '',
            session_id TEXT NOT NULL DEFAULT '',
            special_requirements TEXT NOT NULL DEFAULT '',
            language TEXT NOT NULL DEFAULT '',
            guided_tour BOOLEAN NOT NULL DEFAULT FALSE,
            audio_guide BOOLEAN NOT NULL DEFAULT FALSE,
            source TEXT NOT NULL DEFAULT 'primary',
            sync_status TEXT NOT NULL DEFAULT 'synced',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            version BIGINT NOT NULL DEFAULT 1
        )`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(venue_id, date, time_slot)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at)`,
		paymentIndexDDL,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	prepareInsert(booking, time.Now().UTC())
	query, args, err := postgresDialect.insertBooking(booking).Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&booking.ID)
	if isUniqueViolation(err, paymentIndexName) {
		return ErrPaymentUsed
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// CreateBookingWithLock runs the capacity check and insert in a
// SERIALIZABLE transaction holding an advisory lock on the slot key.
// Serialization failures are retried a few times before giving up.
func (s *PostgresStore) CreateBookingWithLock(ctx context.Context, booking *models.Booking, capacity int) error {
	var err error
	for attempt := 0; attempt < serializationRetries; attempt++ {
		err = s.createWithLock(ctx, booking, capacity)
		if !isSerializationFailure(err) {
			return err
		}
		s.logger.Debug().Int("attempt", attempt+1).Str("venue_id", booking.VenueID).Msg("serialization conflict, retrying")
	}
	return fmt.Errorf("%w: %v", domain.ErrConcurrentUpdate, err)
}

func (s *PostgresStore) createWithLock(ctx context.Context, booking *models.Booking, capacity int) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if booking.Counts() {
		lockKey := fmt.Sprintf("%s|%s|%s", booking.VenueID, booking.Date.Format(models.DateLayout), booking.TimeSlot)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}

		query, args, err := postgresDialect.slotUsage(booking.VenueID, booking.Date, booking.TimeSlot).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build usage query: %w", err)
		}
		var booked int
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&booked); err != nil {
			return fmt.Errorf("failed to check availability in tx: %w", err)
		}
		if booked+booking.Visitors.Total() > capacity {
			return ErrNotAvailable
		}
	}

	prepareInsert(booking, time.Now().UTC())
	query, args, err := postgresDialect.insertBooking(booking).Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	var id int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if isUniqueViolation(err, paymentIndexName) {
		return ErrPaymentUsed
	}
	if err != nil {
		return fmt.Errorf("failed to create booking in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	booking.ID = id
	return nil
}

func (s *PostgresStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *PostgresStore) GetBookingByTicket(ctx context.Context, ticketID string) (*models.Booking, error) {
	return s.getOne(ctx, sq.Eq{"ticket_id": ticketID})
}

func (s *PostgresStore) getOne(ctx context.Context, pred sq.Eq) (*models.Booking, error) {
	query, args, err := postgresDialect.selectBookings().Where(pred).ToSql()
	if err != nil {
		return nil, err
	}
	booking, err := scanBooking(s.db.QueryRowContext(ctx, query, args...))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (s *PostgresStore) GetBookingsByVenueAndDate(ctx context.Context, venueID string, date time.Time) ([]*models.Booking, error) {
	return s.ListBookings(ctx, models.BookingFilter{VenueID: venueID, Date: date})
}

func (s *PostgresStore) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	query, args, err := postgresDialect.listBookings(filter).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return scanBookings(rows)
}

func (s *PostgresStore) DeleteBooking(ctx context.Context, id int64) error {
	query, args, err := postgresDialect.builder().Delete("bookings").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetStats(ctx context.Context, today time.Time) (*models.Stats, error) {
	bookings, err := s.ListBookings(ctx, models.BookingFilter{})
	if err != nil {
		return nil, err
	}
	return computeStats(bookings, today), nil
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}

const paymentIndexName = "idx_bookings_payment_completed"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraint
}
