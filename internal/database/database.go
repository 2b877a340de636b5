package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	// ErrNotAvailable is returned when a write would exceed slot capacity.
	ErrNotAvailable = fmt.Errorf("slot not available: %w", domain.ErrCapacity)
	// ErrNotFound is returned for unknown booking ids and tickets.
	ErrNotFound = fmt.Errorf("%w", domain.ErrBookingNotFound)
	// ErrPaymentUsed is returned when a completed booking already carries
	// the payment id.
	ErrPaymentUsed = fmt.Errorf("%w", domain.ErrPaymentReused)
)

// paymentIndexDDL keeps one completed booking per gateway payment. Failed
// attempts may repeat a payment id.
const paymentIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_payment_completed
    ON bookings(payment_id) WHERE payment_status = 'completed' AND payment_id <> ''`

// DB is the local SQLite store. It holds bookings, the sync queue and, when
// no remote primary is configured, is the only booking store.
type DB struct {
	*sql.DB
	path    string
	logger  *zerolog.Logger
	writeMu sync.Mutex
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	dsn := path
	memory := path == ":memory:" || strings.HasPrefix(path, "file::memory:")
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// every new connection to :memory: is a fresh empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path, logger: logger}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            ticket_id TEXT UNIQUE,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NOT NULL,
            venue_id TEXT NOT NULL,
            venue_name TEXT NOT NULL,
            date TEXT NOT NULL,
            time_slot TEXT NOT NULL,
            adults INTEGER NOT NULL DEFAULT 0,
            children INTEGER NOT NULL DEFAULT 0,
            seniors INTEGER NOT NULL DEFAULT 0,
            tourists INTEGER NOT NULL DEFAULT 0,
            total_amount INTEGER NOT NULL,
            payment_status TEXT NOT NULL,
            order_id TEXT NOT NULL DEFAULT '',
            payment_id TEXT NOT NULL DEFAULT '',
            session_id TEXT NOT NULL DEFAULT '',
            special_requirements TEXT NOT NULL DEFAULT '',
            language TEXT NOT NULL DEFAULT '',
            guided_tour BOOLEAN NOT NULL DEFAULT 0,
            audio_guide BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id INTEGER NOT NULL,
            payload TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(venue_id, date, time_slot)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	// Columns added after the first release; databases created earlier get
	// them here.
	if err := db.ensureColumn("bookings", "source", "TEXT NOT NULL DEFAULT 'primary'"); err != nil {
		return err
	}
	if err := db.ensureColumn("bookings", "sync_status", "TEXT NOT NULL DEFAULT 'synced'"); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_bookings_sync_status ON bookings(sync_status)`); err != nil {
		return err
	}
	if _, err := db.Exec(paymentIndexDDL); err != nil {
		return fmt.Errorf("create payment index: %w", err)
	}
	return nil
}

func (db *DB) ensureColumn(table, column, definition string) error {
	_, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isPaymentConflict reports a unique violation on the payment index.
func isPaymentConflict(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
		strings.Contains(sqliteErr.Error(), "payment_id")
}
