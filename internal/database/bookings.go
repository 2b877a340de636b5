package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	sq "github.com/Masterminds/squirrel"
)

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	prepareInsert(booking, time.Now().UTC())
	query, args, err := sqliteDialect.insertBooking(booking).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if isPaymentConflict(err) {
		return ErrPaymentUsed
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	return nil
}

// CreateBookingWithLock inserts the booking only if the slot still has room
// for the whole group. Failed bookings hold no capacity and skip the check.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking, capacity int) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if booking.Counts() {
		query, args, err := sqliteDialect.slotUsage(booking.VenueID, booking.Date, booking.TimeSlot).ToSql()
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
	query, args, err := sqliteDialect.insertBooking(booking).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if isPaymentConflict(err) {
		return ErrPaymentUsed
	}
	if err != nil {
		return fmt.Errorf("failed to create booking in tx: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	booking.ID = id
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return db.getOne(ctx, sq.Eq{"id": id})
}

func (db *DB) GetBookingByTicket(ctx context.Context, ticketID string) (*models.Booking, error) {
	return db.getOne(ctx, sq.Eq{"ticket_id": ticketID})
}

func (db *DB) getOne(ctx context.Context, pred sq.Eq) (*models.Booking, error) {
	query, args, err := sqliteDialect.selectBookings().Where(pred).ToSql()
	if err != nil {
		return nil, err
	}

	booking, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBookingsByVenueAndDate(ctx context.Context, venueID string, date time.Time) ([]*models.Booking, error) {
	return db.ListBookings(ctx, models.BookingFilter{VenueID: venueID, Date: date})
}

func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	query, args, err := sqliteDialect.listBookings(filter).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return scanBookings(rows)
}

func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) GetStats(ctx context.Context, today time.Time) (*models.Stats, error) {
	bookings, err := db.ListBookings(ctx, models.BookingFilter{})
	if err != nil {
		return nil, err
	}
	return computeStats(bookings, today), nil
}

func (db *DB) MarkBookingSyncStatus(ctx context.Context, id int64, status string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET sync_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnsyncedBookings returns local rows the primary has not seen yet, oldest first.
func (db *DB) ListUnsyncedBookings(ctx context.Context) ([]*models.Booking, error) {
	query, args, err := sqliteDialect.selectBookings().
		Where(sq.Eq{"sync_status": models.SyncUnsynced}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced bookings: %w", err)
	}
	return scanBookings(rows)
}
