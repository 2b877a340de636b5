package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	sq "github.com/Masterminds/squirrel"
)

// dialect captures the differences between the SQLite and PostgreSQL
// booking tables so both stores share one query builder.
type dialect struct {
	placeholder sq.PlaceholderFormat
	dateExpr    string
}

var (
	sqliteDialect   = dialect{placeholder: sq.Question, dateExpr: "date"}
	postgresDialect = dialect{placeholder: sq.Dollar, dateExpr: "to_char(date, 'YYYY-MM-DD')"}
)

func (d dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}

func (d dialect) bookingColumns() []string {
	return []string{
		"id", "ticket_id", "name", "email", "phone",
		"venue_id", "venue_name", d.dateExpr, "time_slot",
		"adults", "children", "seniors", "tourists",
		"total_amount", "payment_status", "order_id", "payment_id", "session_id",
		"special_requirements", "language", "guided_tour", "audio_guide",
		"source", "sync_status", "created_at", "updated_at", "version",
	}
}

func (d dialect) selectBookings() sq.SelectBuilder {
	return d.builder().Select(d.bookingColumns()...).From("bookings")
}

func (d dialect) listBookings(filter models.BookingFilter) sq.SelectBuilder {
	q := d.selectBookings()
	if filter.VenueID != "" {
		q = q.Where(sq.Eq{"venue_id": filter.VenueID})
	}
	if !filter.Date.IsZero() {
		q = q.Where(sq.Eq{"date": filter.Date.Format(models.DateLayout)})
	}
	if !filter.From.IsZero() {
		q = q.Where(sq.GtOrEq{"date": filter.From.Format(models.DateLayout)})
	}
	if !filter.To.IsZero() {
		q = q.Where(sq.LtOrEq{"date": filter.To.Format(models.DateLayout)})
	}
	q = q.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}

func (d dialect) insertBooking(b *models.Booking) sq.InsertBuilder {
	return d.builder().Insert("bookings").
		Columns(
			"ticket_id", "name", "email", "phone",
			"venue_id", "venue_name", "date", "time_slot",
			"adults", "children", "seniors", "tourists",
			"total_amount", "payment_status", "order_id", "payment_id", "session_id",
			"special_requirements", "language", "guided_tour", "audio_guide",
			"source", "sync_status", "created_at", "updated_at", "version",
		).
		Values(
			nullString(b.TicketID), b.Name, b.Email, b.Phone,
			b.VenueID, b.VenueName, b.Date.Format(models.DateLayout), b.TimeSlot,
			b.Visitors.Adult, b.Visitors.Child, b.Visitors.Senior, b.Visitors.Tourist,
			b.TotalAmount, b.PaymentStatus, b.OrderID, b.PaymentID, b.SessionID,
			b.SpecialRequirements, b.Language, b.GuidedTour, b.AudioGuide,
			b.Source, b.SyncStatus, b.CreatedAt, b.UpdatedAt, b.Version,
		)
}

// slotUsage sums the visitors holding capacity in one slot.
func (d dialect) slotUsage(venueID string, date time.Time, slot string) sq.SelectBuilder {
	return d.builder().
		Select("COALESCE(SUM(adults + children + seniors + tourists), 0)").
		From("bookings").
		Where(sq.Eq{
			"venue_id":  venueID,
			"date":      date.Format(models.DateLayout),
			"time_slot": slot,
		}).
		Where(sq.NotEq{"payment_status": models.PaymentFailed})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b        models.Booking
		ticketID sql.NullString
		date     string
	)
	err := row.Scan(
		&b.ID, &ticketID, &b.Name, &b.Email, &b.Phone,
		&b.VenueID, &b.VenueName, &date, &b.TimeSlot,
		&b.Visitors.Adult, &b.Visitors.Child, &b.Visitors.Senior, &b.Visitors.Tourist,
		&b.TotalAmount, &b.PaymentStatus, &b.OrderID, &b.PaymentID, &b.SessionID,
		&b.SpecialRequirements, &b.Language, &b.GuidedTour, &b.AudioGuide,
		&b.Source, &b.SyncStatus, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.TicketID = ticketID.String
	parsed, err := models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("booking %d has malformed date %q: %w", b.ID, date, err)
	}
	b.Date = parsed
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// prepareInsert fills the bookkeeping fields every new row needs.
func prepareInsert(b *models.Booking, now time.Time) {
	b.Date = models.NormalizeDate(b.Date)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.Version == 0 {
		b.Version = 1
	}
	if b.Source == "" {
		b.Source = models.SourcePrimary
	}
	if b.SyncStatus == "" {
		b.SyncStatus = models.SyncSynced
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
