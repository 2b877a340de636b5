package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeLister struct {
	bookings []*models.Booking
	filter   models.BookingFilter
	err      error
}

func (f *fakeLister) List(_ context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	f.filter = filter
	return f.bookings, f.err
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func sampleBookings() []*models.Booking {
	return []*models.Booking{
		{ID: 3, TicketID: "TKT-3", VenueID: "2", VenueName: "Science Centre", Date: day(2), TimeSlot: "10:00 AM",
			Visitors: models.VisitorCounts{Adult: 1}, TotalAmount: 150, PaymentStatus: models.PaymentCompleted},
		{ID: 1, TicketID: "TKT-1", VenueID: "1", VenueName: "National Museum", Date: day(1), TimeSlot: "10:00 AM",
			Visitors: models.VisitorCounts{Adult: 2, Child: 1}, TotalAmount: 350, PaymentStatus: models.PaymentCompleted},
		{ID: 2, VenueID: "1", VenueName: "National Museum", Date: day(1), TimeSlot: "02:00 PM",
			Visitors: models.VisitorCounts{Adult: 4}, TotalAmount: 600, PaymentStatus: models.PaymentFailed},
	}
}

func TestBuildBookingsSheet(t *testing.T) {
	lister := &fakeLister{bookings: sampleBookings()}
	e := NewExcelExporter(lister, t.TempDir(), zerolog.Nop())

	f, err := e.Build(context.Background(), day(1), day(2))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, day(1), lister.filter.From)
	assert.Equal(t, day(2), lister.filter.To)
	assert.Equal(t, []string{bookingsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, bookingColumns, rows[0])

	// date, then slot
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "3", rows[3][0])
	assert.Equal(t, "2025-01-01", rows[1][2])
	assert.Equal(t, "350", rows[1][12])
}

func TestBuildSummarySheet(t *testing.T) {
	e := NewExcelExporter(&fakeLister{bookings: sampleBookings()}, t.TempDir(), zerolog.Nop())

	f, err := e.Build(context.Background(), day(1), day(2))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.Contains(t, rows[0][0], "01 Jan 2025")
	assert.Equal(t, summaryColumns, rows[2])
	assert.Equal(t, []string{"National Museum", "1", "3", "350", "1"}, rows[3])
	assert.Equal(t, []string{"Science Centre", "1", "1", "150", "0"}, rows[4])
	assert.Equal(t, []string{"Total", "2", "4", "500", "1"}, rows[5])
}

func TestBuildRejectsInvertedRange(t *testing.T) {
	e := NewExcelExporter(&fakeLister{}, t.TempDir(), zerolog.Nop())
	_, err := e.Build(context.Background(), day(2), day(1))
	assert.Error(t, err)
}

func TestBuildListError(t *testing.T) {
	e := NewExcelExporter(&fakeLister{err: errors.New("db down")}, t.TempDir(), zerolog.Nop())
	_, err := e.Build(context.Background(), day(1), day(2))
	assert.ErrorContains(t, err, "db down")
}

func TestWriteProducesReadableWorkbook(t *testing.T) {
	e := NewExcelExporter(&fakeLister{bookings: sampleBookings()}, t.TempDir(), zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, e.Write(context.Background(), &buf, day(1), day(2)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue(bookingsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "TKT-1", value)
}

func TestSaveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := NewExcelExporter(&fakeLister{}, dir, zerolog.Nop())

	path, err := e.SaveFile(context.Background(), day(1), day(31))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookings_2025-01-01_to_2025-01-31.xlsx"), path)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
