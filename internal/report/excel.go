package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingColumns = []string{
	"ID", "Ticket", "Date", "Time Slot", "Venue", "Name", "Email", "Phone",
	"Adults", "Children", "Seniors", "Tourists", "Total (INR)", "Payment", "Sync", "Created At",
}

var summaryColumns = []string{"Venue", "Bookings", "Visitors", "Revenue (INR)", "Failed Payments"}

// BookingLister is the read side the exporter needs.
type BookingLister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
}

// ExcelExporter writes bookings for a date range into an xlsx workbook with a
// detail sheet and a per-venue summary.
type ExcelExporter struct {
	bookings BookingLister
	dir      string
	logger   zerolog.Logger
}

func NewExcelExporter(bookings BookingLister, dir string, logger zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{
		bookings: bookings,
		dir:      dir,
		logger:   logger,
	}
}

// FileName is the download name for a range export.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// Build loads the bookings in [from, to] and lays out the workbook. The
// caller closes the file.
func (e *ExcelExporter) Build(ctx context.Context, from, to time.Time) (*excelize.File, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid date range: %s after %s", from.Format(models.DateLayout), to.Format(models.DateLayout))
	}

	bookings, err := e.bookings.List(ctx, models.BookingFilter{
		From: models.NormalizeDate(from),
		To:   models.NormalizeDate(to),
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	sortForExport(bookings)

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeBookings(f, bookings); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, from, to, bookings); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook for [from, to] to w.
func (e *ExcelExporter) Write(ctx context.Context, w io.Writer, from, to time.Time) error {
	f, err := e.Build(ctx, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}

// SaveFile writes the workbook under the export directory and returns its
// path.
func (e *ExcelExporter) SaveFile(ctx context.Context, from, to time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := e.Build(ctx, from, to)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.dir, FileName(from, to))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}

	e.logger.Info().Str("file_path", path).Msg("Excel export created")
	return path, nil
}

func writeBookings(f *excelize.File, bookings []*models.Booking) error {
	if err := writeHeader(f, bookingsSheet, bookingColumns); err != nil {
		return err
	}

	for i, b := range bookings {
		row := []interface{}{
			b.ID,
			b.TicketID,
			b.Date.Format(models.DateLayout),
			b.TimeSlot,
			b.VenueName,
			b.Name,
			b.Email,
			b.Phone,
			b.Visitors.Adult,
			b.Visitors.Child,
			b.Visitors.Senior,
			b.Visitors.Tourist,
			b.TotalAmount,
			b.PaymentStatus,
			b.SyncStatus,
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(bookingsSheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 8)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 42)
	_ = f.SetColWidth(bookingsSheet, "C", "D", 12)
	_ = f.SetColWidth(bookingsSheet, "E", "H", 24)
	_ = f.SetColWidth(bookingsSheet, "I", "O", 11)
	_ = f.SetColWidth(bookingsSheet, "P", "P", 18)

	return f.SetPanes(bookingsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

type venueSummary struct {
	name     string
	bookings int
	visitors int
	revenue  int64
	failed   int
}

func summarize(bookings []*models.Booking) []venueSummary {
	byVenue := make(map[string]*venueSummary)
	var order []string
	for _, b := range bookings {
		s, ok := byVenue[b.VenueID]
		if !ok {
			s = &venueSummary{name: b.VenueName}
			byVenue[b.VenueID] = s
			order = append(order, b.VenueID)
		}
		if b.PaymentStatus == models.PaymentFailed {
			s.failed++
			continue
		}
		s.bookings++
		s.visitors += b.Visitors.Total()
		s.revenue += b.TotalAmount
	}

	out := make([]venueSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byVenue[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].revenue > out[j].revenue })
	return out
}

func writeSummary(f *excelize.File, from, to time.Time, bookings []*models.Booking) error {
	title := fmt.Sprintf("Period: %s - %s", from.Format("02 Jan 2006"), to.Format("02 Jan 2006"))
	if err := f.SetCellValue(summarySheet, "A1", title); err != nil {
		return err
	}
	_ = f.MergeCell(summarySheet, "A1", "E1")
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)
	}

	header := make([]interface{}, len(summaryColumns))
	for i, c := range summaryColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(summarySheet, "A3", &header); err != nil {
		return err
	}
	if err := styleHeader(f, summarySheet, 3, len(summaryColumns)); err != nil {
		return err
	}

	rows := summarize(bookings)
	var total venueSummary
	for i, s := range rows {
		row := []interface{}{s.name, s.bookings, s.visitors, s.revenue, s.failed}
		cell, _ := excelize.CoordinatesToCellName(1, i+4)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		total.bookings += s.bookings
		total.visitors += s.visitors
		total.revenue += s.revenue
		total.failed += s.failed
	}

	totalRow := len(rows) + 4
	row := []interface{}{"Total", total.bookings, total.visitors, total.revenue, total.failed}
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
		return err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		end, _ := excelize.CoordinatesToCellName(len(summaryColumns), totalRow)
		_ = f.SetCellStyle(summarySheet, cell, end, boldStyle)
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 32)
	_ = f.SetColWidth(summarySheet, "B", "E", 16)
	return nil
}

func writeHeader(f *excelize.File, sheet string, columns []string) error {
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	return styleHeader(f, sheet, 1, len(columns))
}

func styleHeader(f *excelize.File, sheet string, row, cols int) error {
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#9BC2E6", Style: 1},
		},
	})
	if err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(cols, row)
	return f.SetCellStyle(sheet, start, end, style)
}

// sortForExport orders by visit date, then slot, then id.
func sortForExport(bookings []*models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.TimeSlot != b.TimeSlot {
			return a.TimeSlot < b.TimeSlot
		}
		return a.ID < b.ID
	})
}
