package database

import (
	"sort"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

const (
	popularSlotsLimit = 3
	peakDaysLimit     = 5
	// a visit date counts as a peak day above this many visitors
	peakDayThreshold = 10
)

// computeStats folds a booking list into the dashboard summary. Only
// completed bookings contribute to revenue, visitors and rankings.
func computeStats(bookings []*models.Booking, today time.Time) *models.Stats {
	stats := &models.Stats{}
	slotVisitors := map[string]int64{}
	venueVisitors := map[string]int64{}
	dayVisitors := map[string]int64{}

	for _, b := range bookings {
		if b.SyncStatus == models.SyncUnsynced {
			stats.UnsyncedBookings++
		}
		if b.PaymentStatus != models.PaymentCompleted {
			continue
		}

		visitors := int64(b.Visitors.Total())
		stats.TotalBookings++
		stats.TotalRevenue += b.TotalAmount
		stats.TotalVisitors += visitors
		stats.Demographics.Adult += b.Visitors.Adult
		stats.Demographics.Child += b.Visitors.Child
		stats.Demographics.Senior += b.Visitors.Senior
		stats.Demographics.Tourist += b.Visitors.Tourist

		if models.SameDate(b.Date, today) {
			stats.TodayBookings++
			stats.TodayRevenue += b.TotalAmount
		}

		switch b.Date.Weekday() {
		case time.Saturday, time.Sunday:
			stats.WeekendVisitors += visitors
		default:
			stats.WeekdayVisitors += visitors
		}

		slotVisitors[b.TimeSlot] += visitors
		venueVisitors[b.VenueName] += visitors
		dayVisitors[b.Date.Format(models.DateLayout)] += visitors
	}

	if stats.TotalBookings > 0 {
		stats.AverageGroupSize = float64(stats.TotalVisitors) / float64(stats.TotalBookings)
	}

	stats.PopularSlots = rank(slotVisitors, popularSlotsLimit, 0)
	stats.PopularVenues = rank(venueVisitors, 0, 0)
	stats.PeakDays = rank(dayVisitors, peakDaysLimit, peakDayThreshold)
	return stats
}

// rank sorts counters descending (ties by name). limit 0 keeps all;
// entries at or below floor are dropped.
func rank(counts map[string]int64, limit int, floor int64) []models.NamedCount {
	out := make([]models.NamedCount, 0, len(counts))
	for name, count := range counts {
		if count <= floor {
			continue
		}
		out = append(out, models.NamedCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
