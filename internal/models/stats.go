package models

// Stats is the admin dashboard summary.
type Stats struct {
	TotalBookings    int64         `json:"totalBookings"`
	TotalRevenue     int64         `json:"totalRevenue"`
	TodayBookings    int64         `json:"todayBookings"`
	TodayRevenue     int64         `json:"todayRevenue"`
	TotalVisitors    int64         `json:"totalVisitors"`
	AverageGroupSize float64       `json:"averageGroupSize"`
	Demographics     VisitorCounts `json:"visitorDemographics"`
	PopularSlots     []NamedCount  `json:"popularTimeSlots"`
	PopularVenues    []NamedCount  `json:"popularMuseums"`
	WeekdayVisitors  int64         `json:"weekdayVisitors"`
	WeekendVisitors  int64         `json:"weekendVisitors"`
	PeakDays         []NamedCount  `json:"peakDays"`
	UnsyncedBookings int64         `json:"unsyncedBookings"`
}

// NamedCount is a label with a counter, used for rankings.
type NamedCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
