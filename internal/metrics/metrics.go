package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "museum_booking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Completed bookings by venue and storage tier.",
		},
		[]string{"venue", "source"},
	)

	capacityRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_rejections_total",
			Help:      "Booking writes refused because the slot was full.",
		},
		[]string{"venue"},
	)

	stageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_transitions_total",
			Help:      "Conversation stage changes.",
		},
		[]string{"from", "to"},
	)

	reconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_tasks_total",
			Help:      "Processed sync tasks by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	botUpdateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bot_update_duration_seconds",
			Help:      "Time spent handling one Telegram update.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			capacityRejections,
			stageTransitions,
			reconcileOutcomes,
			botUpdateDuration,
		)
	})
}

func IncHTTP(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

func IncBookingCreated(venue, source string) {
	bookingsCreated.WithLabelValues(venue, source).Inc()
}

func IncCapacityRejection(venue string) {
	capacityRejections.WithLabelValues(venue).Inc()
}

func IncTransition(from, to string) {
	stageTransitions.WithLabelValues(from, to).Inc()
}

func IncSyncTask(taskType, outcome string) {
	reconcileOutcomes.WithLabelValues(taskType, outcome).Inc()
}

func ObserveBotUpdate(d time.Duration) {
	botUpdateDuration.Observe(d.Seconds())
}
