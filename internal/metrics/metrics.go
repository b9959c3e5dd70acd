package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics
	EventTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteerhub_event_transitions_total",
			Help: "Event status transitions by action",
		},
		[]string{"action"},
	)

	EventsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "volunteerhub_events_created_total",
			Help: "Total number of events created",
		},
	)

	// Registration metrics
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteerhub_registrations_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Reminder metrics
	RemindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteerhub_reminders_sent_total",
			Help: "Reminder messages delivered by offset in days",
		},
		[]string{"offset"},
	)

	ReminderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteerhub_reminder_failures_total",
			Help: "Reminder messages that could not be delivered by offset in days",
		},
		[]string{"offset"},
	)

	ReminderClaimsLostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "volunteerhub_reminder_claims_lost_total",
			Help: "Reminder batches skipped because another run already claimed them",
		},
	)

	ReminderTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "volunteerhub_reminder_tick_duration_seconds",
			Help:    "Duration of a reminder scheduler tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReminderTicksSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "volunteerhub_reminder_ticks_skipped_total",
			Help: "Scheduled ticks skipped because the previous tick was still running",
		},
	)

	// Notification metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteerhub_notifications_total",
			Help: "Outbound notifications by template and outcome",
		},
		[]string{"template", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(EventTransitionsTotal)
	prometheus.MustRegister(EventsCreatedTotal)
	prometheus.MustRegister(RegistrationsTotal)
	prometheus.MustRegister(RemindersSentTotal)
	prometheus.MustRegister(ReminderFailuresTotal)
	prometheus.MustRegister(ReminderClaimsLostTotal)
	prometheus.MustRegister(ReminderTickDuration)
	prometheus.MustRegister(ReminderTicksSkippedTotal)
	prometheus.MustRegister(NotificationsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in the histogram
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
