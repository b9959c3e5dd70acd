package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"volunteerhub/internal/log"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/models"
	"volunteerhub/internal/notify"
	"volunteerhub/internal/store"
)

// TickStats summarises one reminder run
type TickStats struct {
	Events  int // approved upcoming events scanned
	Batches int // (event, offset) batches this run claimed
	Sent    int
	Failed  int
	Errors  int // events whose processing failed
}

// ReminderWorker sends one reminder batch per (event, offset) to opted-in
// registrants. The batch is claimed in the event's ledger before anything is
// sent, so overlapping runs and restarts never send it twice.
type ReminderWorker struct {
	store    store.Store
	notifier notify.Notifier
	offsets  []int
	loc      *time.Location
	now      func() time.Time
	cron     *cron.Cron
	logger   zerolog.Logger
}

// NewReminderWorker creates a worker for the given day offsets. Calendar days
// are counted in loc.
func NewReminderWorker(st store.Store, notifier notify.Notifier, offsets []int, loc *time.Location) *ReminderWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderWorker{
		store:    st,
		notifier: notifier,
		offsets:  offsets,
		loc:      loc,
		now:      time.Now,
		logger:   log.WithComponent("reminders"),
	}
}

// Start schedules RunTick on the cron spec, evaluated in the worker's time
// zone. A tick that is due while the previous one still runs is skipped.
func (w *ReminderWorker) Start(schedule string) error {
	logger := cronLogger{logger: w.logger}
	w.cron = cron.New(
		cron.WithLocation(w.loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := w.cron.AddFunc(schedule, func() {
		if _, err := w.RunTick(context.Background()); err != nil {
			w.logger.Error().Err(err).Msg("Reminder tick failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}

	w.cron.Start()
	w.logger.Info().Str("schedule", schedule).Str("timezone", w.loc.String()).Ints("offsets", w.offsets).Msg("Reminder scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running tick to finish
func (w *ReminderWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.logger.Info().Msg("Reminder scheduler stopped")
}

// RunTick scans approved upcoming events and sends every reminder batch that
// is due today. Failures are isolated per event; only a failed scan is
// returned.
func (w *ReminderWorker) RunTick(ctx context.Context) (TickStats, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReminderTickDuration)

	var stats TickStats
	now := w.now()

	events, err := w.store.ListEvents(ctx, store.EventFilter{
		Status:      models.StatusApproved,
		StartsAfter: now,
	})
	if err != nil {
		return stats, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	stats.Events = len(events)

	for _, event := range events {
		if err := w.processEvent(ctx, event, now, &stats); err != nil {
			stats.Errors++
			w.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to process reminders for event")
		}
	}

	w.logger.Info().
		Int("events", stats.Events).
		Int("batches", stats.Batches).
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Dur("took", timer.Duration()).
		Msg("Reminder tick complete")
	return stats, nil
}

func (w *ReminderWorker) processEvent(ctx context.Context, event *models.Event, now time.Time, stats *TickStats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	days := DaysRemaining(event.StartDate, now, w.loc)
	for _, offset := range w.offsets {
		if days != offset || event.ReminderSent(offset) {
			continue
		}
		if err := w.dispatch(ctx, event, offset, now, stats); err != nil {
			return fmt.Errorf("offset %d: %w", offset, err)
		}
	}
	return nil
}

func (w *ReminderWorker) dispatch(ctx context.Context, event *models.Event, offset int, now time.Time, stats *TickStats) error {
	regs, err := w.store.ListRegistrations(ctx, event.ID)
	if err != nil {
		return err
	}
	recipients := regs[:0]
	for _, r := range regs {
		if r.Notify {
			recipients = append(recipients, r)
		}
	}

	claimed, err := w.store.MarkReminderSent(ctx, event.ID, models.ReminderDispatch{
		OffsetDays: offset,
		SentAt:     now,
		Recipients: len(recipients),
	})
	if err != nil {
		return err
	}
	if !claimed {
		metrics.ReminderClaimsLostTotal.Inc()
		w.logger.Debug().Str("event_id", event.ID).Int("offset", offset).Msg("Reminder batch already claimed")
		return nil
	}
	stats.Batches++

	label := strconv.Itoa(offset)
	startDate := event.StartDate.In(w.loc).Format(eventDateLayout)
	for _, reg := range recipients {
		if err := w.remind(ctx, event, reg, offset, startDate); err != nil {
			// The batch stays recorded; this recipient misses the reminder
			stats.Failed++
			metrics.ReminderFailuresTotal.WithLabelValues(label).Inc()
			w.logger.Error().Err(err).
				Str("event_id", event.ID).
				Str("volunteer_id", reg.VolunteerID).
				Int("offset", offset).
				Msg("Failed to send reminder")
			continue
		}
		stats.Sent++
		metrics.RemindersSentTotal.WithLabelValues(label).Inc()
	}

	w.logger.Info().
		Str("event_id", event.ID).
		Int("offset", offset).
		Int("recipients", len(recipients)).
		Msg("Reminder batch dispatched")
	return nil
}

func (w *ReminderWorker) remind(ctx context.Context, event *models.Event, reg *models.Registration, offset int, startDate string) error {
	account, err := w.store.GetAccount(ctx, reg.VolunteerID)
	if err != nil {
		return fmt.Errorf("resolve address: %w", err)
	}
	return w.notifier.Send(ctx, account.Email, notify.TemplateEventReminder, map[string]any{
		"Name":      reg.Name,
		"EventName": event.Name,
		"StartDate": startDate,
		"Location":  event.Location,
		"Days":      offset,
	})
}

// DaysRemaining counts the calendar days from now until start in loc. An
// event tomorrow is 1 day away whatever the hour.
func DaysRemaining(start, now time.Time, loc *time.Location) int {
	s := start.In(loc)
	n := now.In(loc)
	startDay := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	// Rounding absorbs 23 and 25 hour days around DST changes
	return int(math.Round(startDay.Sub(today).Hours() / 24))
}

// cronLogger routes cron's logging to zerolog and counts skipped ticks
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		metrics.ReminderTicksSkippedTotal.Inc()
		l.logger.Warn().Msg("Previous reminder tick still running, skipping")
		return
	}
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
