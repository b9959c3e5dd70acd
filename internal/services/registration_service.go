package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"volunteerhub/internal/log"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/models"
	"volunteerhub/internal/notify"
	"volunteerhub/internal/store"
)

// Sort orders accepted by ListForEvent
const (
	SortByName    = "name"
	SortByAge     = "age"
	SortByRecency = "recency"
)

// eventDateLayout is how event dates appear in notifications
const eventDateLayout = "Mon Jan 2, 2006 3:04 PM MST"

// RegistrationFilter narrows and orders ListForEvent. An empty SortBy keeps
// registration order.
type RegistrationFilter struct {
	Query  string
	SortBy string
}

// RegistrationService manages volunteer registrations. Only approved events
// that have not started yet accept registrations.
type RegistrationService struct {
	store    store.Store
	notifier notify.Notifier
	loc      *time.Location
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRegistrationService creates the service. loc is the time zone used to
// format dates in confirmation messages.
func NewRegistrationService(st store.Store, notifier notify.Notifier, loc *time.Location) *RegistrationService {
	if loc == nil {
		loc = time.UTC
	}
	return &RegistrationService{
		store:    st,
		notifier: notifier,
		loc:      loc,
		validate: newValidator(),
		now:      time.Now,
		logger:   log.WithComponent("registration"),
	}
}

// Register enrolls the calling volunteer in an event
func (s *RegistrationService) Register(ctx context.Context, actor models.Actor, eventID string, req models.RegisterRequest) (*models.Registration, error) {
	if !actor.IsVolunteer() {
		return nil, authorizationError("only volunteers can register for events")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, &Error{Kind: KindValidation, Msg: "invalid registration", Err: err}
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("event %s not found", eventID)
		}
		return nil, err
	}
	if event.Status != models.StatusApproved {
		return nil, validationError("event is %s, registration opens once it is approved", event.Status)
	}
	if !event.StartDate.After(s.now()) {
		return nil, validationError("event has already started")
	}

	optIn := true
	if req.Notify != nil {
		optIn = *req.Notify
	}
	reg := &models.Registration{
		ID:             uuid.New().String(),
		VolunteerID:    actor.ID,
		EventID:        eventID,
		EventCreatorID: event.CreatorID,
		Name:           req.Name,
		Sex:            req.Sex,
		Age:            req.Age,
		Skills:         append([]string{}, req.Skills...),
		Notify:         optIn,
		CreatedAt:      s.now(),
	}

	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return nil, conflictError("already registered for this event")
		}
		return nil, err
	}

	if err := s.store.AddRegistrant(ctx, eventID, actor.ID); err != nil {
		// Undo so a failed registration leaves nothing behind
		if derr := s.store.DeleteRegistration(ctx, eventID, actor.ID); derr != nil {
			s.logger.Error().Err(derr).Str("event_id", eventID).Str("volunteer_id", actor.ID).Msg("Failed to roll back registration")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("event %s not found", eventID)
		}
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	s.logger.Info().Str("event_id", eventID).Str("volunteer_id", actor.ID).Msg("Volunteer registered")

	s.sendConfirmation(ctx, event, reg)
	return reg, nil
}

func (s *RegistrationService) sendConfirmation(ctx context.Context, event *models.Event, reg *models.Registration) {
	account, err := s.store.GetAccount(ctx, reg.VolunteerID)
	if err != nil {
		s.logger.Warn().Err(err).Str("volunteer_id", reg.VolunteerID).Msg("No account for confirmation email")
		return
	}
	err = s.notifier.Send(ctx, account.Email, notify.TemplateRegistrationConfirmed, map[string]any{
		"Name":      reg.Name,
		"EventName": event.Name,
		"StartDate": event.StartDate.In(s.loc).Format(eventDateLayout),
		"Location":  event.Location,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to send registration confirmation")
	}
}

// Unregister removes the caller's registration and registrant entry
func (s *RegistrationService) Unregister(ctx context.Context, actor models.Actor, eventID string) error {
	if !actor.IsVolunteer() {
		return authorizationError("only volunteers can unregister")
	}

	reg, err := s.store.GetRegistration(ctx, eventID, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("not registered for event %s", eventID)
		}
		return err
	}
	if err := s.store.DeleteRegistration(ctx, eventID, actor.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("not registered for event %s", eventID)
		}
		return err
	}
	if err := s.store.RemoveRegistrant(ctx, eventID, actor.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		// Put the registration back so the volunteer can retry
		if cerr := s.store.CreateRegistration(ctx, reg); cerr != nil {
			s.logger.Error().Err(cerr).Str("event_id", eventID).Str("volunteer_id", actor.ID).Msg("Failed to restore registration")
		}
		return err
	}

	s.logger.Info().Str("event_id", eventID).Str("volunteer_id", actor.ID).Msg("Volunteer unregistered")
	return nil
}

// IsRegistered reports whether the volunteer holds a registration for the event
func (s *RegistrationService) IsRegistered(ctx context.Context, volunteerID, eventID string) (bool, error) {
	_, err := s.store.GetRegistration(ctx, eventID, volunteerID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	}
	return false, err
}

// SetNotify toggles the caller's reminder opt-in
func (s *RegistrationService) SetNotify(ctx context.Context, actor models.Actor, eventID string, optIn bool) error {
	if !actor.IsVolunteer() {
		return authorizationError("only volunteers have registrations")
	}
	if err := s.store.UpdateRegistrationNotify(ctx, eventID, actor.ID, optIn); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("not registered for event %s", eventID)
		}
		return err
	}
	return nil
}

// ListForEvent returns the event's registrations to its creator or an admin.
// Query matches name or any skill, case-insensitively. Sorting is stable, so
// ties keep registration order.
func (s *RegistrationService) ListForEvent(ctx context.Context, actor models.Actor, eventID string, filter RegistrationFilter) ([]*models.Registration, error) {
	less, err := registrationOrder(filter.SortBy)
	if err != nil {
		return nil, err
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("event %s not found", eventID)
		}
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != event.CreatorID {
		return nil, authorizationError("only the event creator or an admin can list registrations")
	}

	regs, err := s.store.ListRegistrations(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		matched := regs[:0]
		for _, r := range regs {
			if matchesQuery(r, q) {
				matched = append(matched, r)
			}
		}
		regs = matched
	}

	if less != nil {
		sort.SliceStable(regs, func(i, j int) bool { return less(regs[i], regs[j]) })
	}
	return regs, nil
}

func registrationOrder(sortBy string) (func(a, b *models.Registration) bool, error) {
	switch sortBy {
	case "":
		return nil, nil
	case SortByName:
		return func(a, b *models.Registration) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}, nil
	case SortByAge:
		return func(a, b *models.Registration) bool { return a.Age < b.Age }, nil
	case SortByRecency:
		return func(a, b *models.Registration) bool { return a.CreatedAt.After(b.CreatedAt) }, nil
	}
	return nil, validationError("unknown sort_by %q (want %s, %s or %s)", sortBy, SortByName, SortByAge, SortByRecency)
}

func matchesQuery(r *models.Registration, q string) bool {
	if strings.Contains(strings.ToLower(r.Name), q) {
		return true
	}
	for _, skill := range r.Skills {
		if strings.Contains(strings.ToLower(skill), q) {
			return true
		}
	}
	return false
}
