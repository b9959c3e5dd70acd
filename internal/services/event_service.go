package services

import (
	"context"
	"errors"
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

const minRenewShift = 24 * time.Hour

// newValidator reads the same `binding` tags gin uses, so requests that did
// not come through a handler are held to the same rules.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// EventService implements the event lifecycle: creation, admin review,
// renewal, deletion and the social features hanging off an event.
type EventService struct {
	store    store.Store
	notifier notify.Notifier
	resolver LocationResolver
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

// NewEventService creates the lifecycle service. resolver may be nil, in
// which case place ids are stored without lookup.
func NewEventService(st store.Store, notifier notify.Notifier, resolver LocationResolver) *EventService {
	return &EventService{
		store:    st,
		notifier: notifier,
		resolver: resolver,
		validate: newValidator(),
		now:      time.Now,
		logger:   log.WithComponent("lifecycle"),
	}
}

// Create stores a new pending event owned by the calling NGO
func (s *EventService) Create(ctx context.Context, actor models.Actor, req models.CreateEventRequest) (*models.Event, error) {
	if !actor.IsNGO() {
		return nil, authorizationError("only NGOs can create events")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, &Error{Kind: KindValidation, Msg: "invalid event", Err: err}
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, validationError("end_date must not be before start_date")
	}

	location := req.Location
	if req.PlaceID != "" && s.resolver != nil {
		resolved, err := s.resolver.Resolve(ctx, req.PlaceID)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Msg: "invalid place_id", Err: err}
		}
		location = resolved.Label()
	}
	if location == "" {
		return nil, validationError("location is required")
	}

	now := s.now()
	event := &models.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Location:    location,
		PlaceID:     req.PlaceID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ImageURL:    req.ImageURL,
		Status:      models.StatusPending,
		CreatorID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	event.InitCollections()

	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	metrics.EventsCreatedTotal.Inc()
	s.logger.Info().Str("event_id", event.ID).Str("creator_id", actor.ID).Msg("Event created")
	return event, nil
}

// Approve moves a pending event to approved and tells the creator
func (s *EventService) Approve(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, "approve", models.StatusPending, models.StatusApproved, notify.TemplateEventApproved)
}

// Reject moves a pending event to rejected and tells the creator
func (s *EventService) Reject(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, "reject", models.StatusPending, models.StatusRejected, notify.TemplateEventRejected)
}

// Disapprove sends an approved event back to review
func (s *EventService) Disapprove(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, "disapprove", models.StatusApproved, models.StatusPending, "")
}

// Unreject sends a rejected event back to review
func (s *EventService) Unreject(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, "unreject", models.StatusRejected, models.StatusPending, "")
}

// transition applies one admin edge of the state machine. An event already in
// the target state is returned unchanged and nobody is notified.
func (s *EventService) transition(ctx context.Context, actor models.Actor, id, action string, from, to models.EventStatus, template string) (*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, authorizationError("only admins can %s events", action)
	}

	event, err := s.store.UpdateEventStatus(ctx, id, from, to)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, notFoundError("event %s not found", id)
	case errors.Is(err, store.ErrStatusMismatch):
		if event.Status == to {
			return event, nil
		}
		return nil, invalidTransitionError(event.Status, action)
	case err != nil:
		return nil, err
	}

	metrics.EventTransitionsTotal.WithLabelValues(action).Inc()
	s.logger.Info().
		Str("event_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("admin_id", actor.ID).
		Msg("Event status changed")

	if template != "" {
		s.notifyCreator(ctx, event, template)
	}
	return event, nil
}

func (s *EventService) notifyCreator(ctx context.Context, event *models.Event, template string) {
	creator, err := s.store.GetAccount(ctx, event.CreatorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("Could not look up event creator for notification")
		return
	}
	err = s.notifier.Send(ctx, creator.Email, template, map[string]any{"EventName": event.Name})
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Str("template", template).Msg("Failed to notify event creator")
	}
}

// Renew reschedules an approved event. Both dates must be given, or neither,
// in which case the event moves forward by its own span (at least one day).
// The reminder ledger is cleared so the new dates get their own reminders.
func (s *EventService) Renew(ctx context.Context, actor models.Actor, id string, req models.RenewEventRequest) (*models.Event, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != event.CreatorID {
		return nil, authorizationError("only the event creator can renew it")
	}
	if event.Status != models.StatusApproved {
		return nil, invalidTransitionError(event.Status, "renew")
	}
	if (req.StartDate == nil) != (req.EndDate == nil) {
		return nil, validationError("start_date and end_date must be given together")
	}

	var start, end time.Time
	if req.StartDate != nil {
		start, end = *req.StartDate, *req.EndDate
		if end.Before(start) {
			return nil, validationError("end_date must not be before start_date")
		}
	} else {
		shift := event.Span()
		if shift < minRenewShift {
			shift = minRenewShift
		}
		start, end = event.StartDate.Add(shift), event.EndDate.Add(shift)
	}

	updated, err := s.store.RescheduleEvent(ctx, id, start, end)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, notFoundError("event %s not found", id)
	case errors.Is(err, store.ErrStatusMismatch):
		return nil, invalidTransitionError(updated.Status, "renew")
	case err != nil:
		return nil, err
	}

	metrics.EventTransitionsTotal.WithLabelValues("renew").Inc()
	s.logger.Info().Str("event_id", id).Time("start_date", start).Msg("Event renewed")
	return updated, nil
}

// Delete removes the event and its registrations
func (s *EventService) Delete(ctx context.Context, actor models.Actor, id string) error {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actor.ID != event.CreatorID {
		return authorizationError("only the event creator or an admin can delete it")
	}

	if err := s.store.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("event %s not found", id)
		}
		return err
	}
	s.logger.Info().Str("event_id", id).Str("actor_id", actor.ID).Msg("Event deleted")
	return nil
}

// Get returns an event the actor may see. Events under review are visible to
// admins and their creator only; to anybody else they do not exist.
func (s *EventService) Get(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, event) {
		return nil, notFoundError("event %s not found", id)
	}
	return event, nil
}

// List returns the events matching filter that the actor may see, ordered by
// start date. The zero Actor sees approved events only.
func (s *EventService) List(ctx context.Context, actor models.Actor, filter store.EventFilter) ([]*models.Event, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown status %q", filter.Status)
	}
	if actor.IsAdmin() {
		return s.store.ListEvents(ctx, filter)
	}
	if !actor.IsNGO() && filter.Status == "" {
		filter.Status = models.StatusApproved
	}

	events, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	visible := events[:0]
	for _, e := range events {
		if canSee(actor, e) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

func canSee(actor models.Actor, event *models.Event) bool {
	return event.Status == models.StatusApproved || actor.IsAdmin() || (actor.ID != "" && actor.ID == event.CreatorID)
}

// Like adds the volunteer to the event's likes. Liking twice is harmless.
func (s *EventService) Like(ctx context.Context, actor models.Actor, id string) error {
	return s.toggleLike(ctx, actor, id, s.store.AddLike)
}

// Unlike removes the volunteer from the event's likes
func (s *EventService) Unlike(ctx context.Context, actor models.Actor, id string) error {
	return s.toggleLike(ctx, actor, id, s.store.RemoveLike)
}

func (s *EventService) toggleLike(ctx context.Context, actor models.Actor, id string, apply func(context.Context, string, string) error) error {
	if !actor.IsVolunteer() {
		return authorizationError("only volunteers can like events")
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := apply(ctx, id, actor.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("event %s not found", id)
		}
		return err
	}
	return nil
}

// Comment appends a comment to the event's thread
func (s *EventService) Comment(ctx context.Context, actor models.Actor, id string, req models.AddCommentRequest) (*models.Comment, error) {
	if actor.ID == "" {
		return nil, authorizationError("sign in to comment")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, &Error{Kind: KindValidation, Msg: "invalid comment", Err: err}
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.New().String(),
		AuthorID:  actor.ID,
		Text:      req.Text,
		CreatedAt: s.now(),
	}
	if err := s.store.AddComment(ctx, id, comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("event %s not found", id)
		}
		return nil, err
	}
	return &comment, nil
}

func (s *EventService) getEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("event %s not found", id)
		}
		return nil, err
	}
	return event, nil
}
