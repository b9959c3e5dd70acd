// Package store is the document persistence layer. Every mutation of shared
// event state is a targeted operation (conditional status change, set
// add/remove, conditional ledger push) so that concurrent callers never
// overwrite each other's changes.
package store

import (
	"context"
	"errors"
	"time"

	"volunteerhub/internal/models"
)

var (
	// ErrNotFound is returned when the referenced record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("duplicate record")
	// ErrStatusMismatch is returned by conditional event updates whose
	// expected status did not match the stored one
	ErrStatusMismatch = errors.New("event status mismatch")
)

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	Status      models.EventStatus
	CreatorID   string
	StartsAfter time.Time
}

// Store defines the persistence operations used by the services
type Store interface {
	// Events
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	// ListEvents returns matching events ordered by start date
	ListEvents(ctx context.Context, filter EventFilter) ([]*models.Event, error)
	// UpdateEventStatus moves the event from one status to another only if it
	// is currently in from. On ErrStatusMismatch the current event is returned
	// alongside the error.
	UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus) (*models.Event, error)
	// RescheduleEvent replaces the dates of an approved event and clears its
	// reminder ledger. Returns ErrStatusMismatch (with the current event) if
	// the event is not approved.
	RescheduleEvent(ctx context.Context, id string, start, end time.Time) (*models.Event, error)
	// DeleteEvent removes the event and all of its registrations
	DeleteEvent(ctx context.Context, id string) error
	AddRegistrant(ctx context.Context, eventID, volunteerID string) error
	RemoveRegistrant(ctx context.Context, eventID, volunteerID string) error
	AddLike(ctx context.Context, eventID, volunteerID string) error
	RemoveLike(ctx context.Context, eventID, volunteerID string) error
	AddComment(ctx context.Context, eventID string, comment models.Comment) error
	// MarkReminderSent records the dispatch unless one already exists for the
	// same offset. It reports whether this call created the record.
	MarkReminderSent(ctx context.Context, eventID string, dispatch models.ReminderDispatch) (bool, error)

	// Registrations
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistration(ctx context.Context, eventID, volunteerID string) (*models.Registration, error)
	// ListRegistrations returns an event's registrations in insertion order
	ListRegistrations(ctx context.Context, eventID string) ([]*models.Registration, error)
	UpdateRegistrationNotify(ctx context.Context, eventID, volunteerID string, notify bool) error
	DeleteRegistration(ctx context.Context, eventID, volunteerID string) error

	// Accounts
	UpsertAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	Close() error
}

var (
	_ Store = (*BoltStore)(nil)
	_ Store = (*MongoStore)(nil)
	_ Store = (*GormStore)(nil)
)
