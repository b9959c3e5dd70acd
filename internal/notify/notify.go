// Package notify renders and delivers outbound notifications
package notify

import (
	"context"
	"errors"
)

// Templates understood by Render
const (
	TemplateEventApproved         = "event_approved"
	TemplateEventRejected         = "event_rejected"
	TemplateRegistrationConfirmed = "registration_confirmed"
	TemplateEventReminder         = "event_reminder"
)

var (
	// ErrUnknownTemplate is returned for a template name that is not registered
	ErrUnknownTemplate = errors.New("unknown notification template")
	// ErrClosed is returned by Async.Send after Close
	ErrClosed = errors.New("notifier closed")
)

// Notifier delivers a templated message to one address
type Notifier interface {
	Send(ctx context.Context, address, template string, data map[string]any) error
}
