package models

import "time"

// ReminderDispatch marks a reminder batch that was already sent for an event.
// At most one entry exists per OffsetDays on a given event.
type ReminderDispatch struct {
	OffsetDays int       `bson:"offset_days" json:"offset_days"`
	SentAt     time.Time `bson:"sent_at" json:"sent_at"`
	Recipients int       `bson:"recipients" json:"recipients"`
}
