package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventStatus is the approval state of an event
type EventStatus string

const (
	StatusPending  EventStatus = "pending"
	StatusApproved EventStatus = "approved"
	StatusRejected EventStatus = "rejected"
)

// Valid reports whether s is one of the known statuses
func (s EventStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Event is a volunteering opportunity posted by an NGO
type Event struct {
	ID          string      `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Name        string      `gorm:"size:200;not null" bson:"name" json:"name"`
	Description string      `gorm:"type:text" bson:"description" json:"description"`
	Location    string      `gorm:"size:255;not null" bson:"location" json:"location"`
	PlaceID     string      `gorm:"size:255" bson:"place_id,omitempty" json:"place_id,omitempty"`
	StartDate   time.Time   `gorm:"not null;index" bson:"start_date" json:"start_date"`
	EndDate     time.Time   `gorm:"not null" bson:"end_date" json:"end_date"`
	ImageURL    string      `gorm:"size:512" bson:"image_url,omitempty" json:"image_url,omitempty"`
	Status      EventStatus `gorm:"size:10;not null;index" bson:"status" json:"status"`
	CreatorID   string      `gorm:"size:64;not null;index" bson:"creator_id" json:"creator_id"`

	Registrants   datatypes.JSONSlice[string]           `gorm:"type:jsonb;not null;default:'[]'" bson:"registrants" json:"registrants"`
	Likes         datatypes.JSONSlice[string]           `gorm:"type:jsonb;not null;default:'[]'" bson:"likes" json:"likes"`
	Comments      datatypes.JSONSlice[Comment]          `gorm:"type:jsonb;not null;default:'[]'" bson:"comments" json:"comments"`
	RemindersSent datatypes.JSONSlice[ReminderDispatch] `gorm:"type:jsonb;not null;default:'[]'" bson:"reminders_sent" json:"reminders_sent"`

	CreatedAt time.Time `gorm:"not null" bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" bson:"updated_at" json:"updated_at"`
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "event"
}

// InitCollections replaces nil collections with empty ones so that every
// backend stores arrays rather than nulls.
func (e *Event) InitCollections() {
	if e.Registrants == nil {
		e.Registrants = datatypes.JSONSlice[string]{}
	}
	if e.Likes == nil {
		e.Likes = datatypes.JSONSlice[string]{}
	}
	if e.Comments == nil {
		e.Comments = datatypes.JSONSlice[Comment]{}
	}
	if e.RemindersSent == nil {
		e.RemindersSent = datatypes.JSONSlice[ReminderDispatch]{}
	}
}

// BeforeCreate hook is called before inserting a new event
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	e.InitCollections()
	return nil
}

// HasRegistrant reports whether the volunteer is on the registrant list
func (e *Event) HasRegistrant(volunteerID string) bool {
	return contains(e.Registrants, volunteerID)
}

// LikedBy reports whether the volunteer liked the event
func (e *Event) LikedBy(volunteerID string) bool {
	return contains(e.Likes, volunteerID)
}

// ReminderSent reports whether the reminder batch for offset was already dispatched
func (e *Event) ReminderSent(offsetDays int) bool {
	for _, d := range e.RemindersSent {
		if d.OffsetDays == offsetDays {
			return true
		}
	}
	return false
}

// Span returns the duration between start and end
func (e *Event) Span() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// CreateEventRequest represents the data needed to create a new event
type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required,max=200"`
	Description string    `json:"description" binding:"max=5000"`
	Location    string    `json:"location" binding:"required_without=PlaceID,max=255"`
	PlaceID     string    `json:"place_id"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	ImageURL    string    `json:"image_url" binding:"omitempty,url"`
}

// RenewEventRequest carries optional replacement dates for a renewal
type RenewEventRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}
