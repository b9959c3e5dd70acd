package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Registration is a volunteer's enrollment record for an event
type Registration struct {
	ID             string                      `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	VolunteerID    string                      `gorm:"size:64;not null;uniqueIndex:idx_registration_volunteer_event" bson:"volunteer_id" json:"volunteer_id"`
	EventID        string                      `gorm:"size:36;not null;uniqueIndex:idx_registration_volunteer_event;index" bson:"event_id" json:"event_id"`
	EventCreatorID string                      `gorm:"size:64;not null" bson:"event_creator_id" json:"event_creator_id"`
	Name           string                      `gorm:"size:120;not null" bson:"name" json:"name"`
	Sex            string                      `gorm:"size:20" bson:"sex,omitempty" json:"sex,omitempty"`
	Age            int                         `bson:"age,omitempty" json:"age,omitempty"`
	Skills         datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'" bson:"skills" json:"skills"`
	Notify         bool                        `gorm:"not null" bson:"notify" json:"notify"`
	CreatedAt      time.Time                   `gorm:"not null;index" bson:"created_at" json:"created_at"`
	// Seq orders an event's registrations by insertion; stores assign it
	Seq int64 `gorm:"autoIncrement;not null;index" bson:"seq" json:"-"`
}

// TableName specifies the table name for the Registration model
func (Registration) TableName() string {
	return "registration"
}

// BeforeCreate hook is called before inserting a new registration
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Skills == nil {
		r.Skills = datatypes.JSONSlice[string]{}
	}
	return nil
}

// RegisterRequest represents the data a volunteer submits when registering
type RegisterRequest struct {
	Name   string   `json:"name" binding:"required,max=120"`
	Sex    string   `json:"sex" binding:"omitempty,oneof=female male other"`
	Age    int      `json:"age" binding:"omitempty,min=0,max=130"`
	Skills []string `json:"skills" binding:"max=30,dive,max=60"`
	Notify *bool    `json:"notify"`
}

// UpdateNotifyRequest toggles reminder opt-in for a registration
type UpdateNotifyRequest struct {
	Notify *bool `json:"notify" binding:"required"`
}
