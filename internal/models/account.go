package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the discriminant carried by every account
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleNGO       Role = "ngo"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleVolunteer, RoleNGO, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller, resolved once by the auth layer
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool     { return a.Role == RoleAdmin }
func (a Actor) IsNGO() bool       { return a.Role == RoleNGO }
func (a Actor) IsVolunteer() bool { return a.Role == RoleVolunteer }

// Account is a volunteer, NGO or admin profile. Notifications go to Email.
type Account struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"id"`
	Role      Role      `gorm:"size:10;not null;index" bson:"role" json:"role"`
	Name      string    `gorm:"size:120;not null" bson:"name" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	CreatedAt time.Time `gorm:"not null" bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" bson:"updated_at" json:"updated_at"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "account"
}

// BeforeCreate hook is called before creating a new account
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	return nil
}

// BeforeSave hook is called before saving the account
func (a *Account) BeforeSave(tx *gorm.DB) error {
	a.UpdatedAt = time.Now()
	return nil
}

// UpsertAccountRequest represents the profile data an authenticated caller submits
type UpsertAccountRequest struct {
	Name  string `json:"name" binding:"required,max=120"`
	Email string `json:"email" binding:"required,email"`
}
