// Package model defines the persistence models for the admin platform.
// Types are mapped with GORM and migrated via AllModels.
package model

import "time"

// Role is a user's platform role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is an authenticated principal.
//
// AdminSlot backs the single-admin invariant at the store level: it is set
// to "admin" when Role is admin and NULL otherwise, so the unique index
// rejects a second admin without a check-then-act race.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name" gorm:"size:128;not null"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:128;not null"`
	Role         Role      `json:"role" gorm:"size:16;default:user"`
	AdminSlot    *string   `json:"-" gorm:"size:16;uniqueIndex"`
	Active       bool      `json:"active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// SyncAdminSlot keeps AdminSlot consistent with Role. Call before any
// write that may change the role.
func (u *User) SyncAdminSlot() {
	if u.Role == RoleAdmin {
		slot := string(RoleAdmin)
		u.AdminSlot = &slot
	} else {
		u.AdminSlot = nil
	}
}
