package models

import (
	"strings"
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID              int64      `json:"id" db:"id"`
	Email           string     `json:"email" db:"email"`
	Password        *string    `json:"-" db:"password"` // nil for accounts created through Google sign-in
	FirstName       string     `json:"firstName" db:"first_name"`
	LastName        string     `json:"lastName" db:"last_name"`
	PhoneNumber     string     `json:"phoneNumber,omitempty" db:"phone_number"`
	RoleType        RoleType   `json:"roleType" db:"role_type"`
	GoogleID        *string    `json:"-" db:"google_id"`
	ProfilePhotoURL *string    `json:"profilePhotoUrl,omitempty" db:"profile_photo_url"`
	IsActive        bool       `json:"isActive" db:"is_active"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name, falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsTeacher reports whether the user can manage communities.
func (u *User) IsTeacher() bool {
	return u.RoleType == RoleTeacher
}
