package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent RoleType = "STUDENT"
	RoleTeacher RoleType = "TEACHER"
)

// Valid reports whether r is a known role.
func (r RoleType) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// HourRequestStatus is the review state of an hour request.
type HourRequestStatus string

const (
	HourRequestPending  HourRequestStatus = "pending"
	HourRequestApproved HourRequestStatus = "approved"
	HourRequestRejected HourRequestStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s HourRequestStatus) Valid() bool {
	switch s {
	case HourRequestPending, HourRequestApproved, HourRequestRejected:
		return true
	}
	return false
}
