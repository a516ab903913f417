package services

import (
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
)

// Session identifies the caller of a service operation. Controllers build it
// from the verified access token.
type Session struct {
	UserID int64
	Role   models.RoleType
}

// IsTeacher reports whether the caller may manage communities.
func (s Session) IsTeacher() bool {
	return s.Role == models.RoleTeacher
}

func (s Session) requireUser() error {
	if s.UserID <= 0 {
		return apperrors.ErrTokenInvalid
	}
	return nil
}

func (s Session) requireTeacher() error {
	if err := s.requireUser(); err != nil {
		return err
	}
	if !s.IsTeacher() {
		return apperrors.NewForbiddenError("only teachers can perform this action")
	}
	return nil
}
