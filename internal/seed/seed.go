package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appModels "github.com/helphive/servicehours/internal/app/models"
	appRepos "github.com/helphive/servicehours/internal/app/repositories"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/auth"
	"github.com/rs/zerolog"
)

// DefaultTeacher describes the account created on first start.
type DefaultTeacher struct {
	Email    string
	Password string
}

// CreateDefaultData creates the default teacher account if it doesn't exist.
// An empty email skips seeding.
func CreateDefaultData(ctx context.Context, store appRepos.Store, teacher DefaultTeacher, lgr zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(teacher.Email))
	if email == "" {
		return nil
	}

	lgr.Info().Str("email", email).Msg("Checking/Creating default teacher account...")

	_, err := store.Users().GetByEmail(ctx, email)
	if err == nil {
		lgr.Info().Str("email", email).Msg("Default teacher already exists")
		return nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return fmt.Errorf("failed to look up default teacher: %w", err)
	}

	if teacher.Password == "" {
		return fmt.Errorf("default teacher password is required")
	}
	hashed, err := auth.HashPassword(teacher.Password)
	if err != nil {
		return fmt.Errorf("failed to hash default teacher password: %w", err)
	}

	user := &appModels.User{
		Email:     email,
		Password:  &hashed,
		FirstName: "Default",
		LastName:  "Teacher",
		RoleType:  appModels.RoleTeacher,
		IsActive:  true,
	}
	if err := store.Users().Create(ctx, user); err != nil {
		// Another instance may have seeded concurrently.
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create default teacher: %w", err)
	}

	lgr.Info().Int64("userID", user.ID).Str("email", email).Msg("Default teacher account created")
	return nil
}
