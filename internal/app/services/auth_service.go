package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/repositories"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/auth"
	"github.com/helphive/servicehours/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// AuthService handles authentication operations
type AuthService struct {
	store      repositories.Store
	jwtService *auth.JWTService
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(store repositories.Store, jwtService *auth.JWTService, logger zerolog.Logger) *AuthService {
	return &AuthService{
		store:      store,
		jwtService: jwtService,
		logger:     logger,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an email/password account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if !validation.IsEmail(email) {
		return nil, apperrors.NewValidationError("email", "email must be a valid email address")
	}
	if err := validation.CheckPassword(req.Password); err != nil {
		return nil, apperrors.NewValidationError("password", err.Error())
	}
	if !req.RoleType.Valid() {
		return nil, apperrors.NewValidationError("roleType", "roleType must be STUDENT or TEACHER")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, apperrors.NewValidationError("firstName", "first and last name are required")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:       email,
		Password:    &hashed,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		RoleType:    req.RoleType,
		IsActive:    true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}

	s.logger.Info().Int64("userID", user.ID).Str("role", string(user.RoleType)).Msg("User registered")
	return s.issue(ctx, user)
}

// Login authenticates a user with email and password.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	return s.issue(ctx, user)
}

// LoginWithGoogle signs in the account linked to a Google identity. An
// existing email/password account with the same email is linked; otherwise a
// new student account is created.
func (s *AuthService) LoginWithGoogle(ctx context.Context, gu auth.GoogleUser) (*dto.AuthResponse, error) {
	if gu.GoogleID == "" || gu.Email == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		u, err := tx.Users().GetByGoogleID(ctx, gu.GoogleID)
		if err == nil {
			user = u
			return nil
		}
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}

		u, err = tx.Users().GetByEmail(ctx, normalizeEmail(gu.Email))
		switch {
		case err == nil:
			if err := tx.Users().LinkGoogleID(ctx, u.ID, gu.GoogleID); err != nil {
				return err
			}
			u.GoogleID = &gu.GoogleID
			user = u
			return nil
		case !errors.Is(err, apperrors.ErrUserNotFound):
			return err
		}

		googleID := gu.GoogleID
		u = &models.User{
			Email:     normalizeEmail(gu.Email),
			FirstName: gu.FirstName,
			LastName:  gu.LastName,
			RoleType:  models.RoleStudent,
			GoogleID:  &googleID,
			IsActive:  true,
		}
		if gu.AvatarURL != "" {
			avatar := gu.AvatarURL
			u.ProfilePhotoURL = &avatar
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("google sign-in failed: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	return s.issue(ctx, user)
}

// RefreshToken exchanges a refresh token for a new pair. The presented token
// is revoked so it cannot be used twice.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		stored, err := tx.Tokens().Get(ctx, refreshToken)
		if err != nil {
			return err
		}
		if stored.Revoked {
			return apperrors.ErrTokenRevoked
		}
		if stored.ExpiresAt.Before(s.now()) {
			return apperrors.ErrTokenExpired
		}

		user, err = tx.Users().GetByID(ctx, stored.UserID)
		if err != nil {
			return err
		}
		return tx.Tokens().Revoke(ctx, refreshToken)
	})
	if err != nil {
		// An expired token is revoked even though the refresh fails.
		if errors.Is(err, apperrors.ErrTokenExpired) {
			_ = s.store.Tokens().Revoke(ctx, refreshToken)
		}
		return nil, err
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &resp.Token, nil
}

// Logout revokes one refresh token, or every token of the user when none is given.
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	if refreshToken == "" {
		return s.store.Tokens().RevokeAllForUser(ctx, userID)
	}

	stored, err := s.store.Tokens().Get(ctx, refreshToken)
	if err != nil {
		return err
	}
	if stored.UserID != userID {
		return apperrors.ErrTokenInvalid
	}
	return s.store.Tokens().Revoke(ctx, refreshToken)
}

// issue creates and stores a token pair for user.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.store.Tokens().Create(ctx, &models.RefreshToken{
		Token:     pair.RefreshToken,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	if err := s.store.Users().UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login")
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             int64(pair.ExpiresIn),
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
		},
		User: dto.NewUserResponse(user),
	}, nil
}
