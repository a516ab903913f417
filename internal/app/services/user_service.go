package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/repositories"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/filestorage"
	"github.com/helphive/servicehours/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// UserService defines the interface for user operations
type UserService interface {
	GetProfile(ctx context.Context, session Session) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, session Session, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	UpdateProfilePhoto(ctx context.Context, session Session, file *multipart.FileHeader) (*dto.UserResponse, error)
	DeleteProfilePhoto(ctx context.Context, session Session) error
	ListStudents(ctx context.Context, session Session, search string, page, size int) (*dto.UserListResponse, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	store       repositories.Store
	fileStorage filestorage.FileStorage
	logger      zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(store repositories.Store, fileStorage filestorage.FileStorage, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		store:       store,
		fileStorage: fileStorage,
		logger:      logger,
	}
}

// GetProfile returns the caller's profile.
func (s *userServiceImpl) GetProfile(ctx context.Context, session Session) (*dto.UserResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// UpdateProfile changes the caller's name and phone number.
func (s *userServiceImpl) UpdateProfile(ctx context.Context, session Session, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if user.FirstName == "" || user.LastName == "" {
		return nil, apperrors.NewValidationError("firstName", "first and last name are required")
	}

	if err := s.store.Users().UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	return dto.NewUserResponse(user), nil
}

// UpdateProfilePhoto stores a new photo and removes the previous one.
func (s *userServiceImpl) UpdateProfilePhoto(ctx context.Context, session Session, fileHeader *multipart.FileHeader) (*dto.UserResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	if fileHeader == nil {
		return nil, apperrors.NewValidationError("photo", "photo is required")
	}

	user, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewValidationError("photo", "file is not an image")
	}

	fileURL, err := s.fileStorage.SaveFileWithPath(fileHeader, fmt.Sprintf("profile_photos/user_%d", user.ID))
	if err != nil {
		if errors.Is(err, filestorage.ErrFileTooLarge) || errors.Is(err, filestorage.ErrUnsupportedType) {
			return nil, apperrors.NewValidationError("photo", err.Error())
		}
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	if err := s.store.Users().UpdateProfilePhoto(ctx, user.ID, &fileURL); err != nil {
		_ = s.fileStorage.DeleteFile(fileURL)
		return nil, fmt.Errorf("error updating profile photo: %w", err)
	}

	if old := user.ProfilePhotoURL; old != nil && *old != fileURL {
		if err := s.fileStorage.DeleteFile(*old); err != nil {
			s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to delete previous profile photo")
		}
	}

	user.ProfilePhotoURL = &fileURL
	return dto.NewUserResponse(user), nil
}

// DeleteProfilePhoto clears the caller's photo.
func (s *userServiceImpl) DeleteProfilePhoto(ctx context.Context, session Session) error {
	if err := session.requireUser(); err != nil {
		return err
	}
	user, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return err
	}
	if user.ProfilePhotoURL == nil {
		return apperrors.NewResourceNotFoundError("user has no profile photo")
	}

	if err := s.store.Users().UpdateProfilePhoto(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("error clearing profile photo: %w", err)
	}
	if err := s.fileStorage.DeleteFile(*user.ProfilePhotoURL); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to delete profile photo file")
	}
	return nil
}

// ListStudents is the teacher's student directory.
func (s *userServiceImpl) ListStudents(ctx context.Context, session Session, search string, page, size int) (*dto.UserListResponse, error) {
	if err := session.requireTeacher(); err != nil {
		return nil, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	users, total, err := s.store.Users().ListByRole(ctx, models.RoleStudent, strings.TrimSpace(search),
		repositories.ListParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}

	resp := &dto.UserListResponse{
		Users:      make([]*dto.UserResponse, 0, len(users)),
		Pagination: helpers.NewPaginationInfo(total, page, limit),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, dto.NewUserResponse(u))
	}
	return resp, nil
}
