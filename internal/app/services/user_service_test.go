package services

import (
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/filestorage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	saved   int
	deleted []string
	err     error
}

func (s *fakeStorage) SaveFileWithPath(fh *multipart.FileHeader, subPath string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved++
	return fmt.Sprintf("/uploads/%s/%d-%s", subPath, s.saved, fh.Filename), nil
}

func (s *fakeStorage) DeleteFile(url string) error {
	s.deleted = append(s.deleted, url)
	return nil
}

func photo(name, contentType string) *multipart.FileHeader {
	return &multipart.FileHeader{Filename: name, Header: textproto.MIMEHeader{"Content-Type": {contentType}}}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.store, &fakeStorage{}, zerolog.Nop())
	student := f.students(t, 1)[0]

	resp, err := users.UpdateProfile(f.ctx, student, &dto.UpdateProfileRequest{FirstName: " Ada ", LastName: "Lovelace", PhoneNumber: "555 0100"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", resp.FirstName)

	got, err := users.GetProfile(f.ctx, student)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "555 0100", got.PhoneNumber)

	_, err = users.UpdateProfile(f.ctx, student, &dto.UpdateProfileRequest{FirstName: " ", LastName: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestProfilePhotoReplacesAndDeletes(t *testing.T) {
	f := newFixture(t)
	storage := &fakeStorage{}
	users := NewUserService(f.store, storage, zerolog.Nop())
	student := f.students(t, 1)[0]

	first, err := users.UpdateProfilePhoto(f.ctx, student, photo("a.png", "image/png"))
	require.NoError(t, err)
	require.NotNil(t, first.ProfilePhotoURL)

	second, err := users.UpdateProfilePhoto(f.ctx, student, photo("b.png", "image/png"))
	require.NoError(t, err)
	assert.Equal(t, []string{*first.ProfilePhotoURL}, storage.deleted)

	require.NoError(t, users.DeleteProfilePhoto(f.ctx, student))
	assert.Equal(t, *second.ProfilePhotoURL, storage.deleted[1])

	err = users.DeleteProfilePhoto(f.ctx, student)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestProfilePhotoValidation(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]

	users := NewUserService(f.store, &fakeStorage{}, zerolog.Nop())
	_, err := users.UpdateProfilePhoto(f.ctx, student, photo("notes.txt", "text/plain"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	users = NewUserService(f.store, &fakeStorage{err: filestorage.ErrFileTooLarge}, zerolog.Nop())
	_, err = users.UpdateProfilePhoto(f.ctx, student, photo("big.png", "image/png"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestListStudentsIsForTeachers(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.store, &fakeStorage{}, zerolog.Nop())
	students := f.students(t, 3)

	_, err := users.ListStudents(f.ctx, students[0], "", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	page, err := users.ListStudents(f.ctx, f.teacher, "", 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, 3, page.Pagination.TotalItems)
	for _, u := range page.Users {
		assert.Equal(t, models.RoleStudent, u.RoleType)
	}

	found, err := users.ListStudents(f.ctx, f.teacher, "student1@", 1, 10)
	require.NoError(t, err)
	require.Len(t, found.Users, 1)
	assert.Equal(t, "student1@school.org", found.Users[0].Email)
}
