package dto

import (
	"time"

	"github.com/helphive/servicehours/internal/app/models"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID              int64           `json:"id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	PhoneNumber     string          `json:"phoneNumber,omitempty"`
	RoleType        models.RoleType `json:"roleType"`
	ProfilePhotoURL *string         `json:"profilePhotoUrl,omitempty"`
	GoogleLinked    bool            `json:"googleLinked"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// NewUserResponse maps a user model, hiding credentials.
func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		PhoneNumber:     u.PhoneNumber,
		RoleType:        u.RoleType,
		ProfilePhotoURL: u.ProfilePhotoURL,
		GoogleLinked:    u.GoogleID != nil,
		CreatedAt:       u.CreatedAt,
	}
}

// UserBasicResponse is the short form embedded in other responses.
type UserBasicResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// NewUserBasicResponse maps a user to its short form.
func NewUserBasicResponse(u *models.User) *UserBasicResponse {
	if u == nil {
		return nil
	}
	return &UserBasicResponse{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName" binding:"required,max=100"`
	LastName    string `json:"lastName" binding:"required,max=100"`
	PhoneNumber string `json:"phoneNumber" binding:"max=32"`
}

// UserListResponse is a page of users.
type UserListResponse struct {
	Users      []*UserResponse `json:"users"`
	Pagination PaginationInfo  `json:"pagination"`
}

// StudentFilterRequest filters the teacher's student list.
type StudentFilterRequest struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"size"`
}
