package dto

import (
	"time"

	"github.com/helphive/servicehours/internal/app/models"
)

// CreateCommunityRequest defines a new community.
type CreateCommunityRequest struct {
	Name        string    `json:"communityName" binding:"required,max=200"`
	Description string    `json:"description" binding:"required"`
	HourGoal    float64   `json:"hourGoal" binding:"required,gt=0"`
	EndDate     time.Time `json:"endDate" binding:"required"`
}

// UpdateCommunityRequest replaces the editable fields of a community.
type UpdateCommunityRequest = CreateCommunityRequest

// CommunityFilterRequest narrows the community list.
type CommunityFilterRequest struct {
	Search   string `form:"search"`
	Mine     bool   `form:"mine"`
	Page     int    `form:"page"`
	PageSize int    `form:"size"`
}

// CommunityResponse is a community as shown to clients.
type CommunityResponse struct {
	ID          int64              `json:"id"`
	Name        string             `json:"communityName"`
	Description string             `json:"description"`
	HourGoal    float64            `json:"hourGoal"`
	EndDate     time.Time          `json:"endDate"`
	CreatedBy   int64              `json:"createdBy"`
	Creator     *UserBasicResponse `json:"creator,omitempty"`
	Joined      bool               `json:"joined"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NewCommunityResponse maps a community model.
func NewCommunityResponse(c *models.Community) *CommunityResponse {
	return &CommunityResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		HourGoal:    c.HourGoal,
		EndDate:     c.EndDate,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CommunityListResponse is a page of communities.
type CommunityListResponse struct {
	Communities []*CommunityResponse `json:"communities"`
	Pagination  PaginationInfo       `json:"pagination"`
}

// MembershipResponse is one of the caller's joined communities with progress.
type MembershipResponse struct {
	CommunityID   int64     `json:"communityId"`
	CommunityName string    `json:"communityName"`
	HoursLogged   float64   `json:"hoursLogged"`
	HourGoal      float64   `json:"hourGoal"`
	Progress      float64   `json:"progress"`
	EndDate       time.Time `json:"endDate"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// CommunityMemberResponse is a student in a community, for its teacher.
type CommunityMemberResponse struct {
	User        *UserBasicResponse `json:"user"`
	HoursLogged float64            `json:"hoursLogged"`
	Progress    float64            `json:"progress"`
	JoinedAt    time.Time          `json:"joinedAt"`
}
