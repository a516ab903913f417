package dto

import (
	"time"

	"github.com/helphive/servicehours/internal/app/models"
)

// LocationRequest is an optional place; coordinates are geocoded when absent.
type LocationRequest struct {
	Address   string   `json:"address" binding:"max=500"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

// CreateOpportunityRequest defines a new opportunity in a community.
type CreateOpportunityRequest struct {
	CommunityID  int64            `json:"communityId" binding:"required,min=1"`
	Name         string           `json:"name" binding:"required,max=200"`
	Description  string           `json:"description" binding:"required"`
	Date         string           `json:"date" binding:"required"`
	Time         string           `json:"time" binding:"required"`
	HourValue    float64          `json:"hourValue" binding:"required,gt=0"`
	MaxSignUps   int              `json:"maxSignUps" binding:"required,min=1"`
	ContactEmail string           `json:"contactEmail" binding:"omitempty,email"`
	Location     *LocationRequest `json:"location"`
}

// UpdateOpportunityRequest replaces the editable fields of an opportunity.
type UpdateOpportunityRequest struct {
	Name         string           `json:"name" binding:"required,max=200"`
	Description  string           `json:"description" binding:"required"`
	Date         string           `json:"date" binding:"required"`
	Time         string           `json:"time" binding:"required"`
	HourValue    float64          `json:"hourValue" binding:"required,gt=0"`
	MaxSignUps   int              `json:"maxSignUps" binding:"required,min=1"`
	ContactEmail string           `json:"contactEmail" binding:"omitempty,email"`
	Location     *LocationRequest `json:"location"`
}

// OpportunityFilterRequest narrows the opportunity list.
type OpportunityFilterRequest struct {
	CommunityID *int64 `form:"communityId"`
	// Mine keeps opportunities of communities the caller has joined.
	Mine     bool `form:"mine"`
	Page     int  `form:"page"`
	PageSize int  `form:"size"`
}

// OpportunityResponse is an opportunity as shown to clients.
type OpportunityResponse struct {
	ID             int64            `json:"id"`
	CommunityID    int64            `json:"communityId"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Date           string           `json:"date"`
	Time           string           `json:"time"`
	HourValue      float64          `json:"hourValue"`
	CreatedBy      int64            `json:"createdBy"`
	CurrentSignUps int              `json:"currentSignUps"`
	MaxSignUps     int              `json:"maxSignUps"`
	SpotsLeft      int              `json:"spotsLeft"`
	ContactEmail   string           `json:"contactEmail,omitempty"`
	Location       *models.Location `json:"location,omitempty"`
	Joined         bool             `json:"joined"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// NewOpportunityResponse maps an opportunity model.
func NewOpportunityResponse(o *models.Opportunity, joined bool) *OpportunityResponse {
	spots := o.MaxSignUps - o.CurrentSignUps
	if spots < 0 {
		spots = 0
	}
	return &OpportunityResponse{
		ID:             o.ID,
		CommunityID:    o.CommunityID,
		Name:           o.Name,
		Description:    o.Description,
		Date:           o.Date,
		Time:           o.Time,
		HourValue:      o.HourValue,
		CreatedBy:      o.CreatedBy,
		CurrentSignUps: o.CurrentSignUps,
		MaxSignUps:     o.MaxSignUps,
		SpotsLeft:      spots,
		ContactEmail:   o.ContactEmail,
		Location:       o.Location,
		Joined:         joined,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// OpportunityListResponse is a page of opportunities.
type OpportunityListResponse struct {
	Opportunities []*OpportunityResponse `json:"opportunities"`
	Pagination    PaginationInfo         `json:"pagination"`
}

// SignupResponse reports the counter after a join or cancel.
type SignupResponse struct {
	OpportunityID  int64 `json:"opportunityId"`
	CurrentSignUps int   `json:"currentSignUps"`
	MaxSignUps     int   `json:"maxSignUps"`
	Joined         bool  `json:"joined"`
}

// ParticipantResponse is a user signed up for an opportunity.
type ParticipantResponse struct {
	User     *UserBasicResponse `json:"user"`
	JoinedAt time.Time          `json:"joinedAt"`
}
