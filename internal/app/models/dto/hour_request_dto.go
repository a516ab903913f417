package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
)

// NumberText holds a form value that clients send either as a JSON string or
// a JSON number. Parsing is left to the service so both forms validate alike.
type NumberText string

// UnmarshalJSON accepts "2.5", 2.5 and null.
func (n *NumberText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected a number or numeric string")
	}
	*n = NumberText(num.String())
	return nil
}

// LogHoursRequest is the hour log form. Hours may have decimals; minutes are optional.
type LogHoursRequest struct {
	CommunityID   int64      `json:"communityId" binding:"required,min=1"`
	OpportunityID *int64     `json:"opportunityId"`
	ActivityName  string     `json:"activityName" binding:"required,max=200"`
	Hours         NumberText `json:"hours" binding:"required"`
	Minutes       NumberText `json:"minutes"`
	Date          string     `json:"date" binding:"required"`
	ContactEmail  string     `json:"contactEmail" binding:"required,email"`
	ContactName   string     `json:"contactName" binding:"required,max=200"`
	Description   string     `json:"description" binding:"required"`
}

// ReviewHourRequest carries an optional note for the student.
type ReviewHourRequest struct {
	Note string `json:"note" binding:"max=1000"`
}

// HourRequestFilterRequest narrows hour request lists.
type HourRequestFilterRequest struct {
	Status      string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	CommunityID *int64 `form:"communityId"`
	Page        int    `form:"page"`
	PageSize    int    `form:"size"`
}

// HourRequestResponse is an hour request as shown to clients.
type HourRequestResponse struct {
	ID            int64                    `json:"id"`
	CommunityID   int64                    `json:"communityId"`
	CommunityName string                   `json:"communityName"`
	OpportunityID *int64                   `json:"opportunityId,omitempty"`
	ActivityName  string                   `json:"activityName"`
	Hours         float64                  `json:"hours"`
	Minutes       int                      `json:"minutes"`
	TotalHours    float64                  `json:"totalHours"`
	Date          string                   `json:"date"`
	ContactEmail  string                   `json:"contactEmail"`
	ContactName   string                   `json:"contactName"`
	Description   string                   `json:"description"`
	Status        models.HourRequestStatus `json:"status"`
	Student       *UserBasicResponse       `json:"student,omitempty"`
	ReviewedBy    *int64                   `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time               `json:"reviewedAt,omitempty"`
	ReviewNote    string                   `json:"reviewNote,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
}

// NewHourRequestResponse maps an hour request model.
func NewHourRequestResponse(r *models.HourRequest, student *models.User) *HourRequestResponse {
	return &HourRequestResponse{
		ID:            r.ID,
		CommunityID:   r.CommunityID,
		CommunityName: r.CommunityName,
		OpportunityID: r.OpportunityID,
		ActivityName:  r.ActivityName,
		Hours:         r.Hours,
		Minutes:       r.Minutes,
		TotalHours:    r.Amount(),
		Date:          r.ActivityDate,
		ContactEmail:  r.ContactEmail,
		ContactName:   r.ContactName,
		Description:   r.Description,
		Status:        r.Status,
		Student:       NewUserBasicResponse(student),
		ReviewedBy:    r.ReviewedBy,
		ReviewedAt:    r.ReviewedAt,
		ReviewNote:    r.ReviewNote,
		CreatedAt:     r.CreatedAt,
	}
}

// HourRequestListResponse is a page of hour requests.
type HourRequestListResponse struct {
	Requests   []*HourRequestResponse `json:"requests"`
	Pagination PaginationInfo         `json:"pagination"`
}

// SendEmailRequest is the authenticated free-form email call.
type SendEmailRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=300"`
	Message string `json:"message" binding:"required"`
}

// SendEmailResponse reports whether the email was handed to the transport.
type SendEmailResponse struct {
	Success bool `json:"success"`
}
