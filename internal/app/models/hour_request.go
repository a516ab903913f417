package models

import "time"

// HourRequest is a logged activity awaiting, or past, teacher review.
type HourRequest struct {
	ID            int64             `json:"id" db:"id"`
	UserID        int64             `json:"userId" db:"user_id"`
	CommunityID   int64             `json:"communityId" db:"community_id"`
	CommunityName string            `json:"communityName" db:"community_name"`
	OpportunityID *int64            `json:"opportunityId,omitempty" db:"opportunity_id"`
	ActivityName  string            `json:"activityName" db:"activity_name"`
	Hours         float64           `json:"hours" db:"hours"`
	Minutes       int               `json:"minutes" db:"minutes"`
	ActivityDate  string            `json:"date" db:"activity_date"`
	ContactEmail  string            `json:"contactEmail" db:"contact_email"`
	ContactName   string            `json:"contactName" db:"contact_name"`
	Description   string            `json:"description" db:"description"`
	Status        HourRequestStatus `json:"status" db:"status"`
	ReviewedBy    *int64            `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt    *time.Time        `json:"reviewedAt,omitempty" db:"reviewed_at"`
	ReviewNote    string            `json:"reviewNote,omitempty" db:"review_note"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
}

// Amount is the logged time in hours, e.g. 2h30m is 2.5.
func (r *HourRequest) Amount() float64 {
	return r.Hours + float64(r.Minutes)/60
}
