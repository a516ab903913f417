package models

import "time"

// Location is an optional geocoded place for an opportunity.
type Location struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Opportunity is a scheduled volunteer activity with a sign-up capacity.
type Opportunity struct {
	ID             int64     `json:"id" db:"id"`
	CommunityID    int64     `json:"communityId" db:"community_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	Date           string    `json:"date" db:"date"`
	Time           string    `json:"time" db:"time"`
	HourValue      float64   `json:"hourValue" db:"hour_value"`
	CreatedBy      int64     `json:"createdBy" db:"created_by"`
	CurrentSignUps int       `json:"currentSignUps" db:"current_sign_ups"`
	MaxSignUps     int       `json:"maxSignUps" db:"max_sign_ups"`
	ContactEmail   string    `json:"contactEmail,omitempty" db:"contact_email"`
	Location       *Location `json:"location,omitempty"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// IsFull reports whether no seat is left.
func (o *Opportunity) IsFull() bool {
	return o.CurrentSignUps >= o.MaxSignUps
}

// OpportunitySignup records that a user joined an opportunity.
type OpportunitySignup struct {
	OpportunityID int64     `json:"opportunityId" db:"opportunity_id"`
	UserID        int64     `json:"userId" db:"user_id"`
	JoinedAt      time.Time `json:"joinedAt" db:"joined_at"`
}
