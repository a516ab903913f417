package models

import "time"

// Community is a teacher-defined group with a collective hour goal.
type Community struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"communityName" db:"name"`
	Description string    `json:"description" db:"description"`
	HourGoal    float64   `json:"hourGoal" db:"hour_goal"`
	CreatedBy   int64     `json:"createdBy" db:"created_by"`
	EndDate     time.Time `json:"endDate" db:"end_date"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// CommunityMembership is one entry of a user's joined communities.
type CommunityMembership struct {
	ID            int64     `json:"id" db:"id"`
	CommunityID   int64     `json:"communityId" db:"community_id"`
	UserID        int64     `json:"userId" db:"user_id"`
	CommunityName string    `json:"communityName" db:"community_name"`
	HoursLogged   float64   `json:"hoursLogged" db:"hours_logged"`
	JoinedAt      time.Time `json:"joinedAt" db:"joined_at"`
}

// Progress returns the fraction of goal reached, capped at 1.
func Progress(hoursLogged, hourGoal float64) float64 {
	if hourGoal <= 0 || hoursLogged <= 0 {
		return 0
	}
	if p := hoursLogged / hourGoal; p < 1 {
		return p
	}
	return 1
}
