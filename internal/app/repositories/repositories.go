package repositories

import (
	"context"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
)

// ListParams bounds a list query. Limit <= 0 means no limit.
type ListParams struct {
	Limit  int
	Offset int
}

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateProfilePhoto(ctx context.Context, id int64, url *string) error
	LinkGoogleID(ctx context.Context, id int64, googleID string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	ListByRole(ctx context.Context, role models.RoleType, search string, page ListParams) ([]*models.User, int, error)
}

// TokenRepository persists refresh tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// CommunityFilter narrows a community listing.
type CommunityFilter struct {
	CreatedBy *int64
	Search    string
	ListParams
}

// CommunityRepository persists communities.
type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id int64) (*models.Community, error)
	Update(ctx context.Context, community *models.Community) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter CommunityFilter) ([]*models.Community, int, error)
}

// MembershipRepository persists the communities a user has joined.
type MembershipRepository interface {
	Get(ctx context.Context, communityID, userID int64) (*models.CommunityMembership, error)
	// Add returns apperrors.ErrAlreadyJoined when the pair already exists.
	Add(ctx context.Context, membership *models.CommunityMembership) error
	Remove(ctx context.Context, communityID, userID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.CommunityMembership, error)
	ListByCommunity(ctx context.Context, communityID int64) ([]*models.CommunityMembership, error)
	// AddHours atomically increments hours_logged and returns the new total.
	AddHours(ctx context.Context, communityID, userID int64, hours float64) (float64, error)
	RenameCommunity(ctx context.Context, communityID int64, name string) error
}

// OpportunityFilter narrows an opportunity listing. All set fields must match.
type OpportunityFilter struct {
	CommunityID *int64
	// MemberOf keeps opportunities whose community the user has joined.
	MemberOf *int64
	// SignedUpBy keeps opportunities the user has signed up for.
	SignedUpBy *int64
	CreatedBy  *int64
	ListParams
}

// OpportunityRepository persists opportunities and their sign-up counter.
type OpportunityRepository interface {
	Create(ctx context.Context, opp *models.Opportunity) error
	GetByID(ctx context.Context, id int64) (*models.Opportunity, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Opportunity, error)
	Update(ctx context.Context, opp *models.Opportunity) error
	SetSignUps(ctx context.Context, id int64, count int) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter OpportunityFilter) ([]*models.Opportunity, int, error)
}

// SignupRepository persists opportunity sign-ups.
type SignupRepository interface {
	Exists(ctx context.Context, opportunityID, userID int64) (bool, error)
	Add(ctx context.Context, signup *models.OpportunitySignup) error
	Remove(ctx context.Context, opportunityID, userID int64) (bool, error)
	ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.OpportunitySignup, error)
	ListOpportunityIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

// HourRequestFilter narrows an hour request listing.
type HourRequestFilter struct {
	UserID      *int64
	CommunityID *int64
	// ReviewableBy keeps requests in communities created by this teacher.
	ReviewableBy *int64
	Status       *models.HourRequestStatus
	ListParams
}

// HourRequestRepository persists hour verification requests.
type HourRequestRepository interface {
	Create(ctx context.Context, req *models.HourRequest) error
	GetByID(ctx context.Context, id int64) (*models.HourRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*models.HourRequest, error)
	SetReview(ctx context.Context, id int64, status models.HourRequestStatus, reviewerID int64, note string, at time.Time) error
	List(ctx context.Context, filter HourRequestFilter) ([]*models.HourRequest, int, error)
}

// Store groups the repositories and runs units of work across them.
type Store interface {
	Users() UserRepository
	Tokens() TokenRepository
	Communities() CommunityRepository
	Memberships() MembershipRepository
	Opportunities() OpportunityRepository
	Signups() SignupRepository
	HourRequests() HourRequestRepository

	// WithTx runs fn in a transaction. Repositories reached through the Store
	// handed to fn share it; fn returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
}
