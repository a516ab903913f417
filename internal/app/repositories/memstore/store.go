// Package memstore is an in-process implementation of repositories.Store.
// It backs the "memory" database driver and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/repositories"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/helpers"
)

type signupKey struct {
	opportunityID int64
	userID        int64
}

type state struct {
	seq           int64
	users         map[int64]models.User
	tokens        map[string]models.RefreshToken
	communities   map[int64]models.Community
	memberships   map[int64]models.CommunityMembership
	opportunities map[int64]models.Opportunity
	signups       map[signupKey]models.OpportunitySignup
	hourRequests  map[int64]models.HourRequest
}

func newState() *state {
	return &state{
		users:         map[int64]models.User{},
		tokens:        map[string]models.RefreshToken{},
		communities:   map[int64]models.Community{},
		memberships:   map[int64]models.CommunityMembership{},
		opportunities: map[int64]models.Opportunity{},
		signups:       map[signupKey]models.OpportunitySignup{},
		hourRequests:  map[int64]models.HourRequest{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.communities {
		c.communities[k] = v
	}
	for k, v := range s.memberships {
		c.memberships[k] = v
	}
	for k, v := range s.opportunities {
		c.opportunities[k] = copyOpportunity(v)
	}
	for k, v := range s.signups {
		c.signups[k] = v
	}
	for k, v := range s.hourRequests {
		c.hourRequests[k] = v
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store keeps every table in memory behind one mutex. A transaction holds the
// mutex for its whole duration, so units of work are fully serialized.
type Store struct {
	mu   *sync.Mutex
	data **state
	inTx bool
	now  func() time.Time
}

var _ repositories.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	data := newState()
	return &Store{mu: &sync.Mutex{}, data: &data, now: time.Now}
}

// lock runs fn against the current state, taking the mutex unless the caller
// already holds it through WithTx.
func (s *Store) lock(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(*s.data)
}

func (s *Store) Users() repositories.UserRepository { return userRepo{s} }
func (s *Store) Tokens() repositories.TokenRepository { return tokenRepo{s} }
func (s *Store) Communities() repositories.CommunityRepository { return communityRepo{s} }
func (s *Store) Memberships() repositories.MembershipRepository { return membershipRepo{s} }
func (s *Store) Opportunities() repositories.OpportunityRepository { return opportunityRepo{s} }
func (s *Store) Signups() repositories.SignupRepository { return signupRepo{s} }
func (s *Store) HourRequests() repositories.HourRequestRepository { return hourRequestRepo{s} }

// WithTx snapshots the state and restores it when fn fails or panics.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.data).clone()
	defer func() {
		if p := recover(); p != nil {
			*s.data = snapshot
			panic(p)
		}
		if err != nil {
			*s.data = snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &Store{mu: s.mu, data: s.data, inTx: true, now: s.now})
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func paginate[T any](items []T, page repositories.ListParams) []T {
	return helpers.Window(items, page.Offset, page.Limit)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// users

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	return r.s.lock(func(st *state) error {
		email := strings.ToLower(user.Email)
		for _, u := range st.users {
			if u.Email == email {
				return apperrors.ErrEmailAlreadyExists
			}
			if user.GoogleID != nil && u.GoogleID != nil && *u.GoogleID == *user.GoogleID {
				return apperrors.NewConflictError("google account is already linked")
			}
		}
		now := r.s.now()
		user.ID = st.nextID()
		user.Email = email
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) find(match func(models.User) bool) (*models.User, error) {
	var out *models.User
	err := r.s.lock(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				out = &u
				return nil
			}
		}
		return apperrors.ErrUserNotFound
	})
	return out, err
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r userRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (r userRepo) GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	out := []*models.User{}
	err := r.s.lock(func(st *state) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				u := u
				out = append(out, &u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r userRepo) update(id int64, fn func(u *models.User)) error {
	return r.s.lock(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		fn(&u)
		u.UpdatedAt = r.s.now()
		st.users[id] = u
		return nil
	})
}

func (r userRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	return r.update(user.ID, func(u *models.User) {
		u.FirstName = user.FirstName
		u.LastName = user.LastName
		u.PhoneNumber = user.PhoneNumber
	})
}

func (r userRepo) UpdateProfilePhoto(ctx context.Context, id int64, url *string) error {
	return r.update(id, func(u *models.User) { u.ProfilePhotoURL = url })
}

func (r userRepo) LinkGoogleID(ctx context.Context, id int64, googleID string) error {
	return r.update(id, func(u *models.User) { u.GoogleID = &googleID })
}

func (r userRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.update(id, func(u *models.User) { u.LastLoginAt = &at })
}

func (r userRepo) ListByRole(ctx context.Context, role models.RoleType, search string, page repositories.ListParams) ([]*models.User, int, error) {
	out := []*models.User{}
	search = strings.TrimSpace(search)
	err := r.s.lock(func(st *state) error {
		for _, u := range st.users {
			if u.RoleType != role {
				continue
			}
			if search != "" && !containsFold(u.FirstName, search) && !containsFold(u.LastName, search) && !containsFold(u.Email, search) {
				continue
			}
			u := u
			out = append(out, &u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return paginate(out, page), len(out), err
}

// refresh tokens

type tokenRepo struct{ s *Store }

func (r tokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.s.lock(func(st *state) error {
		if _, ok := st.tokens[token.Token]; ok {
			return apperrors.ErrTokenInvalid
		}
		token.CreatedAt = r.s.now()
		st.tokens[token.Token] = *token
		return nil
	})
}

func (r tokenRepo) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	var out *models.RefreshToken
	err := r.s.lock(func(st *state) error {
		t, ok := st.tokens[token]
		if !ok {
			return apperrors.ErrTokenNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r tokenRepo) Revoke(ctx context.Context, token string) error {
	return r.s.lock(func(st *state) error {
		t, ok := st.tokens[token]
		if !ok {
			return apperrors.ErrTokenNotFound
		}
		t.Revoked = true
		st.tokens[token] = t
		return nil
	})
}

func (r tokenRepo) RevokeAllForUser(ctx context.Context, userID int64) error {
	return r.s.lock(func(st *state) error {
		for k, t := range st.tokens {
			if t.UserID == userID {
				t.Revoked = true
				st.tokens[k] = t
			}
		}
		return nil
	})
}

// communities

type communityRepo struct{ s *Store }

func (r communityRepo) Create(ctx context.Context, c *models.Community) error {
	return r.s.lock(func(st *state) error {
		now := r.s.now()
		c.ID = st.nextID()
		c.CreatedAt, c.UpdatedAt = now, now
		st.communities[c.ID] = *c
		return nil
	})
}

func (r communityRepo) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	var out *models.Community
	err := r.s.lock(func(st *state) error {
		c, ok := st.communities[id]
		if !ok {
			return apperrors.ErrCommunityNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r communityRepo) Update(ctx context.Context, c *models.Community) error {
	return r.s.lock(func(st *state) error {
		existing, ok := st.communities[c.ID]
		if !ok {
			return apperrors.ErrCommunityNotFound
		}
		existing.Name = c.Name
		existing.Description = c.Description
		existing.HourGoal = c.HourGoal
		existing.EndDate = c.EndDate
		existing.UpdatedAt = r.s.now()
		st.communities[c.ID] = existing
		c.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

// Delete cascades the way the foreign keys in the SQL schema do.
func (r communityRepo) Delete(ctx context.Context, id int64) error {
	return r.s.lock(func(st *state) error {
		if _, ok := st.communities[id]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		delete(st.communities, id)
		for k, m := range st.memberships {
			if m.CommunityID == id {
				delete(st.memberships, k)
			}
		}
		for k, o := range st.opportunities {
			if o.CommunityID == id {
				st.deleteOpportunity(k)
			}
		}
		for k, h := range st.hourRequests {
			if h.CommunityID == id {
				delete(st.hourRequests, k)
			}
		}
		return nil
	})
}

func (r communityRepo) List(ctx context.Context, filter repositories.CommunityFilter) ([]*models.Community, int, error) {
	out := []*models.Community{}
	search := strings.TrimSpace(filter.Search)
	err := r.s.lock(func(st *state) error {
		for _, c := range st.communities {
			if filter.CreatedBy != nil && c.CreatedBy != *filter.CreatedBy {
				continue
			}
			if search != "" && !containsFold(c.Name, search) && !containsFold(c.Description, search) {
				continue
			}
			c := c
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.ListParams), len(out), err
}

// memberships

type membershipRepo struct{ s *Store }

func (st *state) findMembership(communityID, userID int64) (models.CommunityMembership, bool) {
	for _, m := range st.memberships {
		if m.CommunityID == communityID && m.UserID == userID {
			return m, true
		}
	}
	return models.CommunityMembership{}, false
}

func (r membershipRepo) Get(ctx context.Context, communityID, userID int64) (*models.CommunityMembership, error) {
	var out *models.CommunityMembership
	err := r.s.lock(func(st *state) error {
		m, ok := st.findMembership(communityID, userID)
		if !ok {
			return apperrors.ErrNotMember
		}
		out = &m
		return nil
	})
	return out, err
}

func (r membershipRepo) Add(ctx context.Context, m *models.CommunityMembership) error {
	return r.s.lock(func(st *state) error {
		if _, ok := st.findMembership(m.CommunityID, m.UserID); ok {
			return apperrors.ErrAlreadyJoined
		}
		m.ID = st.nextID()
		m.JoinedAt = r.s.now()
		st.memberships[m.ID] = *m
		return nil
	})
}

func (r membershipRepo) Remove(ctx context.Context, communityID, userID int64) (bool, error) {
	removed := false
	err := r.s.lock(func(st *state) error {
		if m, ok := st.findMembership(communityID, userID); ok {
			delete(st.memberships, m.ID)
			removed = true
		}
		return nil
	})
	return removed, err
}

func (r membershipRepo) list(match func(models.CommunityMembership) bool) ([]*models.CommunityMembership, error) {
	out := []*models.CommunityMembership{}
	err := r.s.lock(func(st *state) error {
		for _, m := range st.memberships {
			if match(m) {
				m := m
				out = append(out, &m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r membershipRepo) ListByUser(ctx context.Context, userID int64) ([]*models.CommunityMembership, error) {
	return r.list(func(m models.CommunityMembership) bool { return m.UserID == userID })
}

func (r membershipRepo) ListByCommunity(ctx context.Context, communityID int64) ([]*models.CommunityMembership, error) {
	return r.list(func(m models.CommunityMembership) bool { return m.CommunityID == communityID })
}

func (r membershipRepo) AddHours(ctx context.Context, communityID, userID int64, hours float64) (float64, error) {
	var total float64
	err := r.s.lock(func(st *state) error {
		m, ok := st.findMembership(communityID, userID)
		if !ok {
			return apperrors.ErrNotMember
		}
		if m.HoursLogged+hours < 0 {
			return apperrors.NewBadRequestError("hours_logged cannot become negative")
		}
		m.HoursLogged += hours
		st.memberships[m.ID] = m
		total = m.HoursLogged
		return nil
	})
	return total, err
}

func (r membershipRepo) RenameCommunity(ctx context.Context, communityID int64, name string) error {
	return r.s.lock(func(st *state) error {
		for k, m := range st.memberships {
			if m.CommunityID == communityID {
				m.CommunityName = name
				st.memberships[k] = m
			}
		}
		return nil
	})
}

// opportunities

type opportunityRepo struct{ s *Store }

func copyOpportunity(o models.Opportunity) models.Opportunity {
	if o.Location != nil {
		loc := *o.Location
		o.Location = &loc
	}
	return o
}

func (st *state) deleteOpportunity(id int64) {
	delete(st.opportunities, id)
	for k := range st.signups {
		if k.opportunityID == id {
			delete(st.signups, k)
		}
	}
	for k, h := range st.hourRequests {
		if h.OpportunityID != nil && *h.OpportunityID == id {
			h.OpportunityID = nil
			st.hourRequests[k] = h
		}
	}
}

func (r opportunityRepo) Create(ctx context.Context, o *models.Opportunity) error {
	return r.s.lock(func(st *state) error {
		if _, ok := st.communities[o.CommunityID]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		now := r.s.now()
		o.ID = st.nextID()
		o.CreatedAt, o.UpdatedAt = now, now
		st.opportunities[o.ID] = copyOpportunity(*o)
		return nil
	})
}

func (r opportunityRepo) GetByID(ctx context.Context, id int64) (*models.Opportunity, error) {
	var out *models.Opportunity
	err := r.s.lock(func(st *state) error {
		o, ok := st.opportunities[id]
		if !ok {
			return apperrors.ErrOpportunityNotFound
		}
		o = copyOpportunity(o)
		out = &o
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock here: a transaction already holds the store mutex.
func (r opportunityRepo) GetForUpdate(ctx context.Context, id int64) (*models.Opportunity, error) {
	return r.GetByID(ctx, id)
}

func (r opportunityRepo) Update(ctx context.Context, o *models.Opportunity) error {
	return r.s.lock(func(st *state) error {
		existing, ok := st.opportunities[o.ID]
		if !ok {
			return apperrors.ErrOpportunityNotFound
		}
		if o.MaxSignUps < existing.CurrentSignUps {
			return apperrors.ErrCapacityBelowCount
		}
		existing.Name = o.Name
		existing.Description = o.Description
		existing.Date = o.Date
		existing.Time = o.Time
		existing.HourValue = o.HourValue
		existing.MaxSignUps = o.MaxSignUps
		existing.ContactEmail = o.ContactEmail
		existing.Location = o.Location
		existing.UpdatedAt = r.s.now()
		st.opportunities[o.ID] = copyOpportunity(existing)
		o.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r opportunityRepo) SetSignUps(ctx context.Context, id int64, count int) error {
	return r.s.lock(func(st *state) error {
		o, ok := st.opportunities[id]
		if !ok {
			return apperrors.ErrOpportunityNotFound
		}
		if count < 0 || count > o.MaxSignUps {
			return apperrors.ErrOpportunityFull
		}
		o.CurrentSignUps = count
		o.UpdatedAt = r.s.now()
		st.opportunities[id] = o
		return nil
	})
}

func (r opportunityRepo) Delete(ctx context.Context, id int64) error {
	return r.s.lock(func(st *state) error {
		if _, ok := st.opportunities[id]; !ok {
			return apperrors.ErrOpportunityNotFound
		}
		st.deleteOpportunity(id)
		return nil
	})
}

func (r opportunityRepo) List(ctx context.Context, filter repositories.OpportunityFilter) ([]*models.Opportunity, int, error) {
	out := []*models.Opportunity{}
	err := r.s.lock(func(st *state) error {
		for _, o := range st.opportunities {
			if filter.CommunityID != nil && o.CommunityID != *filter.CommunityID {
				continue
			}
			if filter.CreatedBy != nil && o.CreatedBy != *filter.CreatedBy {
				continue
			}
			if filter.MemberOf != nil {
				if _, ok := st.findMembership(o.CommunityID, *filter.MemberOf); !ok {
					continue
				}
			}
			if filter.SignedUpBy != nil {
				if _, ok := st.signups[signupKey{o.ID, *filter.SignedUpBy}]; !ok {
					continue
				}
			}
			o := copyOpportunity(o)
			out = append(out, &o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return paginate(out, filter.ListParams), len(out), err
}

// sign-ups

type signupRepo struct{ s *Store }

func (r signupRepo) Exists(ctx context.Context, opportunityID, userID int64) (bool, error) {
	exists := false
	err := r.s.lock(func(st *state) error {
		_, exists = st.signups[signupKey{opportunityID, userID}]
		return nil
	})
	return exists, err
}

func (r signupRepo) Add(ctx context.Context, signup *models.OpportunitySignup) error {
	return r.s.lock(func(st *state) error {
		key := signupKey{signup.OpportunityID, signup.UserID}
		if _, ok := st.signups[key]; ok {
			return apperrors.ErrAlreadyJoined
		}
		if _, ok := st.opportunities[signup.OpportunityID]; !ok {
			return apperrors.ErrOpportunityNotFound
		}
		signup.JoinedAt = r.s.now()
		st.signups[key] = *signup
		return nil
	})
}

func (r signupRepo) Remove(ctx context.Context, opportunityID, userID int64) (bool, error) {
	removed := false
	err := r.s.lock(func(st *state) error {
		key := signupKey{opportunityID, userID}
		if _, removed = st.signups[key]; removed {
			delete(st.signups, key)
		}
		return nil
	})
	return removed, err
}

func (r signupRepo) ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.OpportunitySignup, error) {
	out := []*models.OpportunitySignup{}
	err := r.s.lock(func(st *state) error {
		for k, s := range st.signups {
			if k.opportunityID == opportunityID {
				s := s
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, err
}

func (r signupRepo) ListOpportunityIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.s.lock(func(st *state) error {
		for k := range st.signups {
			if k.userID == userID {
				ids = append(ids, k.opportunityID)
			}
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, err
}

// hour requests

type hourRequestRepo struct{ s *Store }

func (r hourRequestRepo) Create(ctx context.Context, h *models.HourRequest) error {
	return r.s.lock(func(st *state) error {
		if h.Hours <= 0 || h.Minutes < 0 || h.Minutes > 59 {
			return apperrors.NewBadRequestError("hours out of range")
		}
		if _, ok := st.communities[h.CommunityID]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		if h.OpportunityID != nil {
			if _, ok := st.opportunities[*h.OpportunityID]; !ok {
				return apperrors.ErrOpportunityNotFound
			}
		}
		if h.Status == "" {
			h.Status = models.HourRequestPending
		}
		h.ID = st.nextID()
		h.CreatedAt = r.s.now()
		st.hourRequests[h.ID] = *h
		return nil
	})
}

func (r hourRequestRepo) GetByID(ctx context.Context, id int64) (*models.HourRequest, error) {
	var out *models.HourRequest
	err := r.s.lock(func(st *state) error {
		h, ok := st.hourRequests[id]
		if !ok {
			return apperrors.ErrHourRequestNotFound
		}
		out = &h
		return nil
	})
	return out, err
}

func (r hourRequestRepo) GetForUpdate(ctx context.Context, id int64) (*models.HourRequest, error) {
	return r.GetByID(ctx, id)
}

func (r hourRequestRepo) SetReview(ctx context.Context, id int64, status models.HourRequestStatus, reviewerID int64, note string, at time.Time) error {
	return r.s.lock(func(st *state) error {
		h, ok := st.hourRequests[id]
		if !ok {
			return apperrors.ErrHourRequestNotFound
		}
		h.Status = status
		h.ReviewedBy = &reviewerID
		h.ReviewedAt = &at
		h.ReviewNote = note
		st.hourRequests[id] = h
		return nil
	})
}

func (r hourRequestRepo) List(ctx context.Context, filter repositories.HourRequestFilter) ([]*models.HourRequest, int, error) {
	out := []*models.HourRequest{}
	err := r.s.lock(func(st *state) error {
		for _, h := range st.hourRequests {
			if filter.UserID != nil && h.UserID != *filter.UserID {
				continue
			}
			if filter.CommunityID != nil && h.CommunityID != *filter.CommunityID {
				continue
			}
			if filter.ReviewableBy != nil {
				c, ok := st.communities[h.CommunityID]
				if !ok || c.CreatedBy != *filter.ReviewableBy {
					continue
				}
			}
			if filter.Status != nil && h.Status != *filter.Status {
				continue
			}
			h := h
			out = append(out, &h)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, filter.ListParams), len(out), err
}
