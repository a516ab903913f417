package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/repositories"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// CommunityService defines the interface for community operations
type CommunityService interface {
	CreateCommunity(ctx context.Context, session Session, req *dto.CreateCommunityRequest) (*dto.CommunityResponse, error)
	UpdateCommunity(ctx context.Context, session Session, id int64, req *dto.UpdateCommunityRequest) (*dto.CommunityResponse, error)
	DeleteCommunity(ctx context.Context, session Session, id int64) error
	GetCommunity(ctx context.Context, session Session, id int64) (*dto.CommunityResponse, error)
	ListCommunities(ctx context.Context, session Session, filter *dto.CommunityFilterRequest) (*dto.CommunityListResponse, error)
	JoinCommunity(ctx context.Context, session Session, id int64) (*dto.MembershipResponse, error)
	LeaveCommunity(ctx context.Context, session Session, id int64) error
	ListMemberships(ctx context.Context, session Session) ([]*dto.MembershipResponse, error)
	ListMembers(ctx context.Context, session Session, id int64) ([]*dto.CommunityMemberResponse, error)
}

// communityServiceImpl implements CommunityService
type communityServiceImpl struct {
	store  repositories.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewCommunityService creates a new CommunityService
func NewCommunityService(store repositories.Store, logger zerolog.Logger) CommunityService {
	return &communityServiceImpl{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *communityServiceImpl) validate(req *dto.CreateCommunityRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("communityName", "communityName is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("description", "description is required")
	}
	if req.HourGoal <= 0 {
		return apperrors.NewValidationError("hourGoal", "hourGoal must be greater than 0")
	}
	if req.EndDate.IsZero() {
		return apperrors.NewValidationError("endDate", "endDate is required")
	}
	return nil
}

func (s *communityServiceImpl) checkEndDate(end time.Time) error {
	if !end.After(s.now()) {
		return apperrors.NewValidationError("endDate", "endDate must be in the future")
	}
	return nil
}

// owned loads a community and checks the caller created it.
func (s *communityServiceImpl) owned(ctx context.Context, store repositories.Store, session Session, id int64) (*models.Community, error) {
	if err := session.requireTeacher(); err != nil {
		return nil, err
	}
	community, err := store.Communities().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if community.CreatedBy != session.UserID {
		return nil, apperrors.NewForbiddenError("only the community owner can perform this action")
	}
	return community, nil
}

// CreateCommunity creates a community owned by the calling teacher.
func (s *communityServiceImpl) CreateCommunity(ctx context.Context, session Session, req *dto.CreateCommunityRequest) (*dto.CommunityResponse, error) {
	if err := session.requireTeacher(); err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.checkEndDate(req.EndDate); err != nil {
		return nil, err
	}

	community := &models.Community{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		HourGoal:    req.HourGoal,
		EndDate:     req.EndDate,
		CreatedBy:   session.UserID,
	}
	if err := s.store.Communities().Create(ctx, community); err != nil {
		return nil, fmt.Errorf("error creating community: %w", err)
	}

	s.logger.Info().
		Int64("communityID", community.ID).
		Int64("teacherID", session.UserID).
		Msg("Community created")

	return dto.NewCommunityResponse(community), nil
}

// UpdateCommunity replaces the editable fields. The name snapshot kept on
// memberships follows the new name. A past end date may be kept as is but
// not newly set.
func (s *communityServiceImpl) UpdateCommunity(ctx context.Context, session Session, id int64, req *dto.UpdateCommunityRequest) (*dto.CommunityResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var updated *models.Community
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		community, err := s.owned(ctx, tx, session, id)
		if err != nil {
			return err
		}
		if !req.EndDate.Equal(community.EndDate) {
			if err := s.checkEndDate(req.EndDate); err != nil {
				return err
			}
		}

		renamed := community.Name != strings.TrimSpace(req.Name)
		community.Name = strings.TrimSpace(req.Name)
		community.Description = strings.TrimSpace(req.Description)
		community.HourGoal = req.HourGoal
		community.EndDate = req.EndDate

		if err := tx.Communities().Update(ctx, community); err != nil {
			return err
		}
		if renamed {
			if err := tx.Memberships().RenameCommunity(ctx, id, community.Name); err != nil {
				return err
			}
		}
		updated = community
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewCommunityResponse(updated), nil
}

// DeleteCommunity removes a community with its memberships, opportunities and requests.
func (s *communityServiceImpl) DeleteCommunity(ctx context.Context, session Session, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := s.owned(ctx, tx, session, id); err != nil {
			return err
		}
		if err := tx.Communities().Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info().Int64("communityID", id).Int64("teacherID", session.UserID).Msg("Community deleted")
		return nil
	})
}

// GetCommunity returns one community with the caller's membership flag.
func (s *communityServiceImpl) GetCommunity(ctx context.Context, session Session, id int64) (*dto.CommunityResponse, error) {
	community, err := s.store.Communities().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := dto.NewCommunityResponse(community)
	if creator, err := s.store.Users().GetByID(ctx, community.CreatedBy); err == nil {
		resp.Creator = dto.NewUserBasicResponse(creator)
	}

	if _, err := s.store.Memberships().Get(ctx, id, session.UserID); err == nil {
		resp.Joined = true
	} else if !errors.Is(err, apperrors.ErrNotMember) {
		return nil, err
	}
	return resp, nil
}

// ListCommunities lists every community. With Mine set a teacher sees the
// communities they created and a student the ones they joined.
func (s *communityServiceImpl) ListCommunities(ctx context.Context, session Session, filter *dto.CommunityFilterRequest) (*dto.CommunityListResponse, error) {
	joined, err := s.joinedSet(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)

	if filter.Mine && !session.IsTeacher() {
		return s.listJoined(ctx, session, filter, joined, offset, limit)
	}

	f := repositories.CommunityFilter{
		Search:     strings.TrimSpace(filter.Search),
		ListParams: repositories.ListParams{Limit: limit, Offset: offset},
	}
	if filter.Mine {
		f.CreatedBy = &session.UserID
	}

	communities, total, err := s.store.Communities().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("error listing communities: %w", err)
	}

	resp := &dto.CommunityListResponse{
		Communities: make([]*dto.CommunityResponse, 0, len(communities)),
		Pagination:  helpers.NewPaginationInfo(total, filter.Page, limit),
	}
	for _, c := range communities {
		r := dto.NewCommunityResponse(c)
		r.Joined = joined[c.ID]
		resp.Communities = append(resp.Communities, r)
	}
	return resp, nil
}

func (s *communityServiceImpl) listJoined(ctx context.Context, session Session, filter *dto.CommunityFilterRequest, joined map[int64]bool, offset, limit int) (*dto.CommunityListResponse, error) {
	memberships, err := s.store.Memberships().ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	all := make([]*dto.CommunityResponse, 0, len(memberships))
	for _, m := range memberships {
		c, err := s.store.Communities().GetByID(ctx, m.CommunityID)
		if err != nil {
			if errors.Is(err, apperrors.ErrCommunityNotFound) {
				continue
			}
			return nil, err
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		r := dto.NewCommunityResponse(c)
		r.Joined = joined[c.ID]
		all = append(all, r)
	}

	return &dto.CommunityListResponse{
		Communities: helpers.Window(all, offset, limit),
		Pagination:  helpers.NewPaginationInfo(len(all), filter.Page, limit),
	}, nil
}

func (s *communityServiceImpl) joinedSet(ctx context.Context, userID int64) (map[int64]bool, error) {
	memberships, err := s.store.Memberships().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading memberships: %w", err)
	}
	joined := make(map[int64]bool, len(memberships))
	for _, m := range memberships {
		joined[m.CommunityID] = true
	}
	return joined, nil
}

// JoinCommunity adds the community to the caller's joined list. A second
// join is rejected and changes nothing.
func (s *communityServiceImpl) JoinCommunity(ctx context.Context, session Session, id int64) (*dto.MembershipResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}

	var (
		community  *models.Community
		membership *models.CommunityMembership
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		var err error
		community, err = tx.Communities().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Users().GetByID(ctx, session.UserID); err != nil {
			return err
		}

		_, err = tx.Memberships().Get(ctx, id, session.UserID)
		switch {
		case err == nil:
			return apperrors.ErrAlreadyJoined
		case !errors.Is(err, apperrors.ErrNotMember):
			return err
		}

		membership = &models.CommunityMembership{
			CommunityID:   community.ID,
			UserID:        session.UserID,
			CommunityName: community.Name,
		}
		return tx.Memberships().Add(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("communityID", id).Int64("userID", session.UserID).Msg("User joined community")
	return newMembershipResponse(membership, community), nil
}

// LeaveCommunity removes the membership. Sign-ups and pending requests in the
// community are left alone.
func (s *communityServiceImpl) LeaveCommunity(ctx context.Context, session Session, id int64) error {
	if err := session.requireUser(); err != nil {
		return err
	}
	removed, err := s.store.Memberships().Remove(ctx, id, session.UserID)
	if err != nil {
		return fmt.Errorf("error leaving community: %w", err)
	}
	if !removed {
		return apperrors.ErrNotMember
	}
	s.logger.Info().Int64("communityID", id).Int64("userID", session.UserID).Msg("User left community")
	return nil
}

// ListMemberships returns the caller's joined communities in join order with progress.
func (s *communityServiceImpl) ListMemberships(ctx context.Context, session Session) ([]*dto.MembershipResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	memberships, err := s.store.Memberships().ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading memberships: %w", err)
	}

	out := make([]*dto.MembershipResponse, 0, len(memberships))
	for _, m := range memberships {
		community, err := s.store.Communities().GetByID(ctx, m.CommunityID)
		if err != nil {
			if errors.Is(err, apperrors.ErrCommunityNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, newMembershipResponse(m, community))
	}
	return out, nil
}

// ListMembers returns the students of a community with their progress. Owner only.
func (s *communityServiceImpl) ListMembers(ctx context.Context, session Session, id int64) ([]*dto.CommunityMemberResponse, error) {
	community, err := s.owned(ctx, s.store, session, id)
	if err != nil {
		return nil, err
	}

	memberships, err := s.store.Memberships().ListByCommunity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading members: %w", err)
	}

	ids := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	users, err := s.store.Users().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading member profiles: %w", err)
	}
	byID := make(map[int64]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]*dto.CommunityMemberResponse, 0, len(memberships))
	for _, m := range memberships {
		u, ok := byID[m.UserID]
		if !ok {
			continue
		}
		out = append(out, &dto.CommunityMemberResponse{
			User:        dto.NewUserBasicResponse(u),
			HoursLogged: m.HoursLogged,
			Progress:    models.Progress(m.HoursLogged, community.HourGoal),
			JoinedAt:    m.JoinedAt,
		})
	}
	return out, nil
}

func newMembershipResponse(m *models.CommunityMembership, c *models.Community) *dto.MembershipResponse {
	return &dto.MembershipResponse{
		CommunityID:   m.CommunityID,
		CommunityName: m.CommunityName,
		HoursLogged:   m.HoursLogged,
		HourGoal:      c.HourGoal,
		Progress:      models.Progress(m.HoursLogged, c.HourGoal),
		EndDate:       c.EndDate,
		JoinedAt:      m.JoinedAt,
	}
}
