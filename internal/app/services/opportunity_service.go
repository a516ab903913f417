package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/repositories"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/helphive/servicehours/internal/pkg/geo"
	"github.com/helphive/servicehours/internal/pkg/helpers"
	"github.com/helphive/servicehours/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

// Sign-up actions recorded in metrics.
const (
	signupJoin   = "join"
	signupCancel = "cancel"
	signupRemove = "remove"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Enabled() bool
	Geocode(ctx context.Context, address string) (geo.Point, error)
}

// SeatPublisher pushes committed sign-up counters to live subscribers.
type SeatPublisher interface {
	PublishSeats(opportunityID, communityID int64, current, maxSignUps int)
}

// OpportunityService defines the interface for opportunity and sign-up operations
type OpportunityService interface {
	CreateOpportunity(ctx context.Context, session Session, req *dto.CreateOpportunityRequest) (*dto.OpportunityResponse, error)
	UpdateOpportunity(ctx context.Context, session Session, id int64, req *dto.UpdateOpportunityRequest) (*dto.OpportunityResponse, error)
	DeleteOpportunity(ctx context.Context, session Session, id int64) error
	GetOpportunity(ctx context.Context, session Session, id int64) (*dto.OpportunityResponse, error)
	ListOpportunities(ctx context.Context, session Session, filter *dto.OpportunityFilterRequest) (*dto.OpportunityListResponse, error)
	ListMySignUps(ctx context.Context, session Session, page, size int) (*dto.OpportunityListResponse, error)
	Join(ctx context.Context, session Session, id int64) (*dto.SignupResponse, error)
	Cancel(ctx context.Context, session Session, id int64) (*dto.SignupResponse, error)
	ListParticipants(ctx context.Context, session Session, id int64) ([]*dto.ParticipantResponse, error)
	RemoveParticipant(ctx context.Context, session Session, id, userID int64) (*dto.SignupResponse, error)
}

// opportunityServiceImpl implements OpportunityService
type opportunityServiceImpl struct {
	store     repositories.Store
	geocoder  Geocoder
	publisher SeatPublisher
	metrics   *metrics.Metrics
	notifier  notifier
	logger    zerolog.Logger
}

// NewOpportunityService creates a new OpportunityService. geocoder, publisher
// and mailer may be nil.
func NewOpportunityService(
	store repositories.Store,
	geocoder Geocoder,
	publisher SeatPublisher,
	mailer email.Mailer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) OpportunityService {
	return &opportunityServiceImpl{
		store:     store,
		geocoder:  geocoder,
		publisher: publisher,
		metrics:   m,
		notifier:  notifier{mailer: mailer, metrics: m, logger: logger},
		logger:    logger,
	}
}

type opportunityFields struct {
	name, description, date, time, contactEmail string
	hourValue                                   float64
	maxSignUps                                  int
	location                                    *dto.LocationRequest
}

func (s *opportunityServiceImpl) validate(f *opportunityFields) error {
	f.name = strings.TrimSpace(f.name)
	f.description = strings.TrimSpace(f.description)
	f.contactEmail = strings.TrimSpace(f.contactEmail)

	if f.name == "" {
		return apperrors.NewValidationError("name", "name is required")
	}
	if f.description == "" {
		return apperrors.NewValidationError("description", "description is required")
	}
	date, err := helpers.ParseDate(f.date)
	if err != nil {
		return apperrors.NewValidationError("date", err.Error())
	}
	f.date = date.Format(helpers.DateLayout)
	clock, err := helpers.NormalizeClock(f.time)
	if err != nil {
		return apperrors.NewValidationError("time", err.Error())
	}
	f.time = clock
	if f.hourValue <= 0 {
		return apperrors.NewValidationError("hourValue", "hourValue must be greater than 0")
	}
	if f.maxSignUps <= 0 {
		return apperrors.NewValidationError("maxSignUps", "maxSignUps must be greater than 0")
	}
	return nil
}

// resolveLocation fills in coordinates from the address when they are missing.
// Geocoding failures leave the location without coordinates.
func (s *opportunityServiceImpl) resolveLocation(ctx context.Context, req *dto.LocationRequest) *models.Location {
	if req == nil {
		return nil
	}
	address := strings.TrimSpace(req.Address)
	if address == "" && (req.Latitude == nil || req.Longitude == nil) {
		return nil
	}

	loc := &models.Location{Address: address, Latitude: req.Latitude, Longitude: req.Longitude}
	if (loc.Latitude != nil && loc.Longitude != nil) || s.geocoder == nil || !s.geocoder.Enabled() {
		return loc
	}

	point, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		s.logger.Warn().Err(err).Str("address", address).Msg("Geocoding failed, saving opportunity without coordinates")
		return loc
	}
	loc.Latitude, loc.Longitude = &point.Latitude, &point.Longitude
	return loc
}

// manage loads an opportunity the calling teacher may change: they created
// it or own its community.
func (s *opportunityServiceImpl) manage(ctx context.Context, store repositories.Store, session Session, id int64, lock bool) (*models.Opportunity, error) {
	if err := session.requireTeacher(); err != nil {
		return nil, err
	}

	get := store.Opportunities().GetByID
	if lock {
		get = store.Opportunities().GetForUpdate
	}
	opp, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.CreatedBy == session.UserID {
		return opp, nil
	}

	community, err := store.Communities().GetByID(ctx, opp.CommunityID)
	if err != nil {
		return nil, err
	}
	if community.CreatedBy != session.UserID {
		return nil, apperrors.NewForbiddenError("only the community owner can manage this opportunity")
	}
	return opp, nil
}

// CreateOpportunity adds an opportunity to a community owned by the caller.
func (s *opportunityServiceImpl) CreateOpportunity(ctx context.Context, session Session, req *dto.CreateOpportunityRequest) (*dto.OpportunityResponse, error) {
	if err := session.requireTeacher(); err != nil {
		return nil, err
	}

	fields := opportunityFields{
		name: req.Name, description: req.Description, date: req.Date, time: req.Time,
		contactEmail: req.ContactEmail, hourValue: req.HourValue, maxSignUps: req.MaxSignUps,
		location: req.Location,
	}
	if err := s.validate(&fields); err != nil {
		return nil, err
	}

	community, err := s.store.Communities().GetByID(ctx, req.CommunityID)
	if err != nil {
		return nil, err
	}
	if community.CreatedBy != session.UserID {
		return nil, apperrors.NewForbiddenError("only the community owner can add opportunities")
	}
	creator, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	opp := &models.Opportunity{
		CommunityID:  community.ID,
		Name:         fields.name,
		Description:  fields.description,
		Date:         fields.date,
		Time:         fields.time,
		HourValue:    fields.hourValue,
		CreatedBy:    session.UserID,
		MaxSignUps:   fields.maxSignUps,
		ContactEmail: fields.contactEmail,
		Location:     s.resolveLocation(ctx, fields.location),
	}
	if err := s.store.Opportunities().Create(ctx, opp); err != nil {
		return nil, fmt.Errorf("error creating opportunity: %w", err)
	}

	s.logger.Info().
		Int64("opportunityID", opp.ID).
		Int64("communityID", opp.CommunityID).
		Int("maxSignUps", opp.MaxSignUps).
		Msg("Opportunity created")

	s.notifyCreated(ctx, opp, creator)
	return dto.NewOpportunityResponse(opp, false), nil
}

func (s *opportunityServiceImpl) notifyCreated(ctx context.Context, opp *models.Opportunity, creator *models.User) {
	base := email.OpportunitySubmitted{Name: opp.Name, Date: opp.Date, Time: opp.Time, Description: opp.Description}

	toCreator := base
	toCreator.To, toCreator.Creator = creator.Email, true
	s.notifier.send(ctx, "opportunity_created", email.OpportunitySubmittedMessage(toCreator))

	if opp.ContactEmail != "" && !strings.EqualFold(opp.ContactEmail, creator.Email) {
		toContact := base
		toContact.To = opp.ContactEmail
		s.notifier.send(ctx, "opportunity_contact", email.OpportunitySubmittedMessage(toContact))
	}
}

// UpdateOpportunity replaces the editable fields. The capacity may not drop
// below the current number of sign-ups.
func (s *opportunityServiceImpl) UpdateOpportunity(ctx context.Context, session Session, id int64, req *dto.UpdateOpportunityRequest) (*dto.OpportunityResponse, error) {
	fields := opportunityFields{
		name: req.Name, description: req.Description, date: req.Date, time: req.Time,
		contactEmail: req.ContactEmail, hourValue: req.HourValue, maxSignUps: req.MaxSignUps,
		location: req.Location,
	}
	if err := s.validate(&fields); err != nil {
		return nil, err
	}
	location := s.resolveLocation(ctx, fields.location)

	var (
		updated     *models.Opportunity
		capacityMod bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		opp, err := s.manage(ctx, tx, session, id, true)
		if err != nil {
			return err
		}
		if fields.maxSignUps < opp.CurrentSignUps {
			return apperrors.ErrCapacityBelowCount
		}

		capacityMod = opp.MaxSignUps != fields.maxSignUps
		opp.Name = fields.name
		opp.Description = fields.description
		opp.Date = fields.date
		opp.Time = fields.time
		opp.HourValue = fields.hourValue
		opp.MaxSignUps = fields.maxSignUps
		opp.ContactEmail = fields.contactEmail
		opp.Location = location

		if err := tx.Opportunities().Update(ctx, opp); err != nil {
			return err
		}
		updated = opp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if capacityMod {
		s.publish(updated)
	}
	return dto.NewOpportunityResponse(updated, false), nil
}

// DeleteOpportunity removes an opportunity and its sign-ups.
func (s *opportunityServiceImpl) DeleteOpportunity(ctx context.Context, session Session, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := s.manage(ctx, tx, session, id, true); err != nil {
			return err
		}
		if err := tx.Opportunities().Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info().Int64("opportunityID", id).Int64("teacherID", session.UserID).Msg("Opportunity deleted")
		return nil
	})
}

// GetOpportunity returns one opportunity with the caller's sign-up flag.
func (s *opportunityServiceImpl) GetOpportunity(ctx context.Context, session Session, id int64) (*dto.OpportunityResponse, error) {
	opp, err := s.store.Opportunities().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	joined, err := s.store.Signups().Exists(ctx, id, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("error checking sign-up: %w", err)
	}
	return dto.NewOpportunityResponse(opp, joined), nil
}

// ListOpportunities lists opportunities, optionally only those of the
// caller's joined communities.
func (s *opportunityServiceImpl) ListOpportunities(ctx context.Context, session Session, filter *dto.OpportunityFilterRequest) (*dto.OpportunityListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)
	f := repositories.OpportunityFilter{
		CommunityID: filter.CommunityID,
		ListParams:  repositories.ListParams{Limit: limit, Offset: offset},
	}
	if filter.Mine {
		f.MemberOf = &session.UserID
	}
	return s.list(ctx, session, f, filter.Page, limit)
}

// ListMySignUps lists the opportunities the caller signed up for, by date.
func (s *opportunityServiceImpl) ListMySignUps(ctx context.Context, session Session, page, size int) (*dto.OpportunityListResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	f := repositories.OpportunityFilter{
		SignedUpBy: &session.UserID,
		ListParams: repositories.ListParams{Limit: limit, Offset: offset},
	}
	return s.list(ctx, session, f, page, limit)
}

func (s *opportunityServiceImpl) list(ctx context.Context, session Session, f repositories.OpportunityFilter, page, limit int) (*dto.OpportunityListResponse, error) {
	opps, total, err := s.store.Opportunities().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("error listing opportunities: %w", err)
	}

	ids, err := s.store.Signups().ListOpportunityIDsByUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading sign-ups: %w", err)
	}
	joined := make(map[int64]bool, len(ids))
	for _, id := range ids {
		joined[id] = true
	}

	resp := &dto.OpportunityListResponse{
		Opportunities: make([]*dto.OpportunityResponse, 0, len(opps)),
		Pagination:    helpers.NewPaginationInfo(total, page, limit),
	}
	for _, o := range opps {
		resp.Opportunities = append(resp.Opportunities, dto.NewOpportunityResponse(o, joined[o.ID]))
	}
	return resp, nil
}

// Join signs the caller up. The opportunity row stays locked from the
// capacity check to the increment, so concurrent joins for the last seat
// admit exactly one. A rejected join changes nothing.
func (s *opportunityServiceImpl) Join(ctx context.Context, session Session, id int64) (*dto.SignupResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}

	var opp *models.Opportunity
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		var err error
		opp, err = tx.Opportunities().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Users().GetByID(ctx, session.UserID); err != nil {
			return err
		}

		exists, err := tx.Signups().Exists(ctx, id, session.UserID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.ErrAlreadyJoined
		}
		if opp.IsFull() {
			return apperrors.ErrOpportunityFull
		}

		opp.CurrentSignUps++
		if err := tx.Opportunities().SetSignUps(ctx, id, opp.CurrentSignUps); err != nil {
			return err
		}
		return tx.Signups().Add(ctx, &models.OpportunitySignup{OpportunityID: id, UserID: session.UserID})
	})
	s.metrics.ObserveSignup(signupJoin, signupResult(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("opportunityID", id).
		Int64("userID", session.UserID).
		Int("currentSignUps", opp.CurrentSignUps).
		Msg("User joined opportunity")

	s.publish(opp)
	return &dto.SignupResponse{
		OpportunityID:  opp.ID,
		CurrentSignUps: opp.CurrentSignUps,
		MaxSignUps:     opp.MaxSignUps,
		Joined:         true,
	}, nil
}

// Cancel withdraws the caller's sign-up.
func (s *opportunityServiceImpl) Cancel(ctx context.Context, session Session, id int64) (*dto.SignupResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	opp, err := s.withdraw(ctx, s.store, id, session.UserID)
	s.metrics.ObserveSignup(signupCancel, signupResult(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("opportunityID", id).
		Int64("userID", session.UserID).
		Int("currentSignUps", opp.CurrentSignUps).
		Msg("User cancelled opportunity sign-up")

	s.publish(opp)
	return &dto.SignupResponse{
		OpportunityID:  opp.ID,
		CurrentSignUps: opp.CurrentSignUps,
		MaxSignUps:     opp.MaxSignUps,
	}, nil
}

// RemoveParticipant lets the managing teacher withdraw a student.
func (s *opportunityServiceImpl) RemoveParticipant(ctx context.Context, session Session, id, userID int64) (*dto.SignupResponse, error) {
	var opp *models.Opportunity
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if _, err := s.manage(ctx, tx, session, id, true); err != nil {
			return err
		}
		var err error
		opp, err = s.withdraw(ctx, tx, id, userID)
		return err
	})
	s.metrics.ObserveSignup(signupRemove, signupResult(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("opportunityID", id).
		Int64("userID", userID).
		Int64("teacherID", session.UserID).
		Msg("Participant removed from opportunity")

	s.publish(opp)
	return &dto.SignupResponse{
		OpportunityID:  opp.ID,
		CurrentSignUps: opp.CurrentSignUps,
		MaxSignUps:     opp.MaxSignUps,
	}, nil
}

// withdraw removes a sign-up and decrements the counter, never below zero.
func (s *opportunityServiceImpl) withdraw(ctx context.Context, store repositories.Store, id, userID int64) (*models.Opportunity, error) {
	var opp *models.Opportunity
	err := store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		var err error
		opp, err = tx.Opportunities().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		removed, err := tx.Signups().Remove(ctx, id, userID)
		if err != nil {
			return err
		}
		if !removed {
			return apperrors.ErrNotSignedUp
		}

		opp.CurrentSignUps = max(0, opp.CurrentSignUps-1)
		return tx.Opportunities().SetSignUps(ctx, id, opp.CurrentSignUps)
	})
	return opp, err
}

// ListParticipants returns the students signed up for an opportunity.
func (s *opportunityServiceImpl) ListParticipants(ctx context.Context, session Session, id int64) ([]*dto.ParticipantResponse, error) {
	if _, err := s.manage(ctx, s.store, session, id, false); err != nil {
		return nil, err
	}

	signups, err := s.store.Signups().ListByOpportunity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading participants: %w", err)
	}
	ids := make([]int64, 0, len(signups))
	for _, su := range signups {
		ids = append(ids, su.UserID)
	}
	users, err := s.store.Users().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading participant profiles: %w", err)
	}
	byID := make(map[int64]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]*dto.ParticipantResponse, 0, len(signups))
	for _, su := range signups {
		if u, ok := byID[su.UserID]; ok {
			out = append(out, &dto.ParticipantResponse{User: dto.NewUserBasicResponse(u), JoinedAt: su.JoinedAt})
		}
	}
	return out, nil
}

func (s *opportunityServiceImpl) publish(opp *models.Opportunity) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishSeats(opp.ID, opp.CommunityID, opp.CurrentSignUps, opp.MaxSignUps)
}

func signupResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, apperrors.ErrOpportunityFull):
		return metrics.ResultFull
	case errors.Is(err, apperrors.ErrAlreadyJoined):
		return metrics.ResultDuplicate
	case errors.Is(err, apperrors.ErrNotSignedUp), errors.Is(err, apperrors.ErrOpportunityNotFound):
		return metrics.ResultMissing
	default:
		return metrics.ResultError
	}
}
