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
	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/helphive/servicehours/internal/pkg/helpers"
	"github.com/helphive/servicehours/internal/pkg/metrics"
	"github.com/helphive/servicehours/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// HourService defines the interface for hour logging and verification
type HourService interface {
	LogHours(ctx context.Context, session Session, req *dto.LogHoursRequest) (*dto.HourRequestResponse, error)
	Approve(ctx context.Context, session Session, id int64, note string) (*dto.HourRequestResponse, error)
	Reject(ctx context.Context, session Session, id int64, note string) (*dto.HourRequestResponse, error)
	GetRequest(ctx context.Context, session Session, id int64) (*dto.HourRequestResponse, error)
	ListMyRequests(ctx context.Context, session Session, filter *dto.HourRequestFilterRequest) (*dto.HourRequestListResponse, error)
	ListPendingForReviewer(ctx context.Context, session Session, filter *dto.HourRequestFilterRequest) (*dto.HourRequestListResponse, error)
	ResendVerification(ctx context.Context, session Session, id int64) error
}

// hourServiceImpl implements HourService
type hourServiceImpl struct {
	store         repositories.Store
	mailer        email.Mailer
	notifier      notifier
	metrics       *metrics.Metrics
	reviewBaseURL string
	logger        zerolog.Logger
	now           func() time.Time
}

// NewHourService creates a new HourService. reviewBaseURL prefixes the link
// sent to verifiers; mailer may be nil.
func NewHourService(store repositories.Store, mailer email.Mailer, m *metrics.Metrics, reviewBaseURL string, logger zerolog.Logger) HourService {
	return &hourServiceImpl{
		store:         store,
		mailer:        mailer,
		notifier:      notifier{mailer: mailer, metrics: m, logger: logger},
		metrics:       m,
		reviewBaseURL: strings.TrimRight(reviewBaseURL, "/"),
		logger:        logger,
		now:           time.Now,
	}
}

type loggedHours struct {
	hours   float64
	minutes int
	date    string
}

// parseLog checks the form before anything is written.
func parseLog(req *dto.LogHoursRequest) (loggedHours, error) {
	required := []struct{ field, value string }{
		{"activityName", req.ActivityName},
		{"hours", string(req.Hours)},
		{"date", req.Date},
		{"contactEmail", req.ContactEmail},
		{"contactName", req.ContactName},
		{"description", req.Description},
	}
	if req.CommunityID <= 0 {
		return loggedHours{}, apperrors.NewValidationError("communityId", "communityId is required")
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return loggedHours{}, apperrors.NewValidationError(r.field, r.field+" is required")
		}
	}

	hours, err := validation.ParsePositiveNumber(string(req.Hours))
	if err != nil {
		return loggedHours{}, apperrors.NewValidationError("hours", "hours "+err.Error())
	}
	minutes, err := validation.ParseMinutes(string(req.Minutes))
	if err != nil {
		return loggedHours{}, apperrors.NewValidationError("minutes", "minutes "+err.Error())
	}
	date, err := helpers.ParseDate(req.Date)
	if err != nil {
		return loggedHours{}, apperrors.NewValidationError("date", err.Error())
	}
	if !validation.IsEmail(strings.TrimSpace(req.ContactEmail)) {
		return loggedHours{}, apperrors.NewValidationError("contactEmail", "contactEmail must be a valid email address")
	}

	return loggedHours{hours: hours, minutes: minutes, date: date.Format(helpers.DateLayout)}, nil
}

// LogHours records a pending verification request and emails the contact.
// The email is best effort; the request stays even if delivery fails.
func (s *hourServiceImpl) LogHours(ctx context.Context, session Session, req *dto.LogHoursRequest) (*dto.HourRequestResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	parsed, err := parseLog(req)
	if err != nil {
		return nil, err
	}

	student, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	membership, err := s.store.Memberships().Get(ctx, req.CommunityID, session.UserID)
	if err != nil {
		return nil, err
	}
	if req.OpportunityID != nil {
		opp, err := s.store.Opportunities().GetByID(ctx, *req.OpportunityID)
		if err != nil {
			return nil, err
		}
		if opp.CommunityID != req.CommunityID {
			return nil, apperrors.NewValidationError("opportunityId", "opportunity does not belong to this community")
		}
	}

	hr := &models.HourRequest{
		UserID:        session.UserID,
		CommunityID:   req.CommunityID,
		CommunityName: membership.CommunityName,
		OpportunityID: req.OpportunityID,
		ActivityName:  strings.TrimSpace(req.ActivityName),
		Hours:         parsed.hours,
		Minutes:       parsed.minutes,
		ActivityDate:  parsed.date,
		ContactEmail:  strings.TrimSpace(req.ContactEmail),
		ContactName:   strings.TrimSpace(req.ContactName),
		Description:   strings.TrimSpace(req.Description),
		Status:        models.HourRequestPending,
	}
	if err := s.store.HourRequests().Create(ctx, hr); err != nil {
		return nil, fmt.Errorf("error creating hour request: %w", err)
	}

	s.logger.Info().
		Int64("requestID", hr.ID).
		Int64("userID", session.UserID).
		Int64("communityID", hr.CommunityID).
		Float64("hours", hr.Amount()).
		Msg("Hours logged")

	s.notifier.send(ctx, "hour_verification", s.verificationMessage(hr, student))
	return dto.NewHourRequestResponse(hr, student), nil
}

func (s *hourServiceImpl) verificationMessage(hr *models.HourRequest, student *models.User) email.Message {
	reviewURL := ""
	if s.reviewBaseURL != "" {
		reviewURL = fmt.Sprintf("%s/hours/%d", s.reviewBaseURL, hr.ID)
	}
	return email.HourVerificationMessage(email.HourVerification{
		ContactEmail:  hr.ContactEmail,
		ContactName:   hr.ContactName,
		StudentName:   student.FullName(),
		CommunityName: hr.CommunityName,
		ActivityName:  hr.ActivityName,
		ActivityDate:  hr.ActivityDate,
		Hours:         hr.Amount(),
		ReviewURL:     reviewURL,
	})
}

// ResendVerification emails the contact of a pending request again. Unlike
// LogHours, delivery errors are returned.
func (s *hourServiceImpl) ResendVerification(ctx context.Context, session Session, id int64) error {
	if err := session.requireUser(); err != nil {
		return err
	}
	hr, err := s.store.HourRequests().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if hr.UserID != session.UserID {
		return apperrors.NewForbiddenError("only the student who logged the hours can resend the request")
	}
	if hr.Status != models.HourRequestPending {
		return apperrors.ErrRequestAlreadyReviewed
	}
	if s.mailer == nil {
		return apperrors.ErrNotificationFailed
	}

	student, err := s.store.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, s.verificationMessage(hr, student))
	s.metrics.ObserveEmail("hour_verification", err)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrNotificationFailed, err)
	}
	return nil
}

// Approve credits the request's hours to the student's membership. The
// request row is locked and must still be pending, so a request is never
// credited twice.
func (s *hourServiceImpl) Approve(ctx context.Context, session Session, id int64, note string) (*dto.HourRequestResponse, error) {
	return s.review(ctx, session, id, models.HourRequestApproved, note)
}

// Reject closes the request without credit.
func (s *hourServiceImpl) Reject(ctx context.Context, session Session, id int64, note string) (*dto.HourRequestResponse, error) {
	return s.review(ctx, session, id, models.HourRequestRejected, note)
}

func (s *hourServiceImpl) review(ctx context.Context, session Session, id int64, decision models.HourRequestStatus, note string) (*dto.HourRequestResponse, error) {
	if err := session.requireTeacher(); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)

	var (
		hr    *models.HourRequest
		total float64
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		var err error
		hr, err = tx.HourRequests().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		community, err := tx.Communities().GetByID(ctx, hr.CommunityID)
		if err != nil {
			return err
		}
		if community.CreatedBy != session.UserID {
			return apperrors.NewForbiddenError("only the community owner can review these hours")
		}
		if hr.Status != models.HourRequestPending {
			return apperrors.ErrRequestAlreadyReviewed
		}

		if decision == models.HourRequestApproved {
			total, err = tx.Memberships().AddHours(ctx, hr.CommunityID, hr.UserID, hr.Amount())
			if err != nil {
				return err
			}
		}

		at := s.now().UTC()
		if err := tx.HourRequests().SetReview(ctx, id, decision, session.UserID, note, at); err != nil {
			return err
		}
		hr.Status = decision
		hr.ReviewedBy = &session.UserID
		hr.ReviewedAt = &at
		hr.ReviewNote = note
		return nil
	})
	if err != nil {
		return nil, err
	}

	credited := 0.0
	if decision == models.HourRequestApproved {
		credited = hr.Amount()
	}
	s.metrics.ObserveReview(string(decision), credited)

	event := s.logger.Info().
		Int64("requestID", id).
		Int64("teacherID", session.UserID).
		Str("decision", string(decision))
	if decision == models.HourRequestApproved {
		event = event.Float64("hoursLogged", total)
	}
	event.Msg("Hour request reviewed")

	student, err := s.store.Users().GetByID(ctx, hr.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("requestID", id).Msg("Reviewed request has no student record")
		return dto.NewHourRequestResponse(hr, nil), nil
	}
	s.notifier.send(ctx, "hour_review", email.HourReviewMessage(email.HourReview{
		StudentEmail:  student.Email,
		StudentName:   student.FullName(),
		CommunityName: hr.CommunityName,
		ActivityName:  hr.ActivityName,
		Hours:         hr.Amount(),
		Approved:      decision == models.HourRequestApproved,
		Note:          note,
	}))
	return dto.NewHourRequestResponse(hr, student), nil
}

// GetRequest returns a request to its student or to the reviewing teacher.
func (s *hourServiceImpl) GetRequest(ctx context.Context, session Session, id int64) (*dto.HourRequestResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	hr, err := s.store.HourRequests().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if hr.UserID != session.UserID {
		community, err := s.store.Communities().GetByID(ctx, hr.CommunityID)
		if err != nil && !errors.Is(err, apperrors.ErrCommunityNotFound) {
			return nil, err
		}
		if community == nil || community.CreatedBy != session.UserID {
			return nil, apperrors.ErrHourRequestNotFound
		}
	}

	student, err := s.store.Users().GetByID(ctx, hr.UserID)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}
	return dto.NewHourRequestResponse(hr, student), nil
}

// ListMyRequests lists the caller's own requests, newest first.
func (s *hourServiceImpl) ListMyRequests(ctx context.Context, session Session, filter *dto.HourRequestFilterRequest) (*dto.HourRequestListResponse, error) {
	if err := session.requireUser(); err != nil {
		return nil, err
	}
	f := repositories.HourRequestFilter{UserID: &session.UserID, CommunityID: filter.CommunityID}
	if filter.Status != "" {
		status := models.HourRequestStatus(filter.Status)
		f.Status = &status
	}
	return s.list(ctx, f, filter)
}

// ListPendingForReviewer lists requests in the caller's communities. Pending
// is the default status.
func (s *hourServiceImpl) ListPendingForReviewer(ctx context.Context, session Session, filter *dto.HourRequestFilterRequest) (*dto.HourRequestListResponse, error) {
	if err := session.requireTeacher(); err != nil {
		return nil, err
	}
	status := models.HourRequestPending
	if filter.Status != "" {
		status = models.HourRequestStatus(filter.Status)
	}
	f := repositories.HourRequestFilter{
		ReviewableBy: &session.UserID,
		CommunityID:  filter.CommunityID,
		Status:       &status,
	}
	return s.list(ctx, f, filter)
}

func (s *hourServiceImpl) list(ctx context.Context, f repositories.HourRequestFilter, filter *dto.HourRequestFilterRequest) (*dto.HourRequestListResponse, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperrors.NewValidationError("status", "status must be pending, approved or rejected")
	}
	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)
	f.ListParams = repositories.ListParams{Limit: limit, Offset: offset}

	requests, total, err := s.store.HourRequests().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("error listing hour requests: %w", err)
	}

	ids := make([]int64, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.UserID)
	}
	users, err := s.store.Users().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading students: %w", err)
	}
	byID := make(map[int64]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	resp := &dto.HourRequestListResponse{
		Requests:   make([]*dto.HourRequestResponse, 0, len(requests)),
		Pagination: helpers.NewPaginationInfo(total, filter.Page, limit),
	}
	for _, r := range requests {
		resp.Requests = append(resp.Requests, dto.NewHourRequestResponse(r, byID[r.UserID]))
	}
	return resp, nil
}
