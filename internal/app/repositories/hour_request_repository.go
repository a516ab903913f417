package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/dberrors"
	"github.com/jackc/pgx/v5"
)

// PgHourRequestRepository handles the hour_requests table.
type PgHourRequestRepository struct {
	db DBTX
}

var hourRequestColumns = []string{
	"h.id", "h.user_id", "h.community_id", "h.community_name", "h.opportunity_id", "h.activity_name",
	"h.hours", "h.minutes", "h.activity_date", "h.contact_email", "h.contact_name", "h.description",
	"h.status", "h.reviewed_by", "h.reviewed_at", "h.review_note", "h.created_at",
}

func scanHourRequest(row pgx.Row, extra ...any) (*models.HourRequest, error) {
	h := &models.HourRequest{}
	dest := []any{
		&h.ID, &h.UserID, &h.CommunityID, &h.CommunityName, &h.OpportunityID, &h.ActivityName,
		&h.Hours, &h.Minutes, &h.ActivityDate, &h.ContactEmail, &h.ContactName, &h.Description,
		&h.Status, &h.ReviewedBy, &h.ReviewedAt, &h.ReviewNote, &h.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *PgHourRequestRepository) Create(ctx context.Context, h *models.HourRequest) error {
	sql, args, err := psql.Insert("hour_requests").
		Columns("user_id", "community_id", "community_name", "opportunity_id", "activity_name", "hours", "minutes",
			"activity_date", "contact_email", "contact_name", "description", "status").
		Values(h.UserID, h.CommunityID, h.CommunityName, h.OpportunityID, h.ActivityName, h.Hours, h.Minutes,
			h.ActivityDate, h.ContactEmail, h.ContactName, h.Description, h.Status).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&h.ID, &h.CreatedAt); err != nil {
		switch {
		case dberrors.IsForeignKeyError(err, "hour_requests_opportunity_id_fkey"):
			return apperrors.ErrOpportunityNotFound
		case dberrors.IsForeignKeyError(err, "hour_requests_community_id_fkey"):
			return apperrors.ErrCommunityNotFound
		}
		return fmt.Errorf("error creating hour request: %w", err)
	}
	return nil
}

func (r *PgHourRequestRepository) get(ctx context.Context, id int64, forUpdate bool) (*models.HourRequest, error) {
	q := psql.Select(hourRequestColumns...).From("hour_requests h").Where(squirrel.Eq{"h.id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	h, err := scanHourRequest(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrHourRequestNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return h, nil
}

func (r *PgHourRequestRepository) GetByID(ctx context.Context, id int64) (*models.HourRequest, error) {
	return r.get(ctx, id, false)
}

func (r *PgHourRequestRepository) GetForUpdate(ctx context.Context, id int64) (*models.HourRequest, error) {
	return r.get(ctx, id, true)
}

func (r *PgHourRequestRepository) SetReview(ctx context.Context, id int64, status models.HourRequestStatus, reviewerID int64, note string, at time.Time) error {
	sql, args, err := psql.Update("hour_requests").
		Set("status", status).
		Set("reviewed_by", reviewerID).
		Set("reviewed_at", at).
		Set("review_note", note).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error reviewing hour request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrHourRequestNotFound
	}
	return nil
}

func (r *PgHourRequestRepository) List(ctx context.Context, filter HourRequestFilter) ([]*models.HourRequest, int, error) {
	q := psql.Select(append(hourRequestColumns, "COUNT(*) OVER() AS total_count")...).
		From("hour_requests h").
		OrderBy("h.created_at DESC", "h.id DESC")
	if filter.UserID != nil {
		q = q.Where(squirrel.Eq{"h.user_id": *filter.UserID})
	}
	if filter.CommunityID != nil {
		q = q.Where(squirrel.Eq{"h.community_id": *filter.CommunityID})
	}
	if filter.ReviewableBy != nil {
		q = q.Where("h.community_id IN (SELECT id FROM communities WHERE created_by = ?)", *filter.ReviewableBy)
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"h.status": *filter.Status})
	}
	q = paginate(q, filter.ListParams)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out := []*models.HourRequest{}
	total := 0
	for rows.Next() {
		h, err := scanHourRequest(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning hour request: %w", err)
		}
		out = append(out, h)
	}
	return out, total, rows.Err()
}
