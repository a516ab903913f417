package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/dberrors"
	"github.com/jackc/pgx/v5"
)

// PgOpportunityRepository handles database operations for opportunities
type PgOpportunityRepository struct {
	db DBTX
}

var opportunityColumns = []string{
	"o.id", "o.community_id", "o.name", "o.description", "o.date", "o.time", "o.hour_value", "o.created_by",
	"o.current_sign_ups", "o.max_sign_ups", "o.contact_email", "o.address", "o.latitude", "o.longitude",
	"o.created_at", "o.updated_at",
}

func scanOpportunity(row pgx.Row, extra ...any) (*models.Opportunity, error) {
	o := &models.Opportunity{}
	var (
		address  *string
		lat, lng *float64
	)
	dest := []any{
		&o.ID, &o.CommunityID, &o.Name, &o.Description, &o.Date, &o.Time, &o.HourValue, &o.CreatedBy,
		&o.CurrentSignUps, &o.MaxSignUps, &o.ContactEmail, &address, &lat, &lng,
		&o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if address != nil || lat != nil || lng != nil {
		o.Location = &models.Location{Latitude: lat, Longitude: lng}
		if address != nil {
			o.Location.Address = *address
		}
	}
	return o, nil
}

func locationValues(loc *models.Location) (address *string, lat, lng *float64) {
	if loc == nil {
		return nil, nil, nil
	}
	if loc.Address != "" {
		a := loc.Address
		address = &a
	}
	return address, loc.Latitude, loc.Longitude
}

func (r *PgOpportunityRepository) Create(ctx context.Context, o *models.Opportunity) error {
	address, lat, lng := locationValues(o.Location)
	sql, args, err := psql.Insert("opportunities").
		Columns("community_id", "name", "description", "date", "time", "hour_value", "created_by",
			"current_sign_ups", "max_sign_ups", "contact_email", "address", "latitude", "longitude").
		Values(o.CommunityID, o.Name, o.Description, o.Date, o.Time, o.HourValue, o.CreatedBy,
			o.CurrentSignUps, o.MaxSignUps, o.ContactEmail, address, lat, lng).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("error creating opportunity: %w", err)
	}
	return nil
}

func (r *PgOpportunityRepository) get(ctx context.Context, id int64, forUpdate bool) (*models.Opportunity, error) {
	q := psql.Select(opportunityColumns...).From("opportunities o").Where(squirrel.Eq{"o.id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	o, err := scanOpportunity(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOpportunityNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return o, nil
}

func (r *PgOpportunityRepository) GetByID(ctx context.Context, id int64) (*models.Opportunity, error) {
	return r.get(ctx, id, false)
}

func (r *PgOpportunityRepository) GetForUpdate(ctx context.Context, id int64) (*models.Opportunity, error) {
	return r.get(ctx, id, true)
}

// Update saves the editable fields. The sign-up counter is only changed through SetSignUps.
func (r *PgOpportunityRepository) Update(ctx context.Context, o *models.Opportunity) error {
	address, lat, lng := locationValues(o.Location)
	sql, args, err := psql.Update("opportunities").
		Set("name", o.Name).
		Set("description", o.Description).
		Set("date", o.Date).
		Set("time", o.Time).
		Set("hour_value", o.HourValue).
		Set("max_sign_ups", o.MaxSignUps).
		Set("contact_email", o.ContactEmail).
		Set("address", address).
		Set("latitude", lat).
		Set("longitude", lng).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": o.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrOpportunityNotFound
		}
		if dberrors.IsCheckError(err, capacityConstraint) {
			return apperrors.ErrCapacityBelowCount
		}
		return fmt.Errorf("error updating opportunity: %w", err)
	}
	return nil
}

// capacityConstraint keeps current_sign_ups <= max_sign_ups.
const capacityConstraint = "opportunities_capacity_check"

func (r *PgOpportunityRepository) SetSignUps(ctx context.Context, id int64, count int) error {
	sql, args, err := psql.Update("opportunities").
		Set("current_sign_ups", count).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsCheckError(err, capacityConstraint) {
			return apperrors.ErrOpportunityFull
		}
		return fmt.Errorf("error updating sign-up count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrOpportunityNotFound
	}
	return nil
}

func (r *PgOpportunityRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := psql.Delete("opportunities").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting opportunity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrOpportunityNotFound
	}
	return nil
}

func (r *PgOpportunityRepository) List(ctx context.Context, filter OpportunityFilter) ([]*models.Opportunity, int, error) {
	q := psql.Select(append(opportunityColumns, "COUNT(*) OVER() AS total_count")...).
		From("opportunities o").
		OrderBy("o.date", "o.time", "o.id")
	if filter.CommunityID != nil {
		q = q.Where(squirrel.Eq{"o.community_id": *filter.CommunityID})
	}
	if filter.CreatedBy != nil {
		q = q.Where(squirrel.Eq{"o.created_by": *filter.CreatedBy})
	}
	if filter.MemberOf != nil {
		q = q.Where("o.community_id IN (SELECT community_id FROM community_memberships WHERE user_id = ?)", *filter.MemberOf)
	}
	if filter.SignedUpBy != nil {
		q = q.Where("EXISTS (SELECT 1 FROM opportunity_signups s WHERE s.opportunity_id = o.id AND s.user_id = ?)", *filter.SignedUpBy)
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

	out := []*models.Opportunity{}
	total := 0
	for rows.Next() {
		o, err := scanOpportunity(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning opportunity: %w", err)
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}
