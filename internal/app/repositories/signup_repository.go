package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/dberrors"
)

// PgSignupRepository handles the opportunity_signups table.
type PgSignupRepository struct {
	db DBTX
}

func (r *PgSignupRepository) Exists(ctx context.Context, opportunityID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM opportunity_signups WHERE opportunity_id = $1 AND user_id = $2)`,
		opportunityID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking sign-up: %w", err)
	}
	return exists, nil
}

func (r *PgSignupRepository) Add(ctx context.Context, s *models.OpportunitySignup) error {
	sql, args, err := psql.Insert("opportunity_signups").
		Columns("opportunity_id", "user_id").
		Values(s.OpportunityID, s.UserID).
		Suffix("RETURNING joined_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.JoinedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "opportunity_signups_pkey") {
			return apperrors.ErrAlreadyJoined
		}
		if dberrors.IsForeignKeyError(err, "opportunity_signups_opportunity_id_fkey") {
			return apperrors.ErrOpportunityNotFound
		}
		return fmt.Errorf("error adding sign-up: %w", err)
	}
	return nil
}

func (r *PgSignupRepository) Remove(ctx context.Context, opportunityID, userID int64) (bool, error) {
	sql, args, err := psql.Delete("opportunity_signups").
		Where(squirrel.Eq{"opportunity_id": opportunityID, "user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error removing sign-up: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgSignupRepository) ListByOpportunity(ctx context.Context, opportunityID int64) ([]*models.OpportunitySignup, error) {
	sql, args, err := psql.Select("opportunity_id", "user_id", "joined_at").
		From("opportunity_signups").
		Where(squirrel.Eq{"opportunity_id": opportunityID}).
		OrderBy("joined_at", "user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out := []*models.OpportunitySignup{}
	for rows.Next() {
		s := &models.OpportunitySignup{}
		if err := rows.Scan(&s.OpportunityID, &s.UserID, &s.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning sign-up: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PgSignupRepository) ListOpportunityIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT opportunity_id FROM opportunity_signups WHERE user_id = $1 ORDER BY opportunity_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning sign-up: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
