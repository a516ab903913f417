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

// PgMembershipRepository handles the community_memberships table.
type PgMembershipRepository struct {
	db DBTX
}

const membershipColumns = "id, community_id, user_id, community_name, hours_logged, joined_at"

func scanMembership(row pgx.Row) (*models.CommunityMembership, error) {
	m := &models.CommunityMembership{}
	if err := row.Scan(&m.ID, &m.CommunityID, &m.UserID, &m.CommunityName, &m.HoursLogged, &m.JoinedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PgMembershipRepository) Get(ctx context.Context, communityID, userID int64) (*models.CommunityMembership, error) {
	sql, args, err := psql.Select(membershipColumns).
		From("community_memberships").
		Where(squirrel.Eq{"community_id": communityID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	m, err := scanMembership(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotMember
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return m, nil
}

func (r *PgMembershipRepository) Add(ctx context.Context, m *models.CommunityMembership) error {
	sql, args, err := psql.Insert("community_memberships").
		Columns("community_id", "user_id", "community_name", "hours_logged").
		Values(m.CommunityID, m.UserID, m.CommunityName, m.HoursLogged).
		Suffix("RETURNING id, joined_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ID, &m.JoinedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "community_memberships_community_user_key") {
			return apperrors.ErrAlreadyJoined
		}
		return fmt.Errorf("error adding membership: %w", err)
	}
	return nil
}

func (r *PgMembershipRepository) Remove(ctx context.Context, communityID, userID int64) (bool, error) {
	sql, args, err := psql.Delete("community_memberships").
		Where(squirrel.Eq{"community_id": communityID, "user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error removing membership: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgMembershipRepository) list(ctx context.Context, where squirrel.Eq) ([]*models.CommunityMembership, error) {
	sql, args, err := psql.Select(membershipColumns).
		From("community_memberships").
		Where(where).
		OrderBy("joined_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out := []*models.CommunityMembership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PgMembershipRepository) ListByUser(ctx context.Context, userID int64) ([]*models.CommunityMembership, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID})
}

func (r *PgMembershipRepository) ListByCommunity(ctx context.Context, communityID int64) ([]*models.CommunityMembership, error) {
	return r.list(ctx, squirrel.Eq{"community_id": communityID})
}

func (r *PgMembershipRepository) AddHours(ctx context.Context, communityID, userID int64, hours float64) (float64, error) {
	sql, args, err := psql.Update("community_memberships").
		Set("hours_logged", squirrel.Expr("hours_logged + ?", hours)).
		Where(squirrel.Eq{"community_id": communityID, "user_id": userID}).
		Suffix("RETURNING hours_logged").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	var total float64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotMember
		}
		return 0, fmt.Errorf("error crediting hours: %w", err)
	}
	return total, nil
}

// RenameCommunity keeps the denormalised community name in sync.
func (r *PgMembershipRepository) RenameCommunity(ctx context.Context, communityID int64, name string) error {
	sql, args, err := psql.Update("community_memberships").
		Set("community_name", name).
		Where(squirrel.Eq{"community_id": communityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error renaming memberships: %w", err)
	}
	return nil
}
