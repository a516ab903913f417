package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
)

// PgCommunityRepository handles database operations for communities
type PgCommunityRepository struct {
	db DBTX
}

const communityColumns = "id, name, description, hour_goal, created_by, end_date, created_at, updated_at"

func (r *PgCommunityRepository) Create(ctx context.Context, c *models.Community) error {
	sql, args, err := psql.Insert("communities").
		Columns("name", "description", "hour_goal", "created_by", "end_date").
		Values(c.Name, c.Description, c.HourGoal, c.CreatedBy, c.EndDate).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("error creating community: %w", err)
	}
	return nil
}

func (r *PgCommunityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	sql, args, err := psql.Select(communityColumns).From("communities").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	c := &models.Community{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Name, &c.Description, &c.HourGoal, &c.CreatedBy, &c.EndDate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return c, nil
}

func (r *PgCommunityRepository) Update(ctx context.Context, c *models.Community) error {
	sql, args, err := psql.Update("communities").
		Set("name", c.Name).
		Set("description", c.Description).
		Set("hour_goal", c.HourGoal).
		Set("end_date", c.EndDate).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrCommunityNotFound
		}
		return fmt.Errorf("error updating community: %w", err)
	}
	return nil
}

func (r *PgCommunityRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := psql.Delete("communities").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting community: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCommunityNotFound
	}
	return nil
}

func (r *PgCommunityRepository) List(ctx context.Context, filter CommunityFilter) ([]*models.Community, int, error) {
	q := psql.Select(communityColumns, "COUNT(*) OVER() AS total_count").From("communities").OrderBy("end_date", "id")
	if filter.CreatedBy != nil {
		q = q.Where(squirrel.Eq{"created_by": *filter.CreatedBy})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where(squirrel.Or{squirrel.ILike{"name": pattern}, squirrel.ILike{"description": pattern}})
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

	communities := []*models.Community{}
	total := 0
	for rows.Next() {
		c := &models.Community{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.HourGoal, &c.CreatedBy, &c.EndDate, &c.CreatedAt, &c.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("error scanning community: %w", err)
		}
		communities = append(communities, c)
	}
	return communities, total, rows.Err()
}
