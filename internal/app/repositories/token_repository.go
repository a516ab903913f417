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

// PgTokenRepository handles refresh token database operations
type PgTokenRepository struct {
	db DBTX
}

func (r *PgTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	sql, args, err := psql.Insert("refresh_tokens").
		Columns("token", "user_id", "expiry_date", "is_revoked").
		Values(token.Token, token.UserID, token.ExpiresAt, false).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create token query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&token.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "refresh_tokens_pkey") {
			return apperrors.ErrTokenInvalid
		}
		return fmt.Errorf("error creating token: %w", err)
	}
	return nil
}

func (r *PgTokenRepository) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	sql, args, err := psql.Select("token", "user_id", "expiry_date", "is_revoked", "created_at").
		From("refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get token query: %w", err)
	}

	t := &models.RefreshToken{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("error reading token: %w", err)
	}
	return t, nil
}

func (r *PgTokenRepository) Revoke(ctx context.Context, token string) error {
	sql, args, err := psql.Update("refresh_tokens").Set("is_revoked", true).Where(squirrel.Eq{"token": token}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke token query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTokenNotFound
	}
	return nil
}

func (r *PgTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	sql, args, err := psql.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"user_id": userID, "is_revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke tokens query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error revoking tokens: %w", err)
	}
	return nil
}
