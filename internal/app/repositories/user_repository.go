package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/helphive/servicehours/internal/pkg/dberrors"
	"github.com/jackc/pgx/v5"
)

var userColumns = []string{
	"id", "email", "password", "first_name", "last_name", "phone_number", "role_type",
	"google_id", "profile_photo_url", "is_active", "last_login_at", "created_at", "updated_at",
}

// PgUserRepository handles user database operations
type PgUserRepository struct {
	db DBTX
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.RoleType,
		&u.GoogleID, &u.ProfilePhotoURL, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a user and fills in ID and timestamps.
func (r *PgUserRepository) Create(ctx context.Context, user *models.User) error {
	sql, args, err := psql.Insert("users").
		Columns("email", "password", "first_name", "last_name", "phone_number", "role_type", "google_id", "profile_photo_url", "is_active").
		Values(strings.ToLower(user.Email), user.Password, user.FirstName, user.LastName, user.PhoneNumber, user.RoleType, user.GoogleID, user.ProfilePhotoURL, user.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		if dberrors.IsDuplicateConstraintError(err, "users_google_id_key") {
			return apperrors.NewConflictError("google account is already linked")
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (r *PgUserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	u, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return u, nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(email)})
}

func (r *PgUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"google_id": googleID})
}

// GetByIDs returns the users that exist among ids, ordered by id.
func (r *PgUserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	sql, args, err := psql.Select(userColumns...).From("users").Where(squirrel.Eq{"id": ids}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PgUserRepository) exec(ctx context.Context, b squirrel.UpdateBuilder) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_google_id_key") {
			return apperrors.NewConflictError("google account is already linked")
		}
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdateProfile saves first name, last name and phone number.
func (r *PgUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return r.exec(ctx, psql.Update("users").
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("phone_number", user.PhoneNumber).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": user.ID}))
}

func (r *PgUserRepository) UpdateProfilePhoto(ctx context.Context, id int64, url *string) error {
	return r.exec(ctx, psql.Update("users").
		Set("profile_photo_url", url).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

func (r *PgUserRepository) LinkGoogleID(ctx context.Context, id int64, googleID string) error {
	return r.exec(ctx, psql.Update("users").
		Set("google_id", googleID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

func (r *PgUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, psql.Update("users").Set("last_login_at", at).Where(squirrel.Eq{"id": id}))
}

// ListByRole pages through users of a role, optionally matching name or email.
func (r *PgUserRepository) ListByRole(ctx context.Context, role models.RoleType, search string, page ListParams) ([]*models.User, int, error) {
	q := psql.Select(append(userColumns, "COUNT(*) OVER() AS total_count")...).
		From("users").
		Where(squirrel.Eq{"role_type": role}).
		OrderBy("last_name", "first_name", "id")
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"email": pattern},
		})
	}
	q = paginate(q, page)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	total := 0
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.RoleType,
			&u.GoogleID, &u.ProfilePhotoURL, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func paginate(q squirrel.SelectBuilder, page ListParams) squirrel.SelectBuilder {
	if page.Limit > 0 {
		q = q.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		q = q.Offset(uint64(page.Offset))
	}
	return q
}
