package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/helphive/servicehours/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	q      DBTX
	inTx   bool
	logger zerolog.Logger

	users         *PgUserRepository
	tokens        *PgTokenRepository
	communities   *PgCommunityRepository
	memberships   *PgMembershipRepository
	opportunities *PgOpportunityRepository
	signups       *PgSignupRepository
	hourRequests  *PgHourRequestRepository
}

// NewPostgresStore creates a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return newPostgresStore(pool, pool, false, logger)
}

func newPostgresStore(pool *pgxpool.Pool, q DBTX, inTx bool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:          pool,
		q:             q,
		inTx:          inTx,
		logger:        logger,
		users:         &PgUserRepository{db: q},
		tokens:        &PgTokenRepository{db: q},
		communities:   &PgCommunityRepository{db: q},
		memberships:   &PgMembershipRepository{db: q},
		opportunities: &PgOpportunityRepository{db: q},
		signups:       &PgSignupRepository{db: q},
		hourRequests:  &PgHourRequestRepository{db: q},
	}
}

func (s *PostgresStore) Users() UserRepository { return s.users }
func (s *PostgresStore) Tokens() TokenRepository { return s.tokens }
func (s *PostgresStore) Communities() CommunityRepository { return s.communities }
func (s *PostgresStore) Memberships() MembershipRepository { return s.memberships }
func (s *PostgresStore) Opportunities() OpportunityRepository { return s.opportunities }
func (s *PostgresStore) Signups() SignupRepository { return s.signups }
func (s *PostgresStore) HourRequests() HourRequestRepository { return s.hourRequests }

// WithTx opens a transaction, or joins the current one when already inside.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return db.RunInTx(ctx, s.pool, s.logger, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newPostgresStore(s.pool, tx, true, s.logger))
	})
}

// Ping checks the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
