package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/helphive/servicehours/internal/app/migrations"
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPostgresTestStore migrates a throwaway schema in the database named by
// DATABASE_URL and skips the test when it is unset.
func newPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.NewMigrator(pool, zerolog.Nop()).Migrate(ctx, migrations.Files))
	return NewPostgresStore(pool, zerolog.Nop())
}

func seedOpportunity(t *testing.T, s Store, maxSignUps int) (*models.Community, *models.Opportunity) {
	t.Helper()
	ctx := context.Background()
	teacher := &models.User{Email: "teacher@school.org", FirstName: "T", LastName: "T", RoleType: models.RoleTeacher, IsActive: true}
	require.NoError(t, s.Users().Create(ctx, teacher))
	c := &models.Community{Name: "Food Bank", Description: "Shifts", HourGoal: 10, CreatedBy: teacher.ID, EndDate: time.Now().Add(24 * time.Hour)}
	require.NoError(t, s.Communities().Create(ctx, c))
	o := &models.Opportunity{CommunityID: c.ID, Name: "Sort", Date: "2030-01-01", Time: "09:00", HourValue: 1, CreatedBy: teacher.ID, MaxSignUps: maxSignUps}
	require.NoError(t, s.Opportunities().Create(ctx, o))
	return c, o
}

func TestPostgresCapacityConstraint(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	_, o := seedOpportunity(t, s, 2)

	require.NoError(t, s.Opportunities().SetSignUps(ctx, o.ID, 2))
	assert.ErrorIs(t, s.Opportunities().SetSignUps(ctx, o.ID, 3), apperrors.ErrOpportunityFull)

	o.MaxSignUps = 1
	assert.ErrorIs(t, s.Opportunities().Update(ctx, o), apperrors.ErrCapacityBelowCount)

	got, err := s.Opportunities().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentSignUps)
	assert.Equal(t, 2, got.MaxSignUps)
}

func TestPostgresMissingReferences(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	c, _ := seedOpportunity(t, s, 1)
	student := &models.User{Email: "student@school.org", FirstName: "S", LastName: "S", RoleType: models.RoleStudent, IsActive: true}
	require.NoError(t, s.Users().Create(ctx, student))

	missing := int64(99999)
	err := s.Signups().Add(ctx, &models.OpportunitySignup{OpportunityID: missing, UserID: student.ID})
	assert.ErrorIs(t, err, apperrors.ErrOpportunityNotFound)

	err = s.HourRequests().Create(ctx, &models.HourRequest{
		UserID: student.ID, CommunityID: c.ID, CommunityName: c.Name, OpportunityID: &missing,
		ActivityName: "Sort", Hours: 1, ActivityDate: "2030-01-01",
		ContactEmail: "a@b.org", ContactName: "A", Description: "d",
	})
	assert.ErrorIs(t, err, apperrors.ErrOpportunityNotFound)
}

// Joins race for the last seat; the row lock lets exactly one through.
func TestPostgresJoinLockAdmitsOne(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()
	_, o := seedOpportunity(t, s, 1)

	const n = 5
	students := make([]int64, n)
	for i := range students {
		u := &models.User{Email: fmt.Sprintf("s%d@school.org", i), FirstName: "S", LastName: "S", RoleType: models.RoleStudent, IsActive: true}
		require.NoError(t, s.Users().Create(ctx, u))
		students[i] = u.ID
	}

	join := func(userID int64) error {
		return s.WithTx(ctx, func(ctx context.Context, tx Store) error {
			opp, err := tx.Opportunities().GetForUpdate(ctx, o.ID)
			if err != nil {
				return err
			}
			if opp.IsFull() {
				return apperrors.ErrOpportunityFull
			}
			if err := tx.Opportunities().SetSignUps(ctx, opp.ID, opp.CurrentSignUps+1); err != nil {
				return err
			}
			return tx.Signups().Add(ctx, &models.OpportunitySignup{OpportunityID: opp.ID, UserID: userID})
		})
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, id := range students {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			errs[i] = join(id)
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, apperrors.ErrOpportunityFull), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	got, err := s.Opportunities().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentSignUps)
	participants, err := s.Signups().ListByOpportunity(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 1)
}
