package seed

import (
	"context"
	"testing"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/repositories/memstore"
	"github.com/helphive/servicehours/internal/pkg/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateDefaultData(t *testing.T) {
	auth.BcryptCost = bcrypt.MinCost
	ctx := context.Background()
	store := memstore.New()
	teacher := DefaultTeacher{Email: "Admin@School.org", Password: "secret123"}

	require.NoError(t, CreateDefaultData(ctx, store, teacher, zerolog.Nop()))
	// Second run is a no-op.
	require.NoError(t, CreateDefaultData(ctx, store, teacher, zerolog.Nop()))

	user, err := store.Users().GetByEmail(ctx, "admin@school.org")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.RoleType)
	assert.True(t, auth.CheckPassword(user.Password, "secret123"))
}

func TestCreateDefaultDataSkipsWithoutEmail(t *testing.T) {
	require.NoError(t, CreateDefaultData(context.Background(), memstore.New(), DefaultTeacher{}, zerolog.Nop()))
}

func TestCreateDefaultDataRequiresPassword(t *testing.T) {
	err := CreateDefaultData(context.Background(), memstore.New(), DefaultTeacher{Email: "a@b.org"}, zerolog.Nop())
	assert.Error(t, err)
}
