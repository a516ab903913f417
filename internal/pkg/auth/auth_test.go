package auth

import (
	"testing"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestJWT() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "servicehours",
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestJWT()
	user := &models.User{ID: 7, Email: "t@school.org", RoleType: models.RoleTeacher}

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 3600, pair.ExpiresIn)

	claims, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.RoleType)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newTestJWT()
	user := &models.User{ID: 1, Email: "s@school.org", RoleType: models.RoleStudent}
	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "servicehours"})
	_, err = other.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = ExtractBearerToken("Bearer ")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPasswordHashing(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(&hash, "secret123"))
	assert.False(t, CheckPassword(&hash, "wrong"))
	assert.False(t, CheckPassword(nil, "secret123"))
}

func TestGoogleConfigEnabled(t *testing.T) {
	assert.False(t, GoogleConfig{}.Enabled())
	assert.False(t, SetupGoogle(GoogleConfig{ClientID: "id"}))
	assert.True(t, GoogleConfig{ClientID: "id", ClientSecret: "s", CallbackURL: "http://x/cb"}.Enabled())
}
