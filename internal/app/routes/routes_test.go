package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/controllers"
	"github.com/helphive/servicehours/internal/app/repositories/memstore"
	"github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/middleware"
	"github.com/helphive/servicehours/internal/pkg/auth"
	"github.com/helphive/servicehours/internal/pkg/geo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.BcryptCost = bcrypt.MinCost

	store := memstore.New()
	lgr := zerolog.Nop()
	jwt := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "routes-test",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "servicehours-test",
	})

	authService := services.NewAuthService(store, jwt, lgr)
	h := Controllers{
		Auth:         controllers.NewAuthController(authService, false, lgr),
		User:         controllers.NewUserController(services.NewUserService(store, nil, lgr), lgr),
		Community:    controllers.NewCommunityController(services.NewCommunityService(store, lgr), lgr),
		Opportunity:  controllers.NewOpportunityController(services.NewOpportunityService(store, nil, nil, nil, nil, lgr), lgr),
		HourRequest:  controllers.NewHourRequestController(services.NewHourService(store, nil, nil, "http://app.test", lgr), lgr),
		Notification: controllers.NewNotificationController(services.NewNotificationService(nil, nil, lgr), lgr),
		Place:        controllers.NewPlaceController(geo.NewClient(geo.Config{}, nil, lgr)),
		Health:       controllers.NewHealthController(map[string]controllers.Pinger{"database": store}),
	}

	router := gin.New()
	SetupRouter(router, h, middleware.NewAuthMiddleware(jwt), nil)
	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *apiClient) register(email, role string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":     email,
		"password":  "volunteer1",
		"firstName": "Pat",
		"lastName":  role,
		"roleType":  role,
	})
	require.Equal(a.t, http.StatusCreated, code, env.Error)

	var resp struct {
		Token struct {
			AccessToken string `json:"accessToken"`
		} `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &resp))
	return resp.Token.AccessToken
}

func decodeID(t *testing.T, env envelope) int64 {
	t.Helper()
	var v struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	require.Positive(t, v.ID)
	return v.ID
}

func TestVolunteerFlow(t *testing.T) {
	api := newAPI(t)
	teacher := api.register("teacher@school.org", "TEACHER")
	student := api.register("student@school.org", "STUDENT")

	code, env := api.do(http.MethodPost, "/api/v1/communities", teacher, map[string]any{
		"communityName": "Food Bank",
		"description":   "Sorting donations",
		"hourGoal":      10,
		"endDate":       time.Now().AddDate(1, 0, 0).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	communityID := decodeID(t, env)

	// Students cannot create communities.
	code, env = api.do(http.MethodPost, "/api/v1/communities", student, map[string]any{
		"communityName": "Nope", "description": "x", "hourGoal": 1,
		"endDate": time.Now().AddDate(1, 0, 0).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusForbidden, code)

	joinPath := fmt.Sprintf("/api/v1/communities/%d/join", communityID)
	code, _ = api.do(http.MethodPost, joinPath, student, nil)
	require.Equal(t, http.StatusCreated, code)
	code, env = api.do(http.MethodPost, joinPath, student, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "BUS_001", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/opportunities", teacher, map[string]any{
		"communityId": communityID,
		"name":        "Saturday shift",
		"description": "Pack boxes",
		"date":        "2030-03-02",
		"time":        "9:30 AM",
		"hourValue":   3,
		"maxSignUps":  1,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	opportunityID := decodeID(t, env)

	signupPath := fmt.Sprintf("/api/v1/opportunities/%d/signup", opportunityID)
	code, env = api.do(http.MethodPost, signupPath, student, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var signup struct {
		CurrentSignUps int  `json:"currentSignUps"`
		Joined         bool `json:"joined"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &signup))
	assert.Equal(t, 1, signup.CurrentSignUps)
	assert.True(t, signup.Joined)

	// The only seat is taken.
	other := api.register("other@school.org", "STUDENT")
	code, env = api.do(http.MethodPost, signupPath, other, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "BUS_002", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/hour-requests", student, map[string]any{
		"communityId":  communityID,
		"activityName": "Saturday shift",
		"hours":        "3",
		"minutes":      30,
		"date":         "2030-03-02",
		"contactEmail": "lead@foodbank.org",
		"contactName":  "Shift Lead",
		"description":  "Packed boxes",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	requestID := decodeID(t, env)

	code, env = api.do(http.MethodGet, "/api/v1/hour-requests/review", teacher, nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	approvePath := fmt.Sprintf("/api/v1/hour-requests/%d/approve", requestID)
	code, env = api.do(http.MethodPost, approvePath, teacher, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	code, env = api.do(http.MethodPost, approvePath, teacher, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "BUS_005", env.Error.Code)

	code, env = api.do(http.MethodGet, "/api/v1/users/me/communities", student, nil)
	require.Equal(t, http.StatusOK, code)
	var memberships []struct {
		HoursLogged float64 `json:"hoursLogged"`
		Progress    float64 `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &memberships))
	require.Len(t, memberships, 1)
	assert.InDelta(t, 3.5, memberships[0].HoursLogged, 1e-9)
	assert.InDelta(t, 0.35, memberships[0].Progress, 1e-9)

	code, env = api.do(http.MethodDelete, signupPath, student, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &signup))
	assert.Equal(t, 0, signup.CurrentSignUps)
	code, env = api.do(http.MethodDelete, signupPath, student, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "BUS_004", env.Error.Code)
}

func TestRoutesRequireAuth(t *testing.T) {
	api := newAPI(t)
	code, env := api.do(http.MethodGet, "/api/v1/communities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_008", env.Error.Code)
}

func TestLogHoursRejectsBadInput(t *testing.T) {
	api := newAPI(t)
	student := api.register("student@school.org", "STUDENT")

	code, env := api.do(http.MethodPost, "/api/v1/hour-requests", student, map[string]any{
		"communityId":  1,
		"activityName": "Shift",
		"hours":        "abc",
		"date":         "2030-03-02",
		"contactEmail": "lead@foodbank.org",
		"contactName":  "Lead",
		"description":  "x",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VAL_001", env.Error.Code)
	assert.Equal(t, "hours", env.Error.Field)
}

func TestPlacesWithoutKey(t *testing.T) {
	api := newAPI(t)
	student := api.register("student@school.org", "STUDENT")

	code, env := api.do(http.MethodGet, "/api/v1/places/autocomplete?input=main", student, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "SRV_004", env.Error.Code)
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	code, env := api.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}
