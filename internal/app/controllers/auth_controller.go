// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/middleware"
	"github.com/helphive/servicehours/internal/pkg/auth"
	"github.com/markbates/goth/gothic"
	"github.com/rs/zerolog"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService   *services.AuthService
	googleEnabled bool
	logger        zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, googleEnabled bool, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService:   authService,
		googleEnabled: googleEnabled,
		logger:        logger,
	}
}

// Register handles user registration
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		c.logger.Warn().Msg("Invalid registration request payload")
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Failed to register user")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("userID", resp.User.ID).
		Str("roleType", string(req.RoleType)).
		Msg("User registered")

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Registration successful"))
}

// Login handles user login
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// RefreshToken exchanges a refresh token for a new token pair
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	tokenResponse, err := c.authService.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Refresh token failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(tokenResponse, ""))
}

// Logout revokes the given refresh token, or all of the user's tokens when the body is empty.
func (c *AuthController) Logout(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var req dto.RefreshTokenRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
			return
		}
	}

	if err := c.authService.Logout(ctx.Request.Context(), session.UserID, req.RefreshToken); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Logged out"))
}

// GoogleLogin redirects to the Google consent screen
func (c *AuthController) GoogleLogin(ctx *gin.Context) {
	if !c.googleEnabled {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Google sign-in is not configured")
		ctx.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(errorDetail))
		return
	}

	q := ctx.Request.URL.Query()
	q.Set("provider", "google")
	ctx.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(ctx.Writer, ctx.Request)
}

// GoogleCallback completes the OAuth flow and signs the user in
func (c *AuthController) GoogleCallback(ctx *gin.Context) {
	if !c.googleEnabled {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Google sign-in is not configured")
		ctx.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(errorDetail))
		return
	}

	q := ctx.Request.URL.Query()
	q.Set("provider", "google")
	ctx.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(ctx.Writer, ctx.Request)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Google authentication failed")
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Google authentication failed")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	resp, err := c.authService.LoginWithGoogle(ctx.Request.Context(), auth.FromGothUser(gothUser))
	if err != nil {
		c.logger.Warn().Err(err).Str("email", gothUser.Email).Msg("Google sign-in failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("userID", resp.User.ID).Msg("User signed in with Google")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}
