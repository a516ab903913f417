package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/rs/zerolog/log"
)

type errorMapping struct {
	err     error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order; specific sentinels come before the
// generic ones they might also wrap.
var errorMappings = []errorMapping{
	{apperrors.ErrAlreadyJoined, http.StatusConflict, dto.ErrorCodeAlreadyJoined, "Already joined"},
	{apperrors.ErrOpportunityFull, http.StatusConflict, dto.ErrorCodeOpportunityFull, "Opportunity is full"},
	{apperrors.ErrCapacityBelowCount, http.StatusConflict, dto.ErrorCodeCapacityBelowCount, "Capacity cannot be lower than current sign-ups"},
	{apperrors.ErrRequestAlreadyReviewed, http.StatusConflict, dto.ErrorCodeAlreadyReviewed, "Hour request has already been reviewed"},
	{apperrors.ErrNotMember, http.StatusNotFound, dto.ErrorCodeNotMember, "Not a member of this community"},
	{apperrors.ErrNotSignedUp, http.StatusNotFound, dto.ErrorCodeNotSignedUp, "Not signed up for this opportunity"},

	{apperrors.ErrCommunityNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Community not found"},
	{apperrors.ErrOpportunityNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Opportunity not found"},
	{apperrors.ErrHourRequestNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Hour request not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},

	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},

	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},

	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrInvalidEmail, http.StatusBadRequest, dto.ErrorCodeInvalidEmail, "Invalid email"},
	{apperrors.ErrInvalidPassword, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeInvalidRequest, "Bad request"},

	{apperrors.ErrGeoDisabled, http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable, "Maps integration is not configured"},
	{apperrors.ErrNotificationFailed, http.StatusBadGateway, dto.ErrorCodeExternalServiceError, "Notification could not be delivered"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}

		detail := dto.NewErrorDetail(m.code, m.message)
		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			if custom.Message != "" {
				detail.Message = custom.Message
			}
			if field, ok := custom.Details["field"].(string); ok {
				detail.Field = field
			}
			if custom.Code != "" {
				detail.Code = dto.ErrorCode(custom.Code)
			}
		}
		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
}
