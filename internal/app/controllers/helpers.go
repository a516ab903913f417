package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/middleware"
)

// sessionFrom builds the service session from the claims set by JWTAuth.
func sessionFrom(ctx *gin.Context) (services.Session, bool) {
	userID, role, ok := middleware.CurrentUser(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return services.Session{}, false
	}
	return services.Session{UserID: userID, Role: role}, true
}

// parseID reads a positive int64 path parameter.
func parseID(ctx *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(param), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid ID format").
			WithField(param).
			WithDetails("ID must be a positive integer")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}
