package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/middleware"
	"github.com/rs/zerolog"
)

// NotificationController exposes the authenticated send-email endpoint
type NotificationController struct {
	notificationService services.NotificationService
	logger              zerolog.Logger
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService, logger zerolog.Logger) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
		logger:              logger,
	}
}

// SendEmail sends a plain message to one recipient
func (c *NotificationController) SendEmail(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var req dto.SendEmailRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.notificationService.SendEmail(ctx.Request.Context(), session, &req)
	if err != nil {
		c.logger.Warn().Err(err).Int64("userID", session.UserID).Msg("Send email failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Email sent"))
}
