package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/middleware"
	"github.com/rs/zerolog"
)

// HourRequestController handles hour logging and review endpoints
type HourRequestController struct {
	hourService services.HourService
	logger      zerolog.Logger
}

// NewHourRequestController creates a new HourRequestController
func NewHourRequestController(hourService services.HourService, logger zerolog.Logger) *HourRequestController {
	return &HourRequestController{
		hourService: hourService,
		logger:      logger,
	}
}

// LogHours records a pending hour request and emails the contact for verification
func (c *HourRequestController) LogHours(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var req dto.LogHoursRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	request, err := c.hourService.LogHours(ctx.Request.Context(), session, &req)
	if err != nil {
		c.logger.Debug().Err(err).Int64("userID", session.UserID).Msg("Log hours rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(request, "Hours submitted for verification"))
}

// GetRequest returns one hour request
func (c *HourRequestController) GetRequest(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	request, err := c.hourService.GetRequest(ctx.Request.Context(), session, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(request, ""))
}

// ListMyRequests lists the caller's hour requests
func (c *HourRequestController) ListMyRequests(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var filter dto.HourRequestFilterRequest
	if !middleware.BindQuery(ctx, &filter) {
		return
	}

	list, err := c.hourService.ListMyRequests(ctx.Request.Context(), session, &filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list, ""))
}

// ListForReview lists requests in the teacher's communities, pending by default
func (c *HourRequestController) ListForReview(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var filter dto.HourRequestFilterRequest
	if !middleware.BindQuery(ctx, &filter) {
		return
	}

	list, err := c.hourService.ListPendingForReviewer(ctx.Request.Context(), session, &filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list, ""))
}

// Approve credits the request's hours to the student's membership
func (c *HourRequestController) Approve(ctx *gin.Context) {
	c.review(ctx, true)
}

// Reject declines the request without crediting hours
func (c *HourRequestController) Reject(ctx *gin.Context) {
	c.review(ctx, false)
}

func (c *HourRequestController) review(ctx *gin.Context, approve bool) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req dto.ReviewHourRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	var (
		request *dto.HourRequestResponse
		err     error
		message string
	)
	if approve {
		request, err = c.hourService.Approve(ctx.Request.Context(), session, id, req.Note)
		message = "Hours approved"
	} else {
		request, err = c.hourService.Reject(ctx.Request.Context(), session, id, req.Note)
		message = "Hours rejected"
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("requestID", id).
		Int64("reviewerID", session.UserID).
		Str("status", string(request.Status)).
		Msg("Hour request reviewed")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(request, message))
}

// ResendVerification sends the verification email again
func (c *HourRequestController) ResendVerification(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.hourService.ResendVerification(ctx.Request.Context(), session, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Verification email sent"))
}
