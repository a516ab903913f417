package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/middleware"
	"github.com/rs/zerolog"
)

// OpportunityController handles opportunity and sign-up endpoints
type OpportunityController struct {
	opportunityService services.OpportunityService
	logger             zerolog.Logger
}

// NewOpportunityController creates a new OpportunityController
func NewOpportunityController(opportunityService services.OpportunityService, logger zerolog.Logger) *OpportunityController {
	return &OpportunityController{
		opportunityService: opportunityService,
		logger:             logger,
	}
}

// CreateOpportunity creates an opportunity in a community owned by the teacher
func (c *OpportunityController) CreateOpportunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var req dto.CreateOpportunityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	opportunity, err := c.opportunityService.CreateOpportunity(ctx.Request.Context(), session, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("opportunityID", opportunity.ID).
		Int64("communityID", opportunity.CommunityID).
		Msg("Opportunity created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(opportunity, "Opportunity created"))
}

// UpdateOpportunity updates an opportunity
func (c *OpportunityController) UpdateOpportunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateOpportunityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	opportunity, err := c.opportunityService.UpdateOpportunity(ctx.Request.Context(), session, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(opportunity, "Opportunity updated"))
}

// DeleteOpportunity deletes an opportunity and its sign-ups
func (c *OpportunityController) DeleteOpportunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.opportunityService.DeleteOpportunity(ctx.Request.Context(), session, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Opportunity deleted"))
}

// GetOpportunity returns one opportunity with the caller's joined flag
func (c *OpportunityController) GetOpportunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	opportunity, err := c.opportunityService.GetOpportunity(ctx.Request.Context(), session, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(opportunity, ""))
}

// ListOpportunities lists opportunities, optionally only those of joined communities
func (c *OpportunityController) ListOpportunities(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var filter dto.OpportunityFilterRequest
	if !middleware.BindQuery(ctx, &filter) {
		return
	}

	list, err := c.opportunityService.ListOpportunities(ctx.Request.Context(), session, &filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list, ""))
}

// ListMySignUps lists the opportunities the caller has joined
func (c *OpportunityController) ListMySignUps(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var page dto.PageRequest
	if !middleware.BindQuery(ctx, &page) {
		return
	}

	list, err := c.opportunityService.ListMySignUps(ctx.Request.Context(), session, page.Page, page.PageSize)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list, ""))
}

// Join signs the caller up for an opportunity
func (c *OpportunityController) Join(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.opportunityService.Join(ctx.Request.Context(), session, id)
	if err != nil {
		c.logger.Debug().Err(err).Int64("opportunityID", id).Int64("userID", session.UserID).Msg("Join rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Signed up"))
}

// Cancel withdraws the caller's sign-up
func (c *OpportunityController) Cancel(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.opportunityService.Cancel(ctx.Request.Context(), session, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Sign-up cancelled"))
}

// ListParticipants lists the students signed up for an opportunity
func (c *OpportunityController) ListParticipants(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	participants, err := c.opportunityService.ListParticipants(ctx.Request.Context(), session, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(participants, ""))
}

// RemoveParticipant withdraws a student's sign-up on their behalf
func (c *OpportunityController) RemoveParticipant(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}

	result, err := c.opportunityService.RemoveParticipant(ctx.Request.Context(), session, id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("opportunityID", id).
		Int64("removedUserID", userID).
		Int64("userID", session.UserID).
		Msg("Participant removed")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Participant removed"))
}
