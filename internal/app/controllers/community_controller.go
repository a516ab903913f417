package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/middleware"
	"github.com/rs/zerolog"
)

// CommunityController handles community and membership endpoints
type CommunityController struct {
	communityService services.CommunityService
	logger           zerolog.Logger
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService services.CommunityService, logger zerolog.Logger) *CommunityController {
	return &CommunityController{
		communityService: communityService,
		logger:           logger,
	}
}

// CreateCommunity creates a community owned by the teacher
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var req dto.CreateCommunityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	community, err := c.communityService.CreateCommunity(ctx.Request.Context(), session, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("communityID", community.ID).Int64("userID", session.UserID).Msg("Community created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(community, "Community created"))
}

// UpdateCommunity updates a community owned by the teacher
func (c *CommunityController) UpdateCommunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateCommunityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	community, err := c.communityService.UpdateCommunity(ctx.Request.Context(), session, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(community, "Community updated"))
}

// DeleteCommunity deletes a community owned by the teacher
func (c *CommunityController) DeleteCommunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.communityService.DeleteCommunity(ctx.Request.Context(), session, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("communityID", id).Int64("userID", session.UserID).Msg("Community deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Community deleted"))
}

// GetCommunity returns one community
func (c *CommunityController) GetCommunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	community, err := c.communityService.GetCommunity(ctx.Request.Context(), session, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(community, ""))
}

// ListCommunities lists communities with optional search and mine filters
func (c *CommunityController) ListCommunities(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	var filter dto.CommunityFilterRequest
	if !middleware.BindQuery(ctx, &filter) {
		return
	}

	list, err := c.communityService.ListCommunities(ctx.Request.Context(), session, &filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list, ""))
}

// JoinCommunity adds the student to a community
func (c *CommunityController) JoinCommunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	membership, err := c.communityService.JoinCommunity(ctx.Request.Context(), session, id)
	if err != nil {
		c.logger.Debug().Err(err).Int64("communityID", id).Int64("userID", session.UserID).Msg("Join community rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(membership, "Joined community"))
}

// LeaveCommunity removes the student from a community
func (c *CommunityController) LeaveCommunity(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.communityService.LeaveCommunity(ctx.Request.Context(), session, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Left community"))
}

// ListMemberships lists the student's joined communities with progress
func (c *CommunityController) ListMemberships(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}

	memberships, err := c.communityService.ListMemberships(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(memberships, ""))
}

// ListMembers lists the members of a community owned by the teacher
func (c *CommunityController) ListMembers(ctx *gin.Context) {
	session, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	members, err := c.communityService.ListMembers(ctx.Request.Context(), session, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(members, ""))
}
