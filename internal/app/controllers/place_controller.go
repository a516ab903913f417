package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/middleware"
	"github.com/helphive/servicehours/internal/pkg/geo"
)

// PlaceSearcher suggests places for a partial address.
type PlaceSearcher interface {
	Autocomplete(ctx context.Context, input string) ([]geo.Prediction, error)
}

// PlaceController proxies place autocomplete for the opportunity form
type PlaceController struct {
	places PlaceSearcher
}

// NewPlaceController creates a new PlaceController
func NewPlaceController(places PlaceSearcher) *PlaceController {
	return &PlaceController{places: places}
}

// Autocomplete returns predictions for the "input" query parameter
func (c *PlaceController) Autocomplete(ctx *gin.Context) {
	input := strings.TrimSpace(ctx.Query("input"))
	if input == "" {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "input is required").WithField("input")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	predictions, err := c.places.Autocomplete(ctx.Request.Context(), input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if predictions == nil {
		predictions = []geo.Prediction{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(predictions, ""))
}
