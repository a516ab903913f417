package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/models/dto"
)

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthController reports the state of the database and other backends
type HealthController struct {
	checks map[string]Pinger
}

// NewHealthController creates a health controller. Nil checks are skipped.
func NewHealthController(checks map[string]Pinger) *HealthController {
	active := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			active[name] = p
		}
	}
	return &HealthController{checks: active}
}

// Health pings every backend and answers 503 if any is down
func (c *HealthController) Health(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(c.checks))
	for name, p := range c.checks {
		if err := p.Ping(reqCtx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	if status != http.StatusOK {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Service unavailable").WithDetails(results)
		ctx.JSON(status, dto.NewErrorResponse(errorDetail))
		return
	}
	ctx.JSON(status, dto.NewSuccessResponse(results, "healthy"))
}
