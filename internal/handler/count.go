package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aseli4488/cyoa-stats/internal/response"
)

// cacheMaxAge is how long clients may cache count responses, in seconds.
const cacheMaxAge = "public, max-age=600"

// StatsSource produces the public summary statistics.
type StatsSource interface {
	AdjustedTotalTime(ctx context.Context) (int64, error)
	Visitors(ctx context.Context) (int64, error)
	Projects(ctx context.Context) (int64, error)
	Builds(ctx context.Context) (int64, error)
}

// CountHandler serves the read-only aggregate endpoints. Responses are bare
// JSON objects (no envelope) because the field names are the client contract
// and the bodies are cached downstream.
type CountHandler struct {
	Stats StatsSource
}

// TotalTime returns the capped total time on page (GET /api/count).
func (h *CountHandler) TotalTime(c echo.Context) error {
	total, err := h.Stats.AdjustedTotalTime(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "count query failed", err.Error())
	}
	return h.cached(c, map[string]int64{"adjustedTotalTime": total})
}

// Visitors returns the distinct visitor count (GET /api/count/visitors).
func (h *CountHandler) Visitors(c echo.Context) error {
	n, err := h.Stats.Visitors(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "count query failed", err.Error())
	}
	return h.cached(c, map[string]int64{"visitors": n})
}

// Projects returns the registered project count (GET /api/count/projects).
func (h *CountHandler) Projects(c echo.Context) error {
	n, err := h.Stats.Projects(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "count query failed", err.Error())
	}
	return h.cached(c, map[string]int64{"projects": n})
}

// Builds returns the distinct content-hash count (GET /api/count/builds).
func (h *CountHandler) Builds(c echo.Context) error {
	n, err := h.Stats.Builds(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "count query failed", err.Error())
	}
	return h.cached(c, map[string]int64{"builds": n})
}

func (h *CountHandler) cached(c echo.Context, body any) error {
	c.Response().Header().Set("Cache-Control", cacheMaxAge)
	return c.JSON(http.StatusOK, body)
}
