package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/aseli4488/cyoa-stats/internal/model"
	"github.com/aseli4488/cyoa-stats/internal/response"
)

// ProjectLister reads the admin project summaries.
type ProjectLister interface {
	ListSummaries(ctx context.Context) ([]model.ProjectSummary, error)
}

// AdminHandler serves the admin listing endpoints.
type AdminHandler struct {
	Logs     LogReader
	Projects ProjectLister
}

// ListLogs returns all beacons for one project (GET /admin/api/log).
func (h *AdminHandler) ListLogs(c echo.Context) error {
	projectID := c.QueryParam("project_id")
	if projectID == "" {
		return response.BadRequest(c, "missing project_id", "query param project_id is required")
	}
	logs, err := h.Logs.ListByProject(c.Request().Context(), projectID)
	if err != nil {
		return response.InternalError(c, "list logs failed", err.Error())
	}
	if logs == nil {
		logs = []model.LogEntry{}
	}
	return response.OK(c, map[string]any{"logs": logs}, "")
}

// ListProjects returns every project with its most recent beacon URL
// (GET /admin/api/projects).
func (h *AdminHandler) ListProjects(c echo.Context) error {
	list, err := h.Projects.ListSummaries(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "list projects failed", err.Error())
	}
	if list == nil {
		list = []model.ProjectSummary{}
	}
	return response.OK(c, map[string]any{"projects": list}, "")
}
