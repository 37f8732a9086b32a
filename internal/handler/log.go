package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aseli4488/cyoa-stats/internal/hashing"
	"github.com/aseli4488/cyoa-stats/internal/ingest"
	"github.com/aseli4488/cyoa-stats/internal/model"
	"github.com/aseli4488/cyoa-stats/internal/response"
)

// Ingestor runs a beacon through the ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, sub ingest.Submission) error
}

// LogReader reads stored beacons for one project.
type LogReader interface {
	ListByProject(ctx context.Context, projectID string) ([]model.LogEntry, error)
}

// ProjectLookup resolves a secret-key digest to its project.
type ProjectLookup interface {
	GetBySecretHash(ctx context.Context, secretKeyHash string) (*model.Project, error)
}

// LogHandler handles beacon submission and authenticated log retrieval.
type LogHandler struct {
	Pipeline       Ingestor
	Logs           LogReader
	Projects       ProjectLookup
	Hasher         *hashing.Hasher
	MaxBeaconBytes int
	MaxCSPBytes    int
}

type logRequest struct {
	ProjectID    string          `json:"project_id"`
	ProjectIDAlt string          `json:"projectId"`
	Data         json.RawMessage `json:"data"`
}

// Submit accepts a beacon as a JSON body (POST /api/log). `data` may be a
// JSON-encoded string or an object; both camelCase and snake_case project id
// keys are accepted.
func (h *LogHandler) Submit(c echo.Context) error {
	var req logRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	projectID := req.ProjectID
	if projectID == "" {
		projectID = req.ProjectIDAlt
	}
	sub := ingest.Submission{
		ProjectID: projectID,
		VisitorIP: c.RealIP(),
		Data:      payloadFromRaw(req.Data),
		SizeLimit: h.MaxBeaconBytes,
		LogType:   model.LogTypeBeacon,
	}
	return h.finishSubmission(c, sub)
}

// SubmitCSP accepts a beacon through query parameters (GET /api/log-csp),
// for clients restricted to simple requests. Responses are never cached.
func (h *LogHandler) SubmitCSP(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Response().Header().Set("Pragma", "no-cache")
	c.Response().Header().Set("Expires", "0")

	sub := ingest.Submission{
		ProjectID: c.QueryParam("projectId"),
		VisitorIP: c.RealIP(),
		Data:      ingest.RawString(c.QueryParam("data")),
		SizeLimit: h.MaxCSPBytes,
		LogType:   model.LogTypeCSP,
	}
	return h.finishSubmission(c, sub)
}

// finishSubmission maps pipeline outcomes to HTTP statuses. A deduplicated
// replay is indistinguishable from a fresh insert: both are 201.
func (h *LogHandler) finishSubmission(c echo.Context, sub ingest.Submission) error {
	err := h.Pipeline.Ingest(c.Request().Context(), sub)
	var rej *ingest.RejectError
	if errors.As(err, &rej) {
		switch rej.Code {
		case ingest.RejectPayloadTooLarge:
			return response.PayloadTooLarge(c, rej.Message, string(rej.Code))
		case ingest.RejectMissingPayloadFields:
			return response.BadRequestMissing(c, rej.Message, rej.Missing)
		default:
			return response.BadRequest(c, rej.Message, string(rej.Code))
		}
	}
	if err != nil {
		return response.InternalError(c, "failed to store log entry", err.Error())
	}
	return response.Created(c, nil, "log entry created")
}

// List returns all stored beacons for the project whose secret key is in the
// Authorization header (GET /api/log).
func (h *LogHandler) List(c echo.Context) error {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return response.Unauthorized(c, "missing bearer secret")
	}
	secret := strings.TrimPrefix(auth, "Bearer ")
	if secret == "" {
		return response.Unauthorized(c, "missing bearer secret")
	}

	project, err := h.Projects.GetBySecretHash(c.Request().Context(), h.Hasher.Sum(secret))
	if err != nil {
		return response.InternalError(c, "project lookup failed", err.Error())
	}
	if project == nil {
		return response.Unauthorized(c, "unknown secret key")
	}

	logs, err := h.Logs.ListByProject(c.Request().Context(), project.ProjectID)
	if err != nil {
		return response.InternalError(c, "list logs failed", err.Error())
	}
	if logs == nil {
		logs = []model.LogEntry{}
	}
	return response.OK(c, map[string]any{"logs": logs}, "")
}

// payloadFromRaw discriminates the two accepted data shapes. JSON strings
// become raw payloads, objects become structured ones; anything else is kept
// verbatim so the validator can name the violation.
func payloadFromRaw(raw json.RawMessage) ingest.Payload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ingest.Payload{}
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return ingest.RawString(s)
		}
	case '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err == nil {
			return ingest.StructuredValue(m)
		}
	}
	return ingest.RawString(string(trimmed))
}
