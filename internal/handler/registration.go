package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aseli4488/cyoa-stats/internal/hashing"
	"github.com/aseli4488/cyoa-stats/internal/mailer"
	"github.com/aseli4488/cyoa-stats/internal/model"
	"github.com/aseli4488/cyoa-stats/internal/response"
)

// ProjectCreator persists a newly registered project.
type ProjectCreator interface {
	Create(ctx context.Context, p *model.Project) error
}

// RegistrationHandler issues project credentials (GET /api/registration).
type RegistrationHandler struct {
	Projects ProjectCreator
	Hasher   *hashing.Hasher
	Mailer   *mailer.Mailer
}

type registrationResponse struct {
	ProjectID string `json:"project_id"`
	SecretKey string `json:"secret_key"`
}

// Register creates a project id and secret key pair. Only the secret's digest
// is stored; the raw secret appears in this response (and the optional email)
// and nowhere else. Mail delivery failure does not fail the registration.
func (h *RegistrationHandler) Register(c echo.Context) error {
	email := c.QueryParam("email")
	if email != "" {
		if err := h.Mailer.ValidateRecipient(email); err != nil {
			return response.BadRequest(c, "invalid email address", err.Error())
		}
	}

	projectID := uuid.NewString()
	secretKey := uuid.NewString()

	project := &model.Project{
		ProjectID:     projectID,
		SecretKeyHash: h.Hasher.Sum(secretKey),
	}
	if email != "" {
		project.Email = &email
	}
	if err := h.Projects.Create(c.Request().Context(), project); err != nil {
		return response.InternalError(c, "failed to register project", err.Error())
	}

	if email != "" {
		// Best effort; the response below already carries the credentials.
		_ = h.Mailer.SendCredentials(c.Request().Context(), email, projectID, secretKey)
	}

	return response.Created(c, registrationResponse{
		ProjectID: projectID,
		SecretKey: secretKey,
	}, "store the secret key now; it cannot be recovered later")
}
