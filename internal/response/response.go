package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the standard success response shape.
type APIResponse struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
}

// APIError is the standard error response shape. Message names the violated
// rule in human-readable form.
type APIError struct {
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Path    string   `json:"path"`
	Status  int      `json:"status"`
	Missing []string `json:"missing,omitempty"`
}

// pathFromContext returns the request path from Echo context.
func pathFromContext(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// OK sends a 200 response with data.
func OK(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, APIResponse{
		Data:    data,
		Status:  http.StatusOK,
		Message: message,
		Path:    pathFromContext(c),
	})
}

// Created sends a 201 response with data.
func Created(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusCreated, APIResponse{
		Data:    data,
		Status:  http.StatusCreated,
		Message: message,
		Path:    pathFromContext(c),
	})
}

// Error sends a JSON error response using APIError.
func Error(c echo.Context, status int, message, errDetail string) error {
	return c.JSON(status, APIError{
		Message: message,
		Error:   errDetail,
		Path:    pathFromContext(c),
		Status:  status,
	})
}

// BadRequest sends 400 with message and error detail.
func BadRequest(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusBadRequest, message, errDetail)
}

// BadRequestMissing sends 400 enumerating the missing payload fields.
func BadRequestMissing(c echo.Context, message string, missing []string) error {
	return c.JSON(http.StatusBadRequest, APIError{
		Message: message,
		Error:   message,
		Path:    pathFromContext(c),
		Status:  http.StatusBadRequest,
		Missing: missing,
	})
}

// Unauthorized sends 401.
func Unauthorized(c echo.Context, message string) error {
	return Error(c, http.StatusUnauthorized, message, message)
}

// PayloadTooLarge sends 413 with message and error detail.
func PayloadTooLarge(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusRequestEntityTooLarge, message, errDetail)
}

// InternalError sends 500 with message and error detail.
func InternalError(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusInternalServerError, message, errDetail)
}
