package http

import (
	"errors"
	"net/http"
	"strings"

	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/logger"
	"sacco-workflow/internal/usecase/engine"
	"sacco-workflow/pkg/id"

	"github.com/labstack/echo/v4"
)

// Identity comes from the gateway; these headers are trusted as-is.
const (
	HeaderActorID   = "Ax-Actor-Id"
	HeaderActorRole = "Ax-Actor-Role"
)

var errBadActor = errors.New("missing or invalid actor headers")

func actorFrom(c echo.Context) (engine.Actor, error) {
	actorID := strings.TrimSpace(c.Request().Header.Get(HeaderActorID))
	role := workflow.Role(strings.TrimSpace(c.Request().Header.Get(HeaderActorRole)))
	if !id.Valid(actorID) || !role.Valid() {
		return engine.Actor{}, errBadActor
	}
	return engine.Actor{ID: actorID, Role: role}, nil
}

func badActor(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "requires " + HeaderActorID + " (32-char hex) and a known " + HeaderActorRole,
	})
}

func forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, ErrorResponse{Error: msg})
}

// bind decodes and validates the body; it writes the 400/422 response
// itself and reports whether the handler should continue.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

// Map domain errors → HTTP codes
func statusFor(err error) int {
	switch workflow.KindOf(err) {
	case workflow.KindValidation:
		return http.StatusUnprocessableEntity
	case workflow.KindAuthorization:
		return http.StatusForbidden
	case workflow.KindInvalidState:
		return http.StatusConflict
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindCollaboratorUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
		return c.JSON(code, ErrorResponse{Error: "internal error"})
	}
	resp := ErrorResponse{Error: err.Error()}
	var we *workflow.Error
	if errors.As(err, &we) {
		resp.Error = we.Message
		resp.Reason = we.Reason
	}
	return c.JSON(code, resp)
}
