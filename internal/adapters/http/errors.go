package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, failed_precondition, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errFailedPrecondition returns a 409 error for a mutation whose target does
// not exist in the current registry state.
func errFailedPrecondition(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "failed_precondition", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errFromDomain maps a zone operation error onto the API error taxonomy.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return errFailedPrecondition(c, err.Error())
	case errors.Is(err, domain.ErrZoneNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidRate), errors.Is(err, domain.ErrInvalidPoint):
		return errBadRequest(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
