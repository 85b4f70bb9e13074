package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`            // bad_request, not_found, unprocessable, ...
	Message   string `json:"message"`         // Human-readable message
	Stage     string `json:"stage,omitempty"` // pipeline stage for conversion failures
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// errConversion reports a conversion failure caused by the submitted data.
func errConversion(c *fiber.Ctx, err error) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusUnprocessableEntity).JSON(APIError{
		Status:    fiber.StatusUnprocessableEntity,
		Code:      "unprocessable",
		Message:   err.Error(),
		Stage:     domain.StageOf(err),
		RequestID: reqID,
	})
}

// serviceError maps a usecase error onto a response.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case domain.IsInputError(err):
		return errConversion(c, err)
	case errors.Is(err, domain.ErrRenderNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, usecases.ErrHistoryDisabled):
		return errUnavailable(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
