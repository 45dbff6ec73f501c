package web

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"ragqa/internal/domain"
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

func ErrBadRequest() Error {
	return NewError(fiber.StatusBadRequest, "invalid JSON request")
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errs map[string]string) ValidationError {
	return ValidationError{Status: fiber.StatusUnprocessableEntity, Errors: errs}
}

// statusOf maps pipeline errors onto HTTP status codes.
func statusOf(err error) int {
	var (
		fe     *fiber.Error
		retErr *domain.RetrievalBackendError
		genErr *domain.GenerationBackendError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrEmptyQuery), errors.Is(err, domain.ErrInvalidTopK):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrIndexNotFound):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrNoDocuments):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &retErr), errors.As(err, &genErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every handler error as JSON.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr Error
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Code).JSON(apiErr)
		}
		var valErr ValidationError
		if errors.As(err, &valErr) {
			return c.Status(valErr.Status).JSON(valErr)
		}

		apiErr = NewError(statusOf(err), err.Error())
		level := slog.LevelWarn
		if apiErr.Code >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.UserContext(), level, "request failed",
			"request_id", requestID(c), "path", c.Path(), "code", apiErr.Code, "error", err)
		return c.Status(apiErr.Code).JSON(apiErr)
	}
}
