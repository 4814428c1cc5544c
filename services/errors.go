package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Business-rule errors. They reflect intentional policy, are surfaced to the
// caller verbatim, and are never auto-retried.
var (
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrEventFull         = errors.New("event is full")
	ErrEventNotJoinable  = errors.New("event is not open for joining")
	ErrEventNotActive    = errors.New("event is not active")
	ErrAlreadySubmitted  = errors.New("participant already has a pending or approved submission for this event")
	ErrIntegrityFailure  = errors.New("artifact bytes do not match the stored content hash")
	ErrUnparseableScore  = errors.New("submission time cannot be parsed")
)

// ValidationError marks malformed input caught at the boundary.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// statusForError maps a domain error to the HTTP status the handlers return.
func statusForError(err error) int {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, ErrUnparseableScore):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, ErrEventFull), errors.Is(err, ErrEventNotJoinable), errors.Is(err, ErrEventNotActive):
		return fiber.StatusForbidden
	case errors.Is(err, ErrAlreadySubmitted), errors.Is(err, ErrIntegrityFailure):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
}
