package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradearena/internal/match"
	"tradearena/internal/repository"
	"tradearena/internal/service"
)

// statusFor maps the error taxonomy to HTTP statuses in one place.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, match.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, match.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, match.ErrMatchNotFound),
		errors.Is(err, match.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, match.ErrInvalidTransition),
		errors.Is(err, match.ErrPhaseViolation),
		errors.Is(err, match.ErrPreconditionNotMet),
		errors.Is(err, match.ErrDuplicateWindow),
		errors.Is(err, match.ErrOutOfSequence),
		errors.Is(err, match.ErrSessionExists),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	Error(c, statusFor(err), err.Error(), nil)
}
