package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	achievementdomain "github.com/habitforge/habitforge/internal/achievement/domain"
	authdomain "github.com/habitforge/habitforge/internal/auth/domain"
	bossdomain "github.com/habitforge/habitforge/internal/boss/domain"
	chestdomain "github.com/habitforge/habitforge/internal/chest/domain"
	habitdomain "github.com/habitforge/habitforge/internal/habit/domain"
	questdomain "github.com/habitforge/habitforge/internal/quest/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware maps the last error a handler attached onto
// one JSON error shape. Handlers report errors through AbortWithError
// and never write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, habitdomain.ErrInvalidName),
		errors.Is(err, habitdomain.ErrInvalidDuration),
		errors.Is(err, habitdomain.ErrInvalidDate),
		errors.Is(err, questdomain.ErrInvalidTitle),
		errors.Is(err, authdomain.ErrInvalidUsername),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrWeakPassword):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, habitdomain.ErrNotFound),
		errors.Is(err, questdomain.ErrNotFound),
		errors.Is(err, achievementdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, achievementdomain.ErrUserNotFound),
		errors.Is(err, bossdomain.ErrUserNotFound),
		errors.Is(err, chestdomain.ErrUserNotFound),
		errors.Is(err, questdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, habitdomain.ErrAlreadyCompleted),
		errors.Is(err, bossdomain.ErrBossNotDefeated),
		errors.Is(err, chestdomain.ErrChestNotFull),
		errors.Is(err, authdomain.ErrUsernameTaken),
		errors.Is(err, authdomain.ErrEmailTaken):
		return true
	default:
		return false
	}
}
