package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	memberdomain "github.com/otherscentered/platform/internal/member/domain"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

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
	case errors.Is(err, needdomain.ErrNotFound), errors.Is(err, memberdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "resource not found"}
	case errors.Is(err, needdomain.ErrIllegalTransition):
		return http.StatusConflict, errorPayload{Type: "illegal_transition", Message: "transition not allowed from current status"}
	case errors.Is(err, needdomain.ErrInvalidID),
		errors.Is(err, needdomain.ErrInvalidTitle),
		errors.Is(err, needdomain.ErrInvalidAmount),
		errors.Is(err, needdomain.ErrInvalidHelper),
		errors.Is(err, memberdomain.ErrInvalidEmail),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
