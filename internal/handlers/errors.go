package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaptive-quiz-core/internal/coreerr"
)

// writeError maps a coreerr.Code to an HTTP status once, at the edge --
// the core never returns a status code, only a typed error.
func writeError(c *gin.Context, err error) {
	ce, ok := err.(*coreerr.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch ce.Code {
	case coreerr.InvalidSessionConfig, coreerr.InvalidAnswer, coreerr.InvalidTransition:
		status = http.StatusBadRequest
	case coreerr.SessionNotFound, coreerr.QuestionNotFound:
		status = http.StatusNotFound
	case coreerr.UserMismatch:
		status = http.StatusForbidden
	case coreerr.Concurrent:
		status = http.StatusConflict
	case coreerr.SessionNotServing, coreerr.InsufficientQuestions:
		status = http.StatusUnprocessableEntity
	case coreerr.Timeout:
		status = http.StatusGatewayTimeout
	case coreerr.StorageUnavailable:
		status = http.StatusServiceUnavailable
	case coreerr.Corrupted:
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": ce.Message, "code": ce.Code}
	if ce.Field != "" {
		body["field"] = ce.Field
	}
	c.JSON(status, body)
}
