package api

import (
	"alcyxob/classroom/internal/coursesync"
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/service"
	"alcyxob/classroom/internal/storage"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DegradedResponse wraps a result whose mutation was applied but not fully
// persisted.
type DegradedResponse struct {
	Result           any    `json:"result"`
	SavedLocallyOnly bool   `json:"savedLocallyOnly"`
	Warning          string `json:"warning"`
}

// respondError maps service and domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoSubmission):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrInvalidItemKind),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNoFile),
		errors.Is(err, storage.ErrInvalidFileName):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoSession):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, coursesync.ErrNotLoaded):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// respondApplied writes result for a mutation. A persistence failure after
// the mutation was applied still answers with the result, as 202.
func respondApplied(c *gin.Context, status int, result any, err error) bool {
	if err == nil {
		if result == nil {
			c.Status(status)
		} else {
			c.JSON(status, result)
		}
		return true
	}
	if !service.Applied(err) {
		respondError(c, err)
		return false
	}
	c.JSON(http.StatusAccepted, DegradedResponse{
		Result:           result,
		SavedLocallyOnly: errors.Is(err, coursesync.ErrRemoteWriteFailed),
		Warning:          err.Error(),
	})
	return true
}

// notifier pushes the current subject list to live clients after a local
// mutation.
type notifier struct {
	courses service.CourseService
	hub     *LiveHub
}

func (n notifier) notify() {
	if n.hub == nil {
		return
	}
	subjects, err := n.courses.ListSubjects()
	if err != nil {
		return
	}
	n.hub.Broadcast(SourceLocal, subjects)
}
