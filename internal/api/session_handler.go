package api

import (
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/service"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionHandler exchanges an identity from the external sign-in flow for a
// session token bound to a course.
type SessionHandler struct {
	sessionService service.SessionService
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// --- Request/Response Structs ---

type StartSessionRequest struct {
	ID     string      `json:"id" binding:"required"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role" binding:"required,oneof=instructor student"`
	Course string      `json:"course"`
}

type SessionResponse struct {
	Token   string         `json:"token,omitempty"`
	Session domain.Session `json:"session"`
	Warning string         `json:"warning,omitempty"` // Sync problem during course load
}

// StartSession godoc
// @Summary Start a session
// @Description Records the signed-in identity, binds it to its course and returns a token.
// @Tags Session
// @Accept json
// @Produce json
// @Param session body StartSessionRequest true "Identity"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /session [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, session, err := h.sessionService.Start(c.Request.Context(), service.SessionInput{
		ID:     req.ID,
		Name:   req.Name,
		Role:   req.Role,
		Course: req.Course,
	})
	if session == nil {
		respondError(c, err)
		return
	}

	resp := SessionResponse{Token: token, Session: *session}
	if err != nil {
		log.Printf("WARN: Session '%s' started with sync warning: %v", session.ID, err)
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// GetSession returns the identity carried by the caller's token.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := getSessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get session from token")
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Session: *session})
}

// EndSession clears the stored session record.
func (h *SessionHandler) EndSession(c *gin.Context) {
	if err := h.sessionService.End(); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
