package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/quizcore"
)

// SessionHandler exposes the quizcore facade over HTTP. Identity is a
// stub: the caller's user_id travels in the X-User-ID header, trusted
// as set by an upstream auth proxy. The core enforces the header
// against the session's owner but never authenticates it.
type SessionHandler struct {
	Engine *quizcore.Engine
}

func NewSessionHandler(engine *quizcore.Engine) *SessionHandler {
	return &SessionHandler{Engine: engine}
}

func userID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
		return "", false
	}
	return id, true
}

// CreateSession handles POST /sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req models.SessionConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	session, err := h.Engine.CreateSession(c.Request.Context(), uid, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSession handles GET /sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	session, err := h.Engine.GetSession(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// NextQuestion handles POST /sessions/:id/next.
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	result, err := h.Engine.NextQuestion(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.Complete {
		c.JSON(http.StatusOK, gin.H{"session_complete": true})
		return
	}
	c.JSON(http.StatusOK, result.Question)
}

// SubmitAnswer handles POST /sessions/:id/answer.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req struct {
		QuestionID string   `json:"question_id" binding:"required"`
		Selected   []string `json:"selected"`
		TimeS      int      `json:"time_s"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	outcome, err := h.Engine.SubmitAnswer(c.Request.Context(), c.Param("id"), uid, req.QuestionID, req.Selected, req.TimeS)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Progress handles GET /sessions/:id/progress.
func (h *SessionHandler) Progress(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	progress, err := h.Engine.Progress(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Pause handles POST /sessions/:id/pause.
func (h *SessionHandler) Pause(c *gin.Context) {
	h.transition(c, func(id, uid string) (*models.Session, error) {
		return h.Engine.Pause(c.Request.Context(), id, uid)
	})
}

// Resume handles POST /sessions/:id/resume.
func (h *SessionHandler) Resume(c *gin.Context) {
	h.transition(c, func(id, uid string) (*models.Session, error) {
		return h.Engine.Resume(c.Request.Context(), id, uid)
	})
}

// Cancel handles POST /sessions/:id/cancel.
func (h *SessionHandler) Cancel(c *gin.Context) {
	h.transition(c, func(id, uid string) (*models.Session, error) {
		return h.Engine.Cancel(c.Request.Context(), id, uid)
	})
}

// Complete handles POST /sessions/:id/complete.
func (h *SessionHandler) Complete(c *gin.Context) {
	h.transition(c, func(id, uid string) (*models.Session, error) {
		return h.Engine.Complete(c.Request.Context(), id, uid)
	})
}

func (h *SessionHandler) transition(c *gin.Context, call func(string, string) (*models.Session, error)) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	session, err := call(c.Param("id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
