package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/engine"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	Engine     *engine.Engine
	StaleAfter time.Duration
}

func NewQuizHandler(e *engine.Engine, staleAfter time.Duration) *QuizHandler {
	return &QuizHandler{Engine: e, StaleAfter: staleAfter}
}

// StartQuiz creates a session with a frozen adaptive roster.
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	var req struct {
		CourseID   string `json:"course_id" binding:"required"`
		QuizLength int    `json:"quiz_length" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID is required"})
		return
	}

	result, err := h.Engine.StartQuiz(context.Background(), userID, req.CourseID, req.QuizLength)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session":   result,
		"next_step": "Call /next endpoint or answer the first question",
	})
}

// NextQuestion serves the lowest-order unanswered roster question.
func (h *QuizHandler) NextQuestion(c *gin.Context) {
	sessionID := c.Param("id")

	question, err := h.Engine.GetNextQuestion(context.Background(), sessionID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if question == nil {
		c.JSON(http.StatusOK, gin.H{
			"completed": true,
			"message":   "No questions remain in this session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"question": question})
}

// SubmitAnswer records an answer and returns the outcome plus the next
// question, or the final score when the quiz completes.
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		QuestionID string `json:"question_id" binding:"required"`
		Answer     string `json:"answer" binding:"required"`
		TimeTaken  int    `json:"time_taken_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid answer format",
			"details": err.Error(),
		})
		return
	}

	result, err := h.Engine.SubmitAnswer(context.Background(), sessionID, req.QuestionID, req.Answer, req.TimeTaken)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	if result.QuizCompleted {
		c.Set("quiz_completed", true)
	}
	c.JSON(http.StatusOK, result)
}

// SkipQuestion records a skip, which counts as a wrong answer.
func (h *QuizHandler) SkipQuestion(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		QuestionID string `json:"question_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Engine.SkipQuestion(context.Background(), sessionID, req.QuestionID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	if result.QuizCompleted {
		c.Set("quiz_completed", true)
	}
	c.JSON(http.StatusOK, result)
}

// ReportQuestion flags a broken question; it stops being served and drops out
// of the score denominator.
func (h *QuizHandler) ReportQuestion(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		QuestionID string `json:"question_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Engine.ReportQuestion(context.Background(), sessionID, req.QuestionID); err != nil {
		writeEngineError(c, err)
		return
	}

	next, err := h.Engine.GetNextQuestion(context.Background(), sessionID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reported":      true,
		"next_question": next,
	})
}

// EndEarly finalizes the session as incomplete, scored over what was
// answered.
func (h *QuizHandler) EndEarly(c *gin.Context) {
	sessionID := c.Param("id")

	result, err := h.Engine.EndQuizEarly(context.Background(), sessionID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cancel abandons the session. An untouched session disappears entirely.
func (h *QuizHandler) Cancel(c *gin.Context) {
	sessionID := c.Param("id")

	result, err := h.Engine.CancelQuizSession(context.Background(), sessionID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PerformanceReport aggregates the calling user's lifetime and per-course
// statistics.
func (h *QuizHandler) PerformanceReport(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID is required"})
		return
	}

	report, err := h.Engine.GetPerformanceReport(context.Background(), userID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ResolveStale sweeps abandoned in_progress sessions to incomplete. Admin
// maintenance endpoint, normally driven by a cron.
func (h *QuizHandler) ResolveStale(c *gin.Context) {
	resolved, err := h.Engine.ResolveStaleSessions(context.Background(), h.StaleAfter)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": resolved})
}

func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrDuplicateSession):
		c.JSON(http.StatusConflict, gin.H{
			"error": "An in-progress session already exists for this user",
			"code":  "DUPLICATE_SESSION",
		})
	case errors.Is(err, engine.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInsufficientQuestions):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"code":  "INSUFFICIENT_QUESTIONS",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
