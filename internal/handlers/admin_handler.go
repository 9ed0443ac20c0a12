package handlers

import (
	"context"
	"net/http"

	"github.com/Kevin-nav/AskTheSage/internal/models"
	"github.com/Kevin-nav/AskTheSage/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminHandler covers content management: question intake and course
// difficulty calibration.
type AdminHandler struct {
	Store *repository.Store
}

func NewAdminHandler(store *repository.Store) *AdminHandler {
	return &AdminHandler{Store: store}
}

func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid question format",
			"details": err.Error(),
		})
		return
	}
	if question.CourseID == "" || question.Text == "" || question.CorrectAnswer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id, text and correct_answer are required"})
		return
	}
	if !question.HasCorrectOption() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correct_answer must appear among the options"})
		return
	}

	if err := h.Store.Questions.Create(context.Background(), &question); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *AdminHandler) GetQuestion(c *gin.Context) {
	question, err := h.Store.Questions.FindByID(context.Background(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *AdminHandler) ListCourses(c *gin.Context) {
	courses, err := h.Store.Courses.FindAll(context.Background())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses, "count": len(courses)})
}

// RecalculateCourse refreshes the course's min/max difficulty bounds from its
// scored questions. Run after bulk imports or difficulty recalibration.
func (h *AdminHandler) RecalculateCourse(c *gin.Context) {
	courseID := c.Param("id")
	ctx := context.Background()

	if _, err := h.Store.Courses.FindByID(ctx, courseID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}

	err := h.Store.Courses.RecalculateDifficultyRange(ctx, h.Store.Questions.Col, courseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	course, err := h.Store.Courses.FindByID(ctx, courseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, course)
}
