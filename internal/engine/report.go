package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"
)

// CourseReport aggregates a user's performance in one course.
type CourseReport struct {
	CourseID     string  `json:"course_id"`
	CourseName   string  `json:"course_name"`
	Quizzes      int     `json:"quizzes"`
	AverageScore float64 `json:"average_score"`
}

// SessionSummary describes one past session for the report's recent list.
type SessionSummary struct {
	SessionID   string     `json:"session_id"`
	CourseID    string     `json:"course_id"`
	Status      string     `json:"status"`
	Answered    int        `json:"answered"`
	Correct     int        `json:"correct"`
	FinalScore  *float64   `json:"final_score,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PerformanceReport is the full lifetime view returned to the caller.
type PerformanceReport struct {
	TotalAttempts    int              `json:"total_attempts"`
	TotalCorrect     int              `json:"total_correct"`
	LifetimeAccuracy float64          `json:"lifetime_accuracy"`
	PreferredCourses []CourseReport   `json:"preferred_courses"`
	OtherCourses     []CourseReport   `json:"other_courses"`
	RecentSessions   []SessionSummary `json:"recent_sessions"`
}

// GetPerformanceReport aggregates lifetime accuracy from the interaction log,
// per-course averages split by the user's preferred program, and the user's
// last three finished sessions.
func (e *Engine) GetPerformanceReport(ctx context.Context, userID string) (*PerformanceReport, error) {
	user, err := e.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user %s", ErrValidation, userID)
	}

	attempts, correct, err := e.repo.LifetimeStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lifetime stats: %w", err)
	}

	report := &PerformanceReport{
		TotalAttempts:    attempts,
		TotalCorrect:     correct,
		LifetimeAccuracy: ratioScore(correct, attempts),
		PreferredCourses: []CourseReport{},
		OtherCourses:     []CourseReport{},
		RecentSessions:   []SessionSummary{},
	}

	sessions, err := e.repo.FinishedSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("finished sessions: %w", err)
	}
	if len(sessions) == 0 {
		return report, nil
	}

	type bucket struct {
		course  *models.Course
		quizzes int
		sum     float64
	}
	perCourse := make(map[string]*bucket)
	courseOrder := []string{}

	for _, session := range sessions {
		if session.FinalScore == nil {
			continue
		}
		b, ok := perCourse[session.CourseID]
		if !ok {
			course, err := e.repo.FindCourse(ctx, session.CourseID)
			if err != nil {
				// A deleted course must not break the whole report.
				continue
			}
			b = &bucket{course: course}
			perCourse[session.CourseID] = b
			courseOrder = append(courseOrder, session.CourseID)
		}
		b.quizzes++
		b.sum += *session.FinalScore
	}

	for _, courseID := range courseOrder {
		b := perCourse[courseID]
		entry := CourseReport{
			CourseID:     courseID,
			CourseName:   b.course.Name,
			Quizzes:      b.quizzes,
			AverageScore: b.sum / float64(b.quizzes),
		}
		if b.course.InProgram(user.PreferredProgramID) {
			report.PreferredCourses = append(report.PreferredCourses, entry)
		} else {
			report.OtherCourses = append(report.OtherCourses, entry)
		}
	}

	recent := sessions
	if len(recent) > 3 {
		recent = recent[:3]
	}
	for _, session := range recent {
		stats, err := e.repo.RosterCounts(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("roster counts for %s: %w", session.ID, err)
		}
		report.RecentSessions = append(report.RecentSessions, SessionSummary{
			SessionID:   session.ID,
			CourseID:    session.CourseID,
			Status:      session.Status,
			Answered:    stats.Answered,
			Correct:     stats.Correct,
			FinalScore:  session.FinalScore,
			CompletedAt: session.CompletedAt,
		})
	}

	return report, nil
}
