package models

import "time"

// Session lifecycle. A session leaves StatusInProgress exactly once and never
// re-enters it.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusIncomplete = "incomplete"
	StatusCancelled  = "cancelled"
)

type QuizSession struct {
	ID                    string     `bson:"_id,omitempty" json:"id"`
	UserID                string     `bson:"user_id" json:"user_id"`
	CourseID              string     `bson:"course_id" json:"course_id"`
	StartedAt             time.Time  `bson:"started_at" json:"started_at"`
	CompletedAt           *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Status                string     `bson:"status" json:"status"`
	TotalQuestions        int        `bson:"total_questions" json:"total_questions"`
	FinalScore            *float64   `bson:"final_score,omitempty" json:"final_score,omitempty"`
	InitialUserSkillLevel *float64   `bson:"initial_user_skill_level,omitempty" json:"initial_user_skill_level,omitempty"`
}

// Terminal reports whether the session has left in_progress.
func (s *QuizSession) Terminal() bool {
	return s.Status != StatusInProgress
}

// QuizSessionQuestion is one entry of a session's frozen roster. Written once
// at session creation, mutated exactly once when answered.
type QuizSessionQuestion struct {
	ID               string     `bson:"_id,omitempty" json:"id"`
	SessionID        string     `bson:"session_id" json:"session_id"`
	QuestionID       string     `bson:"question_id" json:"question_id"`
	OrderNumber      int        `bson:"order_number" json:"order_number"`
	IsAnswered       bool       `bson:"is_answered" json:"is_answered"`
	UserAnswer       string     `bson:"user_answer,omitempty" json:"user_answer,omitempty"`
	IsCorrect        *bool      `bson:"is_correct,omitempty" json:"is_correct,omitempty"`
	AnsweredAt       *time.Time `bson:"answered_at,omitempty" json:"answered_at,omitempty"`
	TimeTakenSeconds int        `bson:"time_taken_seconds" json:"time_taken_seconds"`
	SelectionReason  string     `bson:"selection_reason" json:"selection_reason"`
	SelectionScore   float64    `bson:"selection_score" json:"selection_score"`
	IsReported       bool       `bson:"is_reported" json:"is_reported"`
}

type User struct {
	ID                 string `bson:"_id,omitempty" json:"id"`
	TelegramID         int64  `bson:"telegram_id" json:"telegram_id"`
	FullName           string `bson:"full_name,omitempty" json:"full_name,omitempty"`
	PreferredProgramID string `bson:"preferred_program_id,omitempty" json:"preferred_program_id,omitempty"`
}
