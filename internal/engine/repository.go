package engine

import (
	"context"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"
	"github.com/Kevin-nav/AskTheSage/internal/selection"
)

// RosterStats summarizes a session's roster for scoring. Reported rows are
// excluded from Answered and Correct; they count only in Reported and
// AnsweredReported.
type RosterStats struct {
	Total            int
	Answered         int
	Correct          int
	Reported         int
	AnsweredReported int
}

// AnsweredRaw is the number of answered rows regardless of reported status.
// Cancel uses it to decide between hard delete and terminal transition.
func (s RosterStats) AnsweredRaw() int {
	return s.Answered + s.AnsweredReported
}

// Repository is the persistence contract the engine runs against. Each engine
// operation issues its reads and writes through this interface in a fixed
// order; the implementation is responsible for making a write sequence inside
// InTransaction atomic and for enforcing the single in_progress session per
// user constraint with a unique index rather than a check-then-act.
type Repository interface {
	// InTransaction runs fn so that either every write issued through the
	// repository inside it is applied, or none is. Writes within fn must use
	// the context it receives.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	FindUser(ctx context.Context, userID string) (*models.User, error)
	FindCourse(ctx context.Context, courseID string) (*models.Course, error)
	FindQuestion(ctx context.Context, questionID string) (*models.Question, error)

	// FetchPerformanceHistory rebuilds the per-question read model from the
	// user's answer history in the course. DifficultyScore is left unset;
	// the engine joins it in from question metadata.
	FetchPerformanceHistory(ctx context.Context, userID, courseID string) ([]selection.UserPerformance, error)
	FetchQuestionMetadata(ctx context.Context, courseID string) ([]models.QuestionMeta, error)

	// CreateSession must return ErrDuplicateSession when the partial unique
	// index on in_progress sessions rejects the insert.
	CreateSession(ctx context.Context, session *models.QuizSession) error
	InsertRoster(ctx context.Context, roster []models.QuizSessionQuestion) error
	// DeleteSession removes a session and its roster. Used both for the
	// compensating rollback during start and for cancelling an untouched
	// session.
	DeleteSession(ctx context.Context, sessionID string) error
	FindSession(ctx context.Context, sessionID string) (*models.QuizSession, error)
	FinishSession(ctx context.Context, sessionID, status string, finalScore float64, completedAt time.Time) error

	NextUnanswered(ctx context.Context, sessionID string, excludeIDs []string) (*models.QuizSessionQuestion, error)
	RosterEntry(ctx context.Context, sessionID, questionID string) (*models.QuizSessionQuestion, error)
	MarkAnswered(ctx context.Context, sessionID, questionID, userAnswer string, isCorrect bool, timeTaken int, answeredAt time.Time) error
	MarkReported(ctx context.Context, sessionID, questionID string) error
	RosterCounts(ctx context.Context, sessionID string) (RosterStats, error)

	LatestAnswer(ctx context.Context, userID, questionID string) (*models.UserAnswer, error)
	AppendAnswer(ctx context.Context, answer *models.UserAnswer) error
	IncrementQuestionStats(ctx context.Context, questionID string, incorrect bool) error

	CountInteractions(ctx context.Context, userID, questionID string) (int, error)
	AppendInteraction(ctx context.Context, entry *models.InteractionLog) error
	LifetimeStats(ctx context.Context, userID string) (attempts, correct int, err error)

	// FinishedSessions returns the user's non-in_progress sessions, most
	// recent first.
	FinishedSessions(ctx context.Context, userID string) ([]models.QuizSession, error)
	// StaleSessions returns in_progress sessions started before the cutoff.
	StaleSessions(ctx context.Context, cutoff time.Time) ([]models.QuizSession, error)
}
