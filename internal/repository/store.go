package repository

import (
	"context"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/engine"
	"github.com/Kevin-nav/AskTheSage/internal/models"
	"github.com/Kevin-nav/AskTheSage/internal/selection"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store composes the per-collection repositories into the engine's
// persistence contract.
type Store struct {
	Users        *UserRepository
	Courses      *CourseRepository
	Questions    *QuestionRepository
	Sessions     *SessionRepository
	Roster       *RosterRepository
	Answers      *AnswerRepository
	Interactions *InteractionRepository

	client *mongo.Client
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		Users:        NewUserRepository(db),
		Courses:      NewCourseRepository(db),
		Questions:    NewQuestionRepository(db),
		Sessions:     NewSessionRepository(db),
		Roster:       NewRosterRepository(db),
		Answers:      NewAnswerRepository(db),
		Interactions: NewInteractionRepository(db),
		client:       db.Client(),
	}
}

var _ engine.Repository = (*Store)(nil)

// InTransaction runs fn inside a mongo multi-document transaction. The
// session is carried on the context fn receives, so every collection write
// inside fn joins the transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) FindUser(ctx context.Context, userID string) (*models.User, error) {
	return s.Users.FindByID(ctx, userID)
}

func (s *Store) FindCourse(ctx context.Context, courseID string) (*models.Course, error) {
	return s.Courses.FindByID(ctx, courseID)
}

func (s *Store) FindQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	return s.Questions.FindByID(ctx, questionID)
}

// FetchPerformanceHistory folds the user's raw answer history for the course
// into one read-model row per question.
func (s *Store) FetchPerformanceHistory(ctx context.Context, userID, courseID string) ([]selection.UserPerformance, error) {
	meta, err := s.Questions.FindMetaByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(meta))
	for i, m := range meta {
		ids[i] = m.ID
	}

	answers, err := s.Answers.HistoryForQuestions(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	// Answers arrive oldest first, so the running row for each question ends
	// up holding the latest attempt's streak and review date.
	byQuestion := map[string]*selection.UserPerformance{}
	order := []string{}
	for i := range answers {
		a := &answers[i]
		perf, ok := byQuestion[a.QuestionID]
		if !ok {
			perf = &selection.UserPerformance{QuestionID: a.QuestionID}
			byQuestion[a.QuestionID] = perf
			order = append(order, a.QuestionID)
		}
		perf.TotalAttempts++
		if a.IsCorrect {
			perf.TotalCorrect++
		}
		perf.CorrectStreak = a.CorrectStreak
		perf.LastAttemptCorrect = a.IsCorrect
		perf.LastAttemptDate = a.Timestamp
		perf.NextReviewDate = a.NextReviewDate
	}

	out := make([]selection.UserPerformance, 0, len(order))
	for _, id := range order {
		out = append(out, *byQuestion[id])
	}
	return out, nil
}

func (s *Store) FetchQuestionMetadata(ctx context.Context, courseID string) ([]models.QuestionMeta, error) {
	return s.Questions.FindMetaByCourse(ctx, courseID)
}

func (s *Store) CreateSession(ctx context.Context, session *models.QuizSession) error {
	err := s.Sessions.Create(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return engine.ErrDuplicateSession
	}
	return err
}

func (s *Store) InsertRoster(ctx context.Context, roster []models.QuizSessionQuestion) error {
	return s.Roster.InsertMany(ctx, roster)
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.Roster.DeleteBySession(ctx, sessionID); err != nil {
		return err
	}
	return s.Sessions.Delete(ctx, sessionID)
}

func (s *Store) FindSession(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	return s.Sessions.FindByID(ctx, sessionID)
}

func (s *Store) FinishSession(ctx context.Context, sessionID, status string, finalScore float64, completedAt time.Time) error {
	return s.Sessions.Finish(ctx, sessionID, status, finalScore, completedAt)
}

func (s *Store) NextUnanswered(ctx context.Context, sessionID string, excludeIDs []string) (*models.QuizSessionQuestion, error) {
	return s.Roster.NextUnanswered(ctx, sessionID, excludeIDs)
}

func (s *Store) RosterEntry(ctx context.Context, sessionID, questionID string) (*models.QuizSessionQuestion, error) {
	return s.Roster.Entry(ctx, sessionID, questionID)
}

func (s *Store) MarkAnswered(ctx context.Context, sessionID, questionID, userAnswer string, isCorrect bool, timeTaken int, answeredAt time.Time) error {
	return s.Roster.MarkAnswered(ctx, sessionID, questionID, userAnswer, isCorrect, timeTaken, answeredAt)
}

func (s *Store) MarkReported(ctx context.Context, sessionID, questionID string) error {
	return s.Roster.MarkReported(ctx, sessionID, questionID)
}

func (s *Store) RosterCounts(ctx context.Context, sessionID string) (engine.RosterStats, error) {
	rows, err := s.Roster.FindBySession(ctx, sessionID)
	if err != nil {
		return engine.RosterStats{}, err
	}

	var stats engine.RosterStats
	for _, row := range rows {
		stats.Total++
		if row.IsReported {
			stats.Reported++
			if row.IsAnswered {
				stats.AnsweredReported++
			}
			continue
		}
		if row.IsAnswered {
			stats.Answered++
			if row.IsCorrect != nil && *row.IsCorrect {
				stats.Correct++
			}
		}
	}
	return stats, nil
}

func (s *Store) LatestAnswer(ctx context.Context, userID, questionID string) (*models.UserAnswer, error) {
	return s.Answers.Latest(ctx, userID, questionID)
}

func (s *Store) AppendAnswer(ctx context.Context, answer *models.UserAnswer) error {
	return s.Answers.Append(ctx, answer)
}

func (s *Store) IncrementQuestionStats(ctx context.Context, questionID string, incorrect bool) error {
	return s.Questions.IncrementStats(ctx, questionID, incorrect)
}

func (s *Store) CountInteractions(ctx context.Context, userID, questionID string) (int, error) {
	return s.Interactions.CountForQuestion(ctx, userID, questionID)
}

func (s *Store) AppendInteraction(ctx context.Context, entry *models.InteractionLog) error {
	return s.Interactions.Append(ctx, entry)
}

func (s *Store) LifetimeStats(ctx context.Context, userID string) (int, int, error) {
	return s.Interactions.LifetimeStats(ctx, userID)
}

func (s *Store) FinishedSessions(ctx context.Context, userID string) ([]models.QuizSession, error) {
	return s.Sessions.FinishedByUser(ctx, userID)
}

func (s *Store) StaleSessions(ctx context.Context, cutoff time.Time) ([]models.QuizSession, error) {
	return s.Sessions.StaleBefore(ctx, cutoff)
}
