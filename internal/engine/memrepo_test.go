package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"
	"github.com/Kevin-nav/AskTheSage/internal/selection"
)

var errNotFound = errors.New("not found")

// memRepo is an in-memory Repository for engine tests. It mirrors the mongo
// store's behavior, including the unique in_progress constraint.
type memRepo struct {
	users     map[string]*models.User
	courses   map[string]*models.Course
	questions map[string]*models.Question

	sessions     map[string]*models.QuizSession
	roster       []*models.QuizSessionQuestion
	answers      []*models.UserAnswer
	interactions []*models.InteractionLog

	// statsErr, when set, makes IncrementQuestionStats fail, for exercising
	// the transactional rollback of the submit write sequence.
	statsErr error

	nextID int
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:     map[string]*models.User{},
		courses:   map[string]*models.Course{},
		questions: map[string]*models.Question{},
		sessions:  map[string]*models.QuizSession{},
	}
}

func (m *memRepo) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

// memSnapshot captures the mutable state the submit sequence touches.
type memSnapshot struct {
	questions    map[string]models.Question
	sessions     map[string]models.QuizSession
	roster       []models.QuizSessionQuestion
	answers      []models.UserAnswer
	interactions []models.InteractionLog
	nextID       int
}

func (m *memRepo) snapshot() memSnapshot {
	snap := memSnapshot{
		questions: map[string]models.Question{},
		sessions:  map[string]models.QuizSession{},
		nextID:    m.nextID,
	}
	for id, q := range m.questions {
		snap.questions[id] = *q
	}
	for id, s := range m.sessions {
		snap.sessions[id] = *s
	}
	for _, row := range m.roster {
		snap.roster = append(snap.roster, *row)
	}
	for _, a := range m.answers {
		snap.answers = append(snap.answers, *a)
	}
	for _, entry := range m.interactions {
		snap.interactions = append(snap.interactions, *entry)
	}
	return snap
}

func (m *memRepo) restore(snap memSnapshot) {
	m.questions = map[string]*models.Question{}
	for id := range snap.questions {
		q := snap.questions[id]
		m.questions[id] = &q
	}
	m.sessions = map[string]*models.QuizSession{}
	for id := range snap.sessions {
		s := snap.sessions[id]
		m.sessions[id] = &s
	}
	m.roster = nil
	for i := range snap.roster {
		row := snap.roster[i]
		m.roster = append(m.roster, &row)
	}
	m.answers = nil
	for i := range snap.answers {
		a := snap.answers[i]
		m.answers = append(m.answers, &a)
	}
	m.interactions = nil
	for i := range snap.interactions {
		entry := snap.interactions[i]
		m.interactions = append(m.interactions, &entry)
	}
	m.nextID = snap.nextID
}

// InTransaction mirrors the mongo store's transactional contract: any error
// from fn rolls every write back.
func (m *memRepo) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memRepo) FindUser(ctx context.Context, userID string) (*models.User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, errNotFound
}

func (m *memRepo) FindCourse(ctx context.Context, courseID string) (*models.Course, error) {
	if c, ok := m.courses[courseID]; ok {
		return c, nil
	}
	return nil, errNotFound
}

func (m *memRepo) FindQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	if q, ok := m.questions[questionID]; ok {
		return q, nil
	}
	return nil, errNotFound
}

func (m *memRepo) FetchPerformanceHistory(ctx context.Context, userID, courseID string) ([]selection.UserPerformance, error) {
	byQuestion := map[string][]*models.UserAnswer{}
	for _, a := range m.answers {
		q, ok := m.questions[a.QuestionID]
		if !ok || q.CourseID != courseID || a.UserID != userID {
			continue
		}
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}

	var out []selection.UserPerformance
	for questionID, history := range byQuestion {
		sort.Slice(history, func(i, j int) bool {
			return history[i].Timestamp.Before(history[j].Timestamp)
		})
		latest := history[len(history)-1]
		correct := 0
		for _, a := range history {
			if a.IsCorrect {
				correct++
			}
		}
		out = append(out, selection.UserPerformance{
			QuestionID:         questionID,
			CorrectStreak:      latest.CorrectStreak,
			LastAttemptCorrect: latest.IsCorrect,
			LastAttemptDate:    latest.Timestamp,
			TotalAttempts:      len(history),
			TotalCorrect:       correct,
			NextReviewDate:     latest.NextReviewDate,
		})
	}
	return out, nil
}

func (m *memRepo) FetchQuestionMetadata(ctx context.Context, courseID string) ([]models.QuestionMeta, error) {
	var out []models.QuestionMeta
	ids := make([]string, 0, len(m.questions))
	for id := range m.questions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		q := m.questions[id]
		if q.CourseID == courseID {
			out = append(out, models.QuestionMeta{ID: q.ID, DifficultyScore: q.DifficultyScore})
		}
	}
	return out, nil
}

func (m *memRepo) CreateSession(ctx context.Context, session *models.QuizSession) error {
	for _, s := range m.sessions {
		if s.UserID == session.UserID && s.Status == models.StatusInProgress {
			return ErrDuplicateSession
		}
	}
	session.ID = m.id()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memRepo) InsertRoster(ctx context.Context, roster []models.QuizSessionQuestion) error {
	for i := range roster {
		row := roster[i]
		row.ID = m.id()
		m.roster = append(m.roster, &row)
	}
	return nil
}

func (m *memRepo) DeleteSession(ctx context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	kept := m.roster[:0]
	for _, row := range m.roster {
		if row.SessionID != sessionID {
			kept = append(kept, row)
		}
	}
	m.roster = kept
	return nil
}

func (m *memRepo) FindSession(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, errNotFound
}

func (m *memRepo) FinishSession(ctx context.Context, sessionID, status string, finalScore float64, completedAt time.Time) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return errNotFound
	}
	s.Status = status
	s.FinalScore = &finalScore
	s.CompletedAt = &completedAt
	return nil
}

func (m *memRepo) NextUnanswered(ctx context.Context, sessionID string, excludeIDs []string) (*models.QuizSessionQuestion, error) {
	excluded := map[string]bool{}
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var best *models.QuizSessionQuestion
	for _, row := range m.roster {
		if row.SessionID != sessionID || row.IsAnswered || row.IsReported || excluded[row.QuestionID] {
			continue
		}
		if best == nil || row.OrderNumber < best.OrderNumber {
			best = row
		}
	}
	return best, nil
}

func (m *memRepo) RosterEntry(ctx context.Context, sessionID, questionID string) (*models.QuizSessionQuestion, error) {
	for _, row := range m.roster {
		if row.SessionID == sessionID && row.QuestionID == questionID {
			return row, nil
		}
	}
	return nil, errNotFound
}

func (m *memRepo) MarkAnswered(ctx context.Context, sessionID, questionID, userAnswer string, isCorrect bool, timeTaken int, answeredAt time.Time) error {
	row, err := m.RosterEntry(ctx, sessionID, questionID)
	if err != nil {
		return err
	}
	row.IsAnswered = true
	row.UserAnswer = userAnswer
	row.IsCorrect = &isCorrect
	row.TimeTakenSeconds = timeTaken
	row.AnsweredAt = &answeredAt
	return nil
}

func (m *memRepo) MarkReported(ctx context.Context, sessionID, questionID string) error {
	row, err := m.RosterEntry(ctx, sessionID, questionID)
	if err != nil {
		return err
	}
	row.IsReported = true
	return nil
}

func (m *memRepo) RosterCounts(ctx context.Context, sessionID string) (RosterStats, error) {
	var stats RosterStats
	for _, row := range m.roster {
		if row.SessionID != sessionID {
			continue
		}
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

func (m *memRepo) LatestAnswer(ctx context.Context, userID, questionID string) (*models.UserAnswer, error) {
	var latest *models.UserAnswer
	for _, a := range m.answers {
		if a.UserID != userID || a.QuestionID != questionID {
			continue
		}
		if latest == nil || a.Timestamp.After(latest.Timestamp) {
			latest = a
		}
	}
	return latest, nil
}

func (m *memRepo) AppendAnswer(ctx context.Context, answer *models.UserAnswer) error {
	answer.ID = m.id()
	copied := *answer
	m.answers = append(m.answers, &copied)
	return nil
}

func (m *memRepo) IncrementQuestionStats(ctx context.Context, questionID string, incorrect bool) error {
	if m.statsErr != nil {
		return m.statsErr
	}
	q, ok := m.questions[questionID]
	if !ok {
		return errNotFound
	}
	q.TotalAttempts++
	if incorrect {
		q.TotalIncorrect++
	}
	return nil
}

func (m *memRepo) CountInteractions(ctx context.Context, userID, questionID string) (int, error) {
	n := 0
	for _, entry := range m.interactions {
		if entry.UserID == userID && entry.QuestionID == questionID {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) AppendInteraction(ctx context.Context, entry *models.InteractionLog) error {
	entry.ID = m.id()
	copied := *entry
	m.interactions = append(m.interactions, &copied)
	return nil
}

func (m *memRepo) LifetimeStats(ctx context.Context, userID string) (int, int, error) {
	attempts, correct := 0, 0
	for _, entry := range m.interactions {
		if entry.UserID != userID {
			continue
		}
		attempts++
		if entry.IsCorrect {
			correct++
		}
	}
	return attempts, correct, nil
}

func (m *memRepo) FinishedSessions(ctx context.Context, userID string) ([]models.QuizSession, error) {
	var out []models.QuizSession
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status != models.StatusInProgress {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].StartedAt, out[j].StartedAt
		if out[i].CompletedAt != nil {
			ti = *out[i].CompletedAt
		}
		if out[j].CompletedAt != nil {
			tj = *out[j].CompletedAt
		}
		return ti.After(tj)
	})
	return out, nil
}

func (m *memRepo) StaleSessions(ctx context.Context, cutoff time.Time) ([]models.QuizSession, error) {
	var out []models.QuizSession
	for _, s := range m.sessions {
		if s.Status == models.StatusInProgress && s.StartedAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}
