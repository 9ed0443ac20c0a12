package engine

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"
	"github.com/Kevin-nav/AskTheSage/internal/selection"
	"github.com/Kevin-nav/AskTheSage/internal/srs"
)

// SkippedAnswer is the sentinel recorded when a learner skips a question.
const SkippedAnswer = "skipped"

// Engine orchestrates the quiz session lifecycle: it builds rosters through
// the selection components, serves questions, records answers and closes
// sessions. All I/O goes through the Repository; the engine itself holds no
// state between calls.
//
// Attempt numbers are derived from an interaction-log count, which assumes a
// single writer per session. One learner drives one session from one chat, so
// the assumption holds; concurrent session starts are still guarded by the
// repository's unique index.
type Engine struct {
	repo      Repository
	config    *selection.Config
	estimator *selection.SkillEstimator
	scorer    *selection.Scorer
	scheduler *srs.Scheduler

	// NewRand supplies the random source for roster shuffling. Production
	// uses a fresh time-seeded source per call; tests swap in a fixed seed.
	NewRand func() *rand.Rand
	// Now is the clock. Swappable for tests.
	Now func() time.Time
}

func NewEngine(repo Repository, config *selection.Config) *Engine {
	if config == nil {
		config = selection.DefaultConfig()
	}
	return &Engine{
		repo:      repo,
		config:    config,
		estimator: selection.NewSkillEstimator(config),
		scorer:    selection.NewScorer(config),
		scheduler: srs.NewScheduler(config.SrsIntervals),
		NewRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		Now: time.Now,
	}
}

// QuestionView is what callers are allowed to see of a roster question before
// answering it.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Order   int      `json:"order"`
}

// StartResult is returned by StartQuiz.
type StartResult struct {
	SessionID     string         `json:"session_id"`
	FirstQuestion *QuestionView  `json:"first_question"`
	SkillLevel    float64        `json:"skill_level"`
	Distribution  map[string]int `json:"distribution"`
}

// SubmitResult is returned by SubmitAnswer and SkipQuestion.
type SubmitResult struct {
	IsCorrect     bool          `json:"is_correct"`
	CorrectAnswer string        `json:"correct_answer"`
	Explanation   string        `json:"explanation,omitempty"`
	NextQuestion  *QuestionView `json:"next_question,omitempty"`
	QuizCompleted bool          `json:"quiz_completed"`
	FinalScore    *float64      `json:"final_score,omitempty"`
}

// EndResult summarizes an early-ended or cancelled session.
type EndResult struct {
	Deleted    bool    `json:"deleted"`
	Answered   int     `json:"answered"`
	Correct    int     `json:"correct"`
	FinalScore float64 `json:"final_score"`
}

// StartQuiz builds and persists a session with a frozen roster of quizLength
// questions, returning the first question to present.
//
// The roster is built fully in memory before anything is written, so an
// insufficient pool never leaves a half-created session behind. A roster
// insert failure after the session row exists triggers a compensating delete.
func (e *Engine) StartQuiz(ctx context.Context, userID, courseID string, quizLength int) (*StartResult, error) {
	if quizLength <= 0 {
		return nil, fmt.Errorf("%w: quiz length must be positive", ErrValidation)
	}

	if _, err := e.repo.FindUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: unknown user %s", ErrValidation, userID)
	}
	course, err := e.repo.FindCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown course %s", ErrValidation, courseID)
	}

	performance, err := e.repo.FetchPerformanceHistory(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetch performance history: %w", err)
	}
	meta, err := e.repo.FetchQuestionMetadata(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetch question metadata: %w", err)
	}

	difficulty := make(map[string]*float64, len(meta))
	for _, m := range meta {
		difficulty[m.ID] = m.DifficultyScore
	}
	for i := range performance {
		performance[i].DifficultyScore = difficulty[performance[i].QuestionID]
	}

	minD, maxD := course.DifficultyRange()
	skill := e.estimator.Estimate(performance, minD, maxD)

	rng := e.NewRand()
	var selected []selection.QuestionScore
	if len(performance) == 0 {
		selected = selection.NewColdStart(e.config, rng).Select(meta, quizLength)
	} else {
		perfByQuestion := make(map[string]*selection.UserPerformance, len(performance))
		for i := range performance {
			perfByQuestion[performance[i].QuestionID] = &performance[i]
		}
		now := e.Now()
		scored := make([]selection.QuestionScore, 0, len(meta))
		for _, m := range meta {
			scored = append(scored, e.scorer.Score(m.ID, m.DifficultyScore, perfByQuestion[m.ID], skill, minD, maxD, now))
		}
		selected = selection.NewDistributor(e.config, rng).Select(scored, quizLength)
	}

	if len(selected) < quizLength {
		return nil, fmt.Errorf("%w: course %s has %d candidates for a quiz of %d",
			ErrInsufficientQuestions, courseID, len(selected), quizLength)
	}

	session := &models.QuizSession{
		UserID:                userID,
		CourseID:              courseID,
		StartedAt:             e.Now(),
		Status:                models.StatusInProgress,
		TotalQuestions:        quizLength,
		InitialUserSkillLevel: &skill,
	}
	if err := e.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	roster := make([]models.QuizSessionQuestion, len(selected))
	for i, q := range selected {
		roster[i] = models.QuizSessionQuestion{
			SessionID:       session.ID,
			QuestionID:      q.QuestionID,
			OrderNumber:     i + 1,
			SelectionReason: q.Reason.String(),
			SelectionScore:  q.Score,
		}
	}
	if err := e.repo.InsertRoster(ctx, roster); err != nil {
		if delErr := e.repo.DeleteSession(ctx, session.ID); delErr != nil {
			log.Printf("failed to roll back session %s after roster insert error: %v", session.ID, delErr)
		}
		return nil, fmt.Errorf("persist roster: %w", err)
	}

	first, err := e.GetNextQuestion(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &StartResult{
		SessionID:     session.ID,
		FirstQuestion: first,
		SkillLevel:    skill,
		Distribution:  selection.ReasonDistribution(selected),
	}, nil
}

// GetNextQuestion returns the lowest-order unanswered, non-reported roster
// question, or nil when the quiz is finished.
func (e *Engine) GetNextQuestion(ctx context.Context, sessionID string, excludeIDs ...string) (*QuestionView, error) {
	entry, err := e.repo.NextUnanswered(ctx, sessionID, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("next unanswered: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	question, err := e.repo.FindQuestion(ctx, entry.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("load question %s: %w", entry.QuestionID, err)
	}

	return &QuestionView{
		ID:      question.ID,
		Text:    question.Text,
		Options: question.Options,
		Order:   entry.OrderNumber,
	}, nil
}

// SubmitAnswer records a learner's answer: roster row update, answer history
// append with the new streak and review date, global question counters, and
// the interaction-log audit row, in that order. The four writes run inside
// one repository transaction; a failure at any step leaves none of them
// applied. When the roster is exhausted the session transitions to completed.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, questionID, answer string, timeTaken int) (*SubmitResult, error) {
	session, err := e.repo.FindSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown session %s", ErrValidation, sessionID)
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrStateConflict, sessionID, session.Status)
	}

	entry, err := e.repo.RosterEntry(ctx, sessionID, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: question %s is not on session %s", ErrValidation, questionID, sessionID)
	}
	if entry.IsAnswered {
		return nil, fmt.Errorf("%w: question %s was already answered in session %s", ErrStateConflict, questionID, sessionID)
	}
	question, err := e.repo.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown question %s", ErrValidation, questionID)
	}
	if !question.HasCorrectOption() {
		// Corrupt question row; keep serving the quiz but make it visible.
		log.Printf("integrity: question %s stores a correct answer missing from its options", questionID)
	}

	now := e.Now()
	isCorrect := question.Matches(answer)

	err = e.repo.InTransaction(ctx, func(ctx context.Context) error {
		if err := e.repo.MarkAnswered(ctx, sessionID, questionID, answer, isCorrect, timeTaken, now); err != nil {
			return fmt.Errorf("mark answered: %w", err)
		}
		if err := e.appendAnswerHistory(ctx, session.UserID, questionID, isCorrect, timeTaken, now); err != nil {
			return err
		}
		if err := e.repo.IncrementQuestionStats(ctx, questionID, !isCorrect); err != nil {
			return fmt.Errorf("increment question stats: %w", err)
		}
		return e.logInteraction(ctx, session, entry, isCorrect, timeTaken, now)
	})
	if err != nil {
		return nil, err
	}

	next, err := e.GetNextQuestion(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		IsCorrect:     isCorrect,
		CorrectAnswer: question.CorrectAnswer,
		Explanation:   question.Explanation,
		NextQuestion:  next,
		QuizCompleted: next == nil,
	}

	if next == nil {
		score, err := e.completeSession(ctx, session)
		if err != nil {
			return nil, err
		}
		result.FinalScore = &score
	}

	return result, nil
}

// SkipQuestion records a skip as a wrong answer with zero time taken.
func (e *Engine) SkipQuestion(ctx context.Context, sessionID, questionID string) (*SubmitResult, error) {
	return e.SubmitAnswer(ctx, sessionID, questionID, SkippedAnswer, 0)
}

// ReportQuestion flags a roster question as broken. Reported questions stop
// being served and drop out of every score denominator.
func (e *Engine) ReportQuestion(ctx context.Context, sessionID, questionID string) error {
	session, err := e.repo.FindSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: unknown session %s", ErrValidation, sessionID)
	}
	if session.Terminal() {
		return fmt.Errorf("%w: session %s is %s", ErrStateConflict, sessionID, session.Status)
	}
	if err := e.repo.MarkReported(ctx, sessionID, questionID); err != nil {
		return fmt.Errorf("mark reported: %w", err)
	}
	return nil
}

// EndQuizEarly transitions an in_progress session to incomplete, scoring only
// the answered, non-reported questions.
func (e *Engine) EndQuizEarly(ctx context.Context, sessionID string) (*EndResult, error) {
	session, err := e.repo.FindSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown session %s", ErrValidation, sessionID)
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrStateConflict, sessionID, session.Status)
	}

	stats, err := e.repo.RosterCounts(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("roster counts: %w", err)
	}

	score := ratioScore(stats.Correct, stats.Answered)
	if err := e.repo.FinishSession(ctx, sessionID, models.StatusIncomplete, score, e.Now()); err != nil {
		return nil, fmt.Errorf("finish session: %w", err)
	}

	return &EndResult{Answered: stats.Answered, Correct: stats.Correct, FinalScore: score}, nil
}

// CancelQuizSession cancels a session. An untouched session is deleted
// outright, as if it never happened; one with answers transitions to
// cancelled and is scored over the answered questions only.
func (e *Engine) CancelQuizSession(ctx context.Context, sessionID string) (*EndResult, error) {
	session, err := e.repo.FindSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown session %s", ErrValidation, sessionID)
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrStateConflict, sessionID, session.Status)
	}

	stats, err := e.repo.RosterCounts(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("roster counts: %w", err)
	}

	if stats.AnsweredRaw() == 0 {
		if err := e.repo.DeleteSession(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("delete session: %w", err)
		}
		return &EndResult{Deleted: true}, nil
	}

	score := ratioScore(stats.Correct, stats.Answered)
	if err := e.repo.FinishSession(ctx, sessionID, models.StatusCancelled, score, e.Now()); err != nil {
		return nil, fmt.Errorf("finish session: %w", err)
	}

	return &EndResult{Answered: stats.Answered, Correct: stats.Correct, FinalScore: score}, nil
}

// ResolveStaleSessions marks in_progress sessions older than the cutoff as
// incomplete, scoring whatever was answered. Returns how many were resolved.
func (e *Engine) ResolveStaleSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := e.Now().Add(-olderThan)
	stale, err := e.repo.StaleSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale sessions: %w", err)
	}

	resolved := 0
	for _, session := range stale {
		stats, err := e.repo.RosterCounts(ctx, session.ID)
		if err != nil {
			return resolved, fmt.Errorf("roster counts for %s: %w", session.ID, err)
		}
		score := ratioScore(stats.Correct, stats.Answered)
		if err := e.repo.FinishSession(ctx, session.ID, models.StatusIncomplete, score, e.Now()); err != nil {
			return resolved, fmt.Errorf("finish stale session %s: %w", session.ID, err)
		}
		resolved++
	}
	return resolved, nil
}

func (e *Engine) completeSession(ctx context.Context, session *models.QuizSession) (float64, error) {
	stats, err := e.repo.RosterCounts(ctx, session.ID)
	if err != nil {
		return 0, fmt.Errorf("roster counts: %w", err)
	}
	score := ratioScore(stats.Correct, stats.Total-stats.Reported)
	if err := e.repo.FinishSession(ctx, session.ID, models.StatusCompleted, score, e.Now()); err != nil {
		return 0, fmt.Errorf("finish session: %w", err)
	}
	return score, nil
}

func (e *Engine) appendAnswerHistory(ctx context.Context, userID, questionID string, isCorrect bool, timeTaken int, now time.Time) error {
	latest, err := e.repo.LatestAnswer(ctx, userID, questionID)
	if err != nil {
		return fmt.Errorf("latest answer: %w", err)
	}

	streak := 0
	var nextReview *time.Time
	if isCorrect {
		if latest != nil {
			streak = latest.CorrectStreak + 1
		} else {
			streak = 1
		}
		due := e.scheduler.NextReviewDate(streak, now)
		nextReview = &due
	}

	return e.repo.AppendAnswer(ctx, &models.UserAnswer{
		UserID:         userID,
		QuestionID:     questionID,
		IsCorrect:      isCorrect,
		Timestamp:      now,
		CorrectStreak:  streak,
		NextReviewDate: nextReview,
		TimeTaken:      timeTaken,
	})
}

func (e *Engine) logInteraction(ctx context.Context, session *models.QuizSession, entry *models.QuizSessionQuestion, isCorrect bool, timeTaken int, now time.Time) error {
	prior, err := e.repo.CountInteractions(ctx, session.UserID, entry.QuestionID)
	if err != nil {
		return fmt.Errorf("count interactions: %w", err)
	}

	reason := models.ParseReason(entry.SelectionReason)
	return e.repo.AppendInteraction(ctx, &models.InteractionLog{
		UserID:         session.UserID,
		QuestionID:     entry.QuestionID,
		SessionID:      session.ID,
		IsCorrect:      isCorrect,
		TimeTaken:      timeTaken,
		Timestamp:      now,
		AttemptNumber:  prior + 1,
		WasWeakness:    reason == models.ReasonWeakness,
		WasSrs:         reason == models.ReasonSrsDue,
		WasNew:         reason == models.ReasonNewQuestion,
		IsFirstAttempt: prior == 0,
	})
}

// ratioScore is correct/denominator as a percentage, 0 when the denominator
// is not positive.
func ratioScore(correct, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	return float64(correct) / float64(denominator) * 100
}
