package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testEngine(repo Repository) *Engine {
	e := NewEngine(repo, nil)
	e.Now = func() time.Time { return testNow }
	e.NewRand = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	return e
}

func seedCourse(m *memRepo, courseID string, questionCount int) {
	min, max := 1.0, 5.0
	m.courses[courseID] = &models.Course{
		ID: courseID, Name: "Circuits", MinDifficulty: &min, MaxDifficulty: &max,
	}
	for i := 0; i < questionCount; i++ {
		id := fmt.Sprintf("%s-q%d", courseID, i)
		diff := 1.0 + float64(i%5)
		m.questions[id] = &models.Question{
			ID:              id,
			CourseID:        courseID,
			Text:            "question " + id,
			Options:         []string{"A", "B", "C", "D"},
			CorrectAnswer:   "A",
			Explanation:     "because",
			DifficultyScore: &diff,
		}
	}
}

func seedUser(m *memRepo, userID string) {
	m.users[userID] = &models.User{ID: userID, TelegramID: 42}
}

func TestStartQuizColdStart(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 12)
	e := testEngine(m)

	res, err := e.StartQuiz(context.Background(), "u1", "c1", 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FirstQuestion == nil {
		t.Fatal("expected a first question")
	}
	if res.SkillLevel != 0.25 {
		t.Errorf("expected newcomer skill 0.25, got %f", res.SkillLevel)
	}
	if res.Distribution["new"] != 8 {
		t.Errorf("cold start must select only new questions, got %v", res.Distribution)
	}

	session := m.sessions[res.SessionID]
	if session == nil || session.Status != models.StatusInProgress {
		t.Fatalf("expected persisted in_progress session, got %+v", session)
	}
	if session.InitialUserSkillLevel == nil || *session.InitialUserSkillLevel != 0.25 {
		t.Error("initial skill level not stored on session")
	}

	// Order numbers must be a dense 1..N permutation.
	seen := map[int]bool{}
	for _, row := range m.roster {
		if row.SessionID != res.SessionID {
			continue
		}
		if seen[row.OrderNumber] {
			t.Errorf("duplicate order number %d", row.OrderNumber)
		}
		seen[row.OrderNumber] = true
	}
	for i := 1; i <= 8; i++ {
		if !seen[i] {
			t.Errorf("missing order number %d", i)
		}
	}
}

func TestStartQuizValidation(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)

	testCases := []struct {
		name     string
		userID   string
		courseID string
		length   int
		wantErr  error
	}{
		{"zero length", "u1", "c1", 0, ErrValidation},
		{"negative length", "u1", "c1", -2, ErrValidation},
		{"unknown user", "nobody", "c1", 5, ErrValidation},
		{"unknown course", "u1", "missing", 5, ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.StartQuiz(context.Background(), tc.userID, tc.courseID, tc.length)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStartQuizInsufficientQuestions(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 6)
	e := testEngine(m)

	_, err := e.StartQuiz(context.Background(), "u1", "c1", 10)
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
	if len(m.sessions) != 0 || len(m.roster) != 0 {
		t.Error("a failed start must not leave a session or roster behind")
	}
}

func TestStartQuizDuplicateRejected(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 12)
	seedCourse(m, "c2", 12)
	e := testEngine(m)

	if _, err := e.StartQuiz(context.Background(), "u1", "c1", 5); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	// A second start for any course must hit the uniqueness constraint.
	_, err := e.StartQuiz(context.Background(), "u1", "c2", 5)
	if !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
}

func TestSubmitAnswerFullQuiz(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, err := e.StartQuiz(ctx, "u1", "c1", 3)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Answer: correct (with messy casing), wrong, correct.
	answers := []string{"  a ", "B", "A"}
	wantCorrect := []bool{true, false, true}

	view := res.FirstQuestion
	for i, answer := range answers {
		if view == nil {
			t.Fatalf("ran out of questions at step %d", i)
		}
		sub, err := e.SubmitAnswer(ctx, res.SessionID, view.ID, answer, 5)
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if sub.IsCorrect != wantCorrect[i] {
			t.Errorf("step %d: expected correct=%v, got %v", i, wantCorrect[i], sub.IsCorrect)
		}
		if sub.CorrectAnswer != "A" {
			t.Errorf("step %d: expected correct answer echoed, got %q", i, sub.CorrectAnswer)
		}
		view = sub.NextQuestion

		if i == len(answers)-1 {
			if !sub.QuizCompleted || sub.NextQuestion != nil {
				t.Error("expected quiz completed after last answer")
			}
			if sub.FinalScore == nil || math.Abs(*sub.FinalScore-200.0/3) > 1e-9 {
				t.Errorf("expected final score %f, got %v", 200.0/3, sub.FinalScore)
			}
		} else if sub.QuizCompleted {
			t.Errorf("quiz completed prematurely at step %d", i)
		}
	}

	session := m.sessions[res.SessionID]
	if session.Status != models.StatusCompleted {
		t.Errorf("expected completed status, got %s", session.Status)
	}
	if session.CompletedAt == nil {
		t.Error("completed session missing completion time")
	}

	// Answer history: first correct answer carries streak 1 and a scheduled
	// review; the wrong one resets to streak 0 with no review.
	if len(m.answers) != 3 {
		t.Fatalf("expected 3 answer rows, got %d", len(m.answers))
	}
	first := m.answers[0]
	if first.CorrectStreak != 1 || first.NextReviewDate == nil {
		t.Errorf("first correct answer: streak=%d review=%v", first.CorrectStreak, first.NextReviewDate)
	}
	if want := testNow.AddDate(0, 0, 3); first.NextReviewDate != nil && !first.NextReviewDate.Equal(want) {
		t.Errorf("expected review at %v (streak 1 interval), got %v", want, first.NextReviewDate)
	}
	second := m.answers[1]
	if second.CorrectStreak != 0 || second.NextReviewDate != nil {
		t.Errorf("wrong answer must reset streak and skip scheduling: %+v", second)
	}

	// Interaction log: one row per attempt, all first attempts here.
	if len(m.interactions) != 3 {
		t.Fatalf("expected 3 interaction rows, got %d", len(m.interactions))
	}
	for _, entry := range m.interactions {
		if entry.AttemptNumber != 1 || !entry.IsFirstAttempt {
			t.Errorf("expected first attempt, got %+v", entry)
		}
		if !entry.WasNew {
			t.Errorf("cold-start questions must log was_new, got %+v", entry)
		}
	}

	// Global question counters.
	wrongQ := m.questions[m.answers[1].QuestionID]
	if wrongQ.TotalAttempts != 1 || wrongQ.TotalIncorrect != 1 {
		t.Errorf("question counters not updated: %+v", wrongQ)
	}
}

func TestSubmitAnswerAlreadyAnswered(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 3)
	if _, err := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 2); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// A roster row is written exactly once; resubmitting must not overwrite
	// it, extend the streak, or double-count anything.
	_, err := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 2)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict on resubmit, got %v", err)
	}

	if len(m.answers) != 1 {
		t.Errorf("expected 1 answer row, got %d", len(m.answers))
	}
	if m.answers[0].CorrectStreak != 1 {
		t.Errorf("streak inflated by resubmit: %d", m.answers[0].CorrectStreak)
	}
	if len(m.interactions) != 1 {
		t.Errorf("expected 1 interaction row, got %d", len(m.interactions))
	}
	q := m.questions[res.FirstQuestion.ID]
	if q.TotalAttempts != 1 {
		t.Errorf("question counters double-incremented: %d", q.TotalAttempts)
	}
}

func TestSubmitAnswerRollsBackOnWriteFailure(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 3)

	m.statsErr = errors.New("write failed")
	if _, err := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 2); err == nil {
		t.Fatal("expected submit to fail")
	}

	// A mid-sequence failure must leave no trace of the submit.
	entry, err := m.RosterEntry(ctx, res.SessionID, res.FirstQuestion.ID)
	if err != nil {
		t.Fatalf("roster entry lost: %v", err)
	}
	if entry.IsAnswered {
		t.Error("roster row left answered after failed submit")
	}
	if len(m.answers) != 0 {
		t.Errorf("answer history written despite failure: %d rows", len(m.answers))
	}
	if len(m.interactions) != 0 {
		t.Errorf("interaction log written despite failure: %d rows", len(m.interactions))
	}

	// The question is still submittable once the fault clears.
	m.statsErr = nil
	sub, err := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 2)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !sub.IsCorrect {
		t.Error("retried submit lost the answer outcome")
	}
	if len(m.answers) != 1 || len(m.interactions) != 1 {
		t.Errorf("retry wrote %d answers and %d interactions", len(m.answers), len(m.interactions))
	}
}

func TestSubmitAnswerTerminalSession(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 2)
	if _, err := e.EndQuizEarly(ctx, res.SessionID); err != nil {
		t.Fatalf("end early failed: %v", err)
	}

	_, err := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 1)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestSkipQuestion(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 2)
	sub, err := e.SkipQuestion(ctx, res.SessionID, res.FirstQuestion.ID)
	if err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if sub.IsCorrect {
		t.Error("a skip must record as incorrect")
	}

	entry, _ := m.RosterEntry(ctx, res.SessionID, res.FirstQuestion.ID)
	if entry.UserAnswer != SkippedAnswer || entry.TimeTakenSeconds != 0 {
		t.Errorf("expected skip sentinel with zero time, got %+v", entry)
	}
}

func TestCancelUntouchedSessionDeletes(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 4)
	end, err := e.CancelQuizSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !end.Deleted {
		t.Error("expected untouched session to be deleted")
	}
	if len(m.sessions) != 0 || len(m.roster) != 0 {
		t.Error("session or roster rows survived a hard delete")
	}
}

func TestCancelPartiallyAnsweredSession(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 4)
	sub, err := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 3)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := e.SubmitAnswer(ctx, res.SessionID, sub.NextQuestion.ID, "wrong", 3); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	end, err := e.CancelQuizSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if end.Deleted {
		t.Fatal("session with answers must not be deleted")
	}
	if end.FinalScore != 50.0 {
		t.Errorf("expected score 50.0 over the 2 answered, got %f", end.FinalScore)
	}

	session := m.sessions[res.SessionID]
	if session.Status != models.StatusCancelled {
		t.Errorf("expected cancelled status, got %s", session.Status)
	}
}

func TestEndEarlyScoresAnsweredOnly(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 5)
	sub, _ := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 2)
	if _, err := e.SubmitAnswer(ctx, res.SessionID, sub.NextQuestion.ID, "wrong", 2); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	end, err := e.EndQuizEarly(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("end early failed: %v", err)
	}
	if end.Answered != 2 || end.Correct != 1 || end.FinalScore != 50.0 {
		t.Errorf("expected 1/2 answered = 50.0, got %+v", end)
	}
	if m.sessions[res.SessionID].Status != models.StatusIncomplete {
		t.Errorf("expected incomplete status, got %s", m.sessions[res.SessionID].Status)
	}
}

func TestReportedQuestionExcluded(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 2)
	if err := e.ReportQuestion(ctx, res.SessionID, res.FirstQuestion.ID); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	next, err := e.GetNextQuestion(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if next == nil || next.ID == res.FirstQuestion.ID {
		t.Fatalf("reported question still served: %+v", next)
	}

	// Answering the one remaining question completes the quiz; the reported
	// question drops out of the denominator.
	sub, err := e.SubmitAnswer(ctx, res.SessionID, next.ID, "A", 1)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !sub.QuizCompleted {
		t.Fatal("expected quiz completed")
	}
	if sub.FinalScore == nil || *sub.FinalScore != 100.0 {
		t.Errorf("expected 100.0 over non-reported denominator, got %v", sub.FinalScore)
	}
}

func TestWeaknessSurfacesForStrugglingUser(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	// History: the user got q0 wrong yesterday.
	m.answers = append(m.answers, &models.UserAnswer{
		ID: "a1", UserID: "u1", QuestionID: "c1-q0",
		IsCorrect: false, Timestamp: testNow.Add(-24 * time.Hour),
	})
	m.interactions = append(m.interactions, &models.InteractionLog{
		ID: "i1", UserID: "u1", QuestionID: "c1-q0", SessionID: "old",
		IsCorrect: false, Timestamp: testNow.Add(-24 * time.Hour),
		AttemptNumber: 1, IsFirstAttempt: true,
	})

	res, err := e.StartQuiz(ctx, "u1", "c1", 5)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if res.Distribution["weakness"] != 1 {
		t.Errorf("expected the missed question selected as weakness, got %v", res.Distribution)
	}

	entry, err := m.RosterEntry(ctx, res.SessionID, "c1-q0")
	if err != nil {
		t.Fatal("missed question not on roster")
	}
	if entry.SelectionReason != "weakness" {
		t.Errorf("expected weakness reason on roster row, got %s", entry.SelectionReason)
	}

	// Answering it must tag the interaction as a weakness attempt number 2.
	if _, err := e.SubmitAnswer(ctx, res.SessionID, "c1-q0", "A", 2); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	var logged *models.InteractionLog
	for _, entry := range m.interactions {
		if entry.QuestionID == "c1-q0" {
			logged = entry
		}
	}
	if logged == nil || !logged.WasWeakness || logged.IsFirstAttempt {
		t.Errorf("unexpected interaction row: %+v", logged)
	}
}

func TestResolveStaleSessions(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	seedCourse(m, "c1", 10)
	e := testEngine(m)
	ctx := context.Background()

	res, _ := e.StartQuiz(ctx, "u1", "c1", 3)
	// Backdate the session two days.
	m.sessions[res.SessionID].StartedAt = testNow.Add(-48 * time.Hour)

	resolved, err := e.ResolveStaleSessions(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("expected 1 resolved session, got %d", resolved)
	}
	if m.sessions[res.SessionID].Status != models.StatusIncomplete {
		t.Errorf("expected incomplete, got %s", m.sessions[res.SessionID].Status)
	}

	// Nothing answered: score zero, not a division failure.
	if got := *m.sessions[res.SessionID].FinalScore; got != 0 {
		t.Errorf("expected score 0 for untouched stale session, got %f", got)
	}
}

func TestGetPerformanceReport(t *testing.T) {
	m := newMemRepo()
	seedUser(m, "u1")
	m.users["u1"].PreferredProgramID = "prog-ee"
	seedCourse(m, "c1", 10)
	m.courses["c1"].ProgramIDs = []string{"prog-ee"}
	seedCourse(m, "c2", 10)
	e := testEngine(m)
	ctx := context.Background()

	// Finish a quiz in the preferred course.
	res, _ := e.StartQuiz(ctx, "u1", "c1", 2)
	sub, _ := e.SubmitAnswer(ctx, res.SessionID, res.FirstQuestion.ID, "A", 1)
	if _, err := e.SubmitAnswer(ctx, res.SessionID, sub.NextQuestion.ID, "nope", 1); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// And an unscored course outside the program, ended early untouched.
	res2, _ := e.StartQuiz(ctx, "u1", "c2", 2)
	if _, err := e.EndQuizEarly(ctx, res2.SessionID); err != nil {
		t.Fatalf("end early failed: %v", err)
	}

	report, err := e.GetPerformanceReport(ctx, "u1")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.TotalAttempts != 2 || report.TotalCorrect != 1 {
		t.Errorf("lifetime stats wrong: %+v", report)
	}
	if report.LifetimeAccuracy != 50.0 {
		t.Errorf("expected 50%% lifetime accuracy, got %f", report.LifetimeAccuracy)
	}
	if len(report.PreferredCourses) != 1 || report.PreferredCourses[0].AverageScore != 50.0 {
		t.Errorf("preferred course aggregation wrong: %+v", report.PreferredCourses)
	}
	if len(report.OtherCourses) != 1 {
		t.Errorf("expected c2 under other courses: %+v", report.OtherCourses)
	}
	if len(report.RecentSessions) != 2 {
		t.Errorf("expected 2 recent sessions, got %d", len(report.RecentSessions))
	}
}
