package selection

import (
	"math"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"
)

// Scorer assigns a priority score and reason tag to one candidate question.
// It is a pure transform: identical inputs always yield an identical score.
type Scorer struct {
	config *Config
}

func NewScorer(config *Config) *Scorer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scorer{config: config}
}

// Score evaluates a single question. performance is nil for questions the
// learner has never attempted. The decision order is fixed: new question,
// weakness, SRS due, difficulty progression, random review. First match wins.
func (s *Scorer) Score(
	questionID string,
	difficultyScore *float64,
	performance *UserPerformance,
	skillLevel float64,
	minDifficulty, maxDifficulty float64,
	now time.Time,
) QuestionScore {
	if performance == nil {
		return s.scoreNew(questionID, difficultyScore, skillLevel, minDifficulty, maxDifficulty)
	}

	if !performance.LastAttemptCorrect {
		return s.scoreWeakness(questionID, performance)
	}

	if performance.NextReviewDate != nil && !performance.NextReviewDate.After(now) {
		return s.scoreSrsDue(questionID, performance, now)
	}

	if difficultyScore != nil {
		rel := normalizeDifficulty(*difficultyScore, minDifficulty, maxDifficulty)
		gap := math.Abs(rel - skillLevel)
		if gap > s.config.ProgressionGapMin && gap < s.config.ProgressionGapMax {
			return QuestionScore{
				QuestionID: questionID,
				Score:      s.config.ProgressionWeight + (1-gap)*15,
				Reason:     models.ReasonDifficultyProgression,
				Metadata: map[string]any{
					"relative_difficulty": rel,
					"skill_gap":           gap,
				},
			}
		}
	}

	return s.scoreRandomReview(questionID, performance, now)
}

func (s *Scorer) scoreNew(questionID string, difficultyScore *float64, skillLevel, minDifficulty, maxDifficulty float64) QuestionScore {
	if difficultyScore == nil {
		return QuestionScore{
			QuestionID: questionID,
			Score:      s.config.NewQuestionWeight,
			Reason:     models.ReasonNewQuestion,
			Metadata:   map[string]any{"is_new": true},
		}
	}

	rel := normalizeDifficulty(*difficultyScore, minDifficulty, maxDifficulty)
	gap := math.Abs(rel - skillLevel)
	// Penalize questions far from the learner's level, but never to zero:
	// novelty always keeps a nonzero chance of surfacing.
	appropriateness := math.Max(0.1, 1-gap*2)

	return QuestionScore{
		QuestionID: questionID,
		Score:      s.config.NewQuestionWeight * appropriateness,
		Reason:     models.ReasonNewQuestion,
		Metadata: map[string]any{
			"is_new":              true,
			"relative_difficulty": rel,
			"appropriateness":     appropriateness,
		},
	}
}

func (s *Scorer) scoreWeakness(questionID string, performance *UserPerformance) QuestionScore {
	attempts := performance.TotalAttempts
	correct := performance.TotalCorrect
	if correct < 0 {
		correct = 0
	}
	if correct > attempts {
		// Corrupt row: assume the worst rather than propagating bad data.
		correct = 0
	}

	errorRate := 1.0
	if attempts > 0 {
		errorRate = 1 - float64(correct)/float64(attempts)
	}

	return QuestionScore{
		QuestionID: questionID,
		Score:      s.config.WeaknessWeight + errorRate*20,
		Reason:     models.ReasonWeakness,
		Metadata: map[string]any{
			"error_rate":     errorRate,
			"total_attempts": performance.TotalAttempts,
		},
	}
}

func (s *Scorer) scoreSrsDue(questionID string, performance *UserPerformance, now time.Time) QuestionScore {
	daysOverdue := now.Sub(*performance.NextReviewDate).Hours() / 24
	if daysOverdue < 0 {
		daysOverdue = 0
	}
	bonus := math.Min(daysOverdue*2, s.config.SrsOverdueBonus)

	return QuestionScore{
		QuestionID: questionID,
		Score:      s.config.SrsDueWeight + bonus,
		Reason:     models.ReasonSrsDue,
		Metadata: map[string]any{
			"days_overdue":   daysOverdue,
			"correct_streak": performance.CorrectStreak,
		},
	}
}

func (s *Scorer) scoreRandomReview(questionID string, performance *UserPerformance, now time.Time) QuestionScore {
	recency := recencyFactor(performance.LastAttemptDate, now)

	return QuestionScore{
		QuestionID: questionID,
		Score:      s.config.RandomReviewWeight * recency,
		Reason:     models.ReasonRandomReview,
		Metadata: map[string]any{
			"recency_factor": recency,
		},
	}
}

// recencyFactor dampens questions seen very recently and nudges long-unseen
// material back into rotation.
func recencyFactor(lastAttempt, now time.Time) float64 {
	days := now.Sub(lastAttempt).Hours() / 24
	switch {
	case days < 1:
		return 0.5
	case days < 7:
		return 0.8
	case days < 30:
		return 1.0
	default:
		return 1.2
	}
}
