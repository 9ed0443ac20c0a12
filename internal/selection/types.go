package selection

import (
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/models"
)

// UserPerformance is the per-user, per-question read model a selection run
// works from. It is rebuilt from the answer history on every call and never
// persisted as its own row.
type UserPerformance struct {
	QuestionID         string
	CorrectStreak      int
	LastAttemptCorrect bool
	LastAttemptDate    time.Time
	TotalAttempts      int
	TotalCorrect       int
	DifficultyScore    *float64
	NextReviewDate     *time.Time
}

// QuestionScore is the ephemeral output of scoring one candidate question.
// Metadata is diagnostic only and must not drive behavior.
type QuestionScore struct {
	QuestionID string
	Score      float64
	Reason     models.SelectionReason
	Metadata   map[string]any
}

// Config holds the selection weights and distribution targets. Zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// Scoring base weights.
	WeaknessWeight     float64
	NewQuestionWeight  float64
	SrsDueWeight       float64
	SrsOverdueBonus    float64
	RandomReviewWeight float64
	ProgressionWeight  float64

	// Distribution targets as fractions of the quiz length. They must sum to
	// at most 1.0; the remainder of the quiz is filled with random review.
	TargetWeaknessPct    float64
	TargetNewPct         float64
	TargetSrsPct         float64
	TargetProgressionPct float64

	// Cold-start difficulty ramp.
	EasyThreshold  float64
	HardThreshold  float64
	ScoredCoverage float64

	// Skill estimation.
	SkillRecentWindow int
	NewcomerSkill     float64
	SkillFloor        float64

	// Difficulty-progression zone: skill gap strictly inside (min, max).
	ProgressionGapMin float64
	ProgressionGapMax float64

	// SRS interval table in days, indexed by correct streak.
	SrsIntervals []int
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() *Config {
	return &Config{
		WeaknessWeight:     100,
		NewQuestionWeight:  50,
		SrsDueWeight:       30,
		SrsOverdueBonus:    20,
		RandomReviewWeight: 5,
		ProgressionWeight:  40,

		TargetWeaknessPct:    0.50,
		TargetNewPct:         0.30,
		TargetSrsPct:         0.10,
		TargetProgressionPct: 0.10,

		EasyThreshold:  1.5,
		HardThreshold:  3.0,
		ScoredCoverage: 0.80,

		SkillRecentWindow: 10,
		NewcomerSkill:     0.25,
		SkillFloor:        0.1,

		ProgressionGapMin: 0.1,
		ProgressionGapMax: 0.4,

		SrsIntervals: []int{1, 3, 7, 14, 30, 60, 120, 240, 480},
	}
}

// normalizeDifficulty maps a raw difficulty score into [0,1] against the
// course's observed range. A degenerate range maps everything to the midpoint.
func normalizeDifficulty(score, min, max float64) float64 {
	if min == max {
		return 0.5
	}
	norm := (score - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}
