package selection

import (
	"math/rand"

	"github.com/Kevin-nav/AskTheSage/internal/models"
)

// ColdStart builds an initial quiz for a learner with no answer history in
// the course. When enough questions carry difficulty scores the quiz ramps
// easy/medium/hard; otherwise it samples uniformly.
type ColdStart struct {
	config *Config
	rng    *rand.Rand
}

func NewColdStart(config *Config, rng *rand.Rand) *ColdStart {
	if config == nil {
		config = DefaultConfig()
	}
	return &ColdStart{config: config, rng: rng}
}

// Select picks up to quizLength questions. Every selection carries reason
// NewQuestion; metadata records which strategy ran, for analytics only.
func (c *ColdStart) Select(questions []models.QuestionMeta, quizLength int) []QuestionScore {
	if quizLength <= 0 || len(questions) == 0 {
		return nil
	}

	scoredCount := 0
	for _, q := range questions {
		if q.DifficultyScore != nil {
			scoredCount++
		}
	}

	var ids []string
	var strategy string
	if float64(scoredCount) >= c.config.ScoredCoverage*float64(len(questions)) {
		ids = c.rampedIDs(questions, quizLength)
		strategy = "difficulty_ramp"
	} else {
		ids = c.uniformIDs(questions, quizLength)
		strategy = "random"
	}

	selected := make([]QuestionScore, 0, len(ids))
	for _, id := range ids {
		selected = append(selected, QuestionScore{
			QuestionID: id,
			Score:      c.config.NewQuestionWeight,
			Reason:     models.ReasonNewQuestion,
			Metadata:   map[string]any{"cold_start_strategy": strategy},
		})
	}

	c.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected
}

// rampedIDs buckets by difficulty thresholds and takes 25% easy, 50% medium,
// 25% hard, topping up any shortfall from the remaining pool.
func (c *ColdStart) rampedIDs(questions []models.QuestionMeta, quizLength int) []string {
	var easy, medium, hard, unscored []string
	for _, q := range questions {
		switch {
		case q.DifficultyScore == nil:
			unscored = append(unscored, q.ID)
		case *q.DifficultyScore <= c.config.EasyThreshold:
			easy = append(easy, q.ID)
		case *q.DifficultyScore <= c.config.HardThreshold:
			medium = append(medium, q.ID)
		default:
			hard = append(hard, q.ID)
		}
	}

	c.shuffleIDs(easy)
	c.shuffleIDs(medium)
	c.shuffleIDs(hard)

	easyCount := quizLength / 4
	hardCount := quizLength / 4
	mediumCount := quizLength - easyCount - hardCount

	ids := make([]string, 0, quizLength)
	ids = append(ids, take(easy, easyCount)...)
	ids = append(ids, take(medium, mediumCount)...)
	ids = append(ids, take(hard, hardCount)...)

	if len(ids) < quizLength {
		chosen := make(map[string]bool, len(ids))
		for _, id := range ids {
			chosen[id] = true
		}
		var rest []string
		for _, pool := range [][]string{easy, medium, hard, unscored} {
			for _, id := range pool {
				if !chosen[id] {
					rest = append(rest, id)
				}
			}
		}
		c.shuffleIDs(rest)
		ids = append(ids, take(rest, quizLength-len(ids))...)
	}

	return ids
}

func (c *ColdStart) uniformIDs(questions []models.QuestionMeta, quizLength int) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	c.shuffleIDs(ids)
	return take(ids, quizLength)
}

func (c *ColdStart) shuffleIDs(ids []string) {
	c.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

func take(ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}
