package selection

import (
	"math/rand"
	"sort"

	"github.com/Kevin-nav/AskTheSage/internal/models"
)

// Distributor turns a scored candidate pool into a balanced quiz roster.
//
// Sorting purely by score would hand a struggling learner a quiz of nothing
// but weakness questions. Instead each reason category gets a quota, quotas
// are filled best-first, and any slack falls back to the best remaining
// candidates regardless of category.
type Distributor struct {
	config *Config
	rng    *rand.Rand
}

// NewDistributor builds a distributor using the given random source for the
// final shuffle. Tests pass a seeded source for determinism.
func NewDistributor(config *Config, rng *rand.Rand) *Distributor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Distributor{config: config, rng: rng}
}

// quotaFillOrder is the priority in which category quotas are satisfied.
var quotaFillOrder = []models.SelectionReason{
	models.ReasonWeakness,
	models.ReasonSrsDue,
	models.ReasonDifficultyProgression,
	models.ReasonNewQuestion,
	models.ReasonRandomReview,
}

// Select picks min(quizLength, len(scored)) questions honoring the configured
// category quotas, then shuffles so the learner cannot infer question type
// from position. A pool smaller than quizLength is returned in full; the
// caller decides whether a short quiz is acceptable.
func (d *Distributor) Select(scored []QuestionScore, quizLength int) []QuestionScore {
	if quizLength <= 0 || len(scored) == 0 {
		return nil
	}

	pools := make(map[models.SelectionReason][]QuestionScore)
	for _, q := range scored {
		pools[q.Reason] = append(pools[q.Reason], q)
	}
	for reason := range pools {
		pool := pools[reason]
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].Score > pool[j].Score })
	}

	targets := d.quotas(quizLength)

	selectedIDs := make(map[string]bool)
	selected := make([]QuestionScore, 0, quizLength)

	for _, reason := range quotaFillOrder {
		quota := targets[reason]
		for _, q := range pools[reason] {
			if quota == 0 || len(selected) >= quizLength {
				break
			}
			if selectedIDs[q.QuestionID] {
				continue
			}
			selected = append(selected, q)
			selectedIDs[q.QuestionID] = true
			quota--
		}
	}

	// Quotas under-filled: pool everything unselected and take best-first.
	if len(selected) < quizLength {
		fallback := make([]QuestionScore, 0, len(scored))
		for _, q := range scored {
			if !selectedIDs[q.QuestionID] {
				fallback = append(fallback, q)
			}
		}
		sort.SliceStable(fallback, func(i, j int) bool { return fallback[i].Score > fallback[j].Score })
		for _, q := range fallback {
			if len(selected) >= quizLength {
				break
			}
			selected = append(selected, q)
			selectedIDs[q.QuestionID] = true
		}
	}

	d.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	return selected
}

// quotas converts the configured target percentages into integer counts. The
// remainder after the named categories goes to random review.
func (d *Distributor) quotas(quizLength int) map[models.SelectionReason]int {
	targets := map[models.SelectionReason]int{
		models.ReasonWeakness:              int(float64(quizLength) * d.config.TargetWeaknessPct),
		models.ReasonNewQuestion:           int(float64(quizLength) * d.config.TargetNewPct),
		models.ReasonSrsDue:                int(float64(quizLength) * d.config.TargetSrsPct),
		models.ReasonDifficultyProgression: int(float64(quizLength) * d.config.TargetProgressionPct),
	}
	allocated := 0
	for _, n := range targets {
		allocated += n
	}
	remainder := quizLength - allocated
	if remainder < 0 {
		remainder = 0
	}
	targets[models.ReasonRandomReview] = remainder
	return targets
}

// ReasonDistribution summarizes a selection by reason tag, for event payloads
// and analytics.
func ReasonDistribution(selected []QuestionScore) map[string]int {
	dist := make(map[string]int)
	for _, q := range selected {
		dist[q.Reason.String()]++
	}
	return dist
}
