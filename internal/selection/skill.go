package selection

import "sort"

// SkillEstimator condenses a learner's answer history into a 0.0-1.0 skill
// level for a course. Recent successes dominate: the estimate tracks current
// ability, not a lifetime average.
type SkillEstimator struct {
	config *Config
}

func NewSkillEstimator(config *Config) *SkillEstimator {
	if config == nil {
		config = DefaultConfig()
	}
	return &SkillEstimator{config: config}
}

// Estimate returns the learner's skill level in [0,1] given their performance
// rows and the course difficulty range.
//
// No history at all reads as a slightly-below-median newcomer. History with no
// correctly answered, difficulty-scored questions reads as the conservative
// floor.
func (e *SkillEstimator) Estimate(performance []UserPerformance, minDifficulty, maxDifficulty float64) float64 {
	if len(performance) == 0 {
		return e.config.NewcomerSkill
	}

	scored := make([]UserPerformance, 0, len(performance))
	for _, p := range performance {
		if p.LastAttemptCorrect && p.DifficultyScore != nil {
			scored = append(scored, p)
		}
	}
	if len(scored) == 0 {
		return e.config.SkillFloor
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].LastAttemptDate.After(scored[j].LastAttemptDate)
	})
	if len(scored) > e.config.SkillRecentWindow {
		scored = scored[:e.config.SkillRecentWindow]
	}

	// Harmonic decay: the i-th most recent entry weighs 1/(i+1).
	var weightedSum, weightTotal float64
	for i, p := range scored {
		w := 1.0 / float64(i+1)
		weightedSum += w * normalizeDifficulty(*p.DifficultyScore, minDifficulty, maxDifficulty)
		weightTotal += w
	}
	return weightedSum / weightTotal
}
