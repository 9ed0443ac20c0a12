package models

// Course groups questions and carries the observed difficulty range used to
// normalize question difficulty scores.
type Course struct {
	ID            string   `bson:"_id,omitempty" json:"id"`
	Name          string   `bson:"name" json:"name"`
	ProgramIDs    []string `bson:"program_ids" json:"program_ids"`
	MinDifficulty *float64 `bson:"min_difficulty,omitempty" json:"min_difficulty,omitempty"`
	MaxDifficulty *float64 `bson:"max_difficulty,omitempty" json:"max_difficulty,omitempty"`
}

// DifficultyRange returns the course's difficulty bounds, falling back to a
// degenerate (0, 0) range when calibration has never run.
func (c *Course) DifficultyRange() (float64, float64) {
	if c.MinDifficulty == nil || c.MaxDifficulty == nil {
		return 0, 0
	}
	return *c.MinDifficulty, *c.MaxDifficulty
}

// InProgram reports whether the course belongs to the given program.
func (c *Course) InProgram(programID string) bool {
	if programID == "" {
		return false
	}
	for _, id := range c.ProgramIDs {
		if id == programID {
			return true
		}
	}
	return false
}
