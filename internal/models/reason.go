package models

// SelectionReason explains why a question was placed on a quiz roster.
type SelectionReason int

const (
	ReasonWeakness SelectionReason = iota
	ReasonSrsDue
	ReasonNewQuestion
	ReasonRandomReview
	ReasonDifficultyProgression
)

var reasonNames = map[SelectionReason]string{
	ReasonWeakness:              "weakness",
	ReasonSrsDue:                "srs_due",
	ReasonNewQuestion:           "new",
	ReasonRandomReview:          "random_review",
	ReasonDifficultyProgression: "difficulty_progression",
}

var reasonValues = map[string]SelectionReason{
	"weakness":               ReasonWeakness,
	"srs_due":                ReasonSrsDue,
	"new":                    ReasonNewQuestion,
	"random_review":          ReasonRandomReview,
	"difficulty_progression": ReasonDifficultyProgression,
}

// String returns the serialized form stored on roster rows.
func (r SelectionReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseReason maps a stored reason string back to its tag.
// Unrecognized values fall back to ReasonRandomReview rather than failing,
// so a corrupt row never blocks quiz delivery.
func ParseReason(s string) SelectionReason {
	if r, ok := reasonValues[s]; ok {
		return r
	}
	return ReasonRandomReview
}
