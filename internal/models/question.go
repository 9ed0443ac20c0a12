package models

import "strings"

type Question struct {
	ID              string   `bson:"_id,omitempty" json:"id"`
	CourseID        string   `bson:"course_id" json:"course_id"`
	Text            string   `bson:"text" json:"text"`
	Options         []string `bson:"options" json:"options"`
	CorrectAnswer   string   `bson:"correct_answer" json:"correct_answer"`
	Explanation     string   `bson:"explanation,omitempty" json:"explanation,omitempty"`
	DifficultyScore *float64 `bson:"difficulty_score,omitempty" json:"difficulty_score,omitempty"`
	TotalAttempts   int      `bson:"total_attempts" json:"total_attempts"`
	TotalIncorrect  int      `bson:"total_incorrect" json:"total_incorrect"`
}

// QuestionMeta is the slice of Question the selection core needs.
type QuestionMeta struct {
	ID              string
	DifficultyScore *float64
}

// Matches compares a submitted answer against the stored correct answer,
// case-insensitively and ignoring surrounding whitespace.
func (q *Question) Matches(answer string) bool {
	if q.CorrectAnswer == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
}

// HasCorrectOption reports whether the stored correct answer appears among the
// options. A false result is a data integrity problem on the question row.
func (q *Question) HasCorrectOption() bool {
	want := strings.TrimSpace(strings.ToLower(q.CorrectAnswer))
	for _, opt := range q.Options {
		if strings.TrimSpace(strings.ToLower(opt)) == want {
			return true
		}
	}
	return false
}
