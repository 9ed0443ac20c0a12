package models

import "time"

// UserAnswer is one append-only history row per submission. CorrectStreak and
// NextReviewDate are computed at write time and drive the next selection run.
type UserAnswer struct {
	ID             string     `bson:"_id,omitempty" json:"id"`
	UserID         string     `bson:"user_id" json:"user_id"`
	QuestionID     string     `bson:"question_id" json:"question_id"`
	IsCorrect      bool       `bson:"is_correct" json:"is_correct"`
	Timestamp      time.Time  `bson:"timestamp" json:"timestamp"`
	CorrectStreak  int        `bson:"correct_streak" json:"correct_streak"`
	NextReviewDate *time.Time `bson:"next_review_date,omitempty" json:"next_review_date,omitempty"`
	TimeTaken      int        `bson:"time_taken" json:"time_taken"`
}

// InteractionLog is the append-only audit row written on every attempt.
// Never updated or deleted.
type InteractionLog struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	QuestionID     string    `bson:"question_id" json:"question_id"`
	SessionID      string    `bson:"session_id" json:"session_id"`
	IsCorrect      bool      `bson:"is_correct" json:"is_correct"`
	TimeTaken      int       `bson:"time_taken" json:"time_taken"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	AttemptNumber  int       `bson:"attempt_number" json:"attempt_number"`
	WasWeakness    bool      `bson:"was_weakness" json:"was_weakness"`
	WasSrs         bool      `bson:"was_srs" json:"was_srs"`
	WasNew         bool      `bson:"was_new" json:"was_new"`
	IsFirstAttempt bool      `bson:"is_first_attempt" json:"is_first_attempt"`
}
