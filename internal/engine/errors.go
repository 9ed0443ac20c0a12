package engine

import "errors"

// Error taxonomy for the quiz engine. Handlers map these to HTTP statuses;
// everything else is an internal failure.
var (
	// ErrValidation covers bad caller input: non-positive quiz length,
	// unknown user, course, session or question ids.
	ErrValidation = errors.New("invalid request")

	// ErrStateConflict is returned when an operation targets a session that
	// is not in_progress, or when a start collides with an existing
	// in_progress session.
	ErrStateConflict = errors.New("session state conflict")

	// ErrDuplicateSession is the persistence layer's translation of the
	// partial unique index violation on (user_id, status=in_progress).
	// Repositories must return it from CreateSession instead of a raw
	// driver error.
	ErrDuplicateSession = errors.New("user already has a quiz in progress")

	// ErrInsufficientQuestions means the course cannot fill a quiz of the
	// requested length. Nothing is persisted when this is returned.
	ErrInsufficientQuestions = errors.New("not enough questions to start a quiz")
)
