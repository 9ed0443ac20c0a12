package srs

import "time"

// DefaultIntervals is the review interval table in days, indexed by
// consecutive-correct streak. Streaks beyond the table plateau at the last
// entry instead of growing unbounded.
var DefaultIntervals = []int{1, 3, 7, 14, 30, 60, 120, 240, 480}

// Scheduler computes next-due dates for correctly answered questions.
type Scheduler struct {
	intervals []int
}

// NewScheduler builds a scheduler over the given ascending interval table.
// An empty table falls back to DefaultIntervals.
func NewScheduler(intervals []int) *Scheduler {
	if len(intervals) == 0 {
		intervals = DefaultIntervals
	}
	return &Scheduler{intervals: intervals}
}

// NextReviewDate returns now plus the interval for the given streak.
// The streak is clamped to [0, len(table)-1]. Call this exactly once per
// correct answer with the post-increment streak; incorrect answers reset the
// streak and must not schedule a review.
func (s *Scheduler) NextReviewDate(correctStreak int, now time.Time) time.Time {
	if correctStreak < 0 {
		correctStreak = 0
	}
	idx := correctStreak
	if idx > len(s.intervals)-1 {
		idx = len(s.intervals) - 1
	}
	return now.AddDate(0, 0, s.intervals[idx])
}

// IntervalDays exposes the interval for a streak without anchoring to a time.
func (s *Scheduler) IntervalDays(correctStreak int) int {
	if correctStreak < 0 {
		correctStreak = 0
	}
	if correctStreak > len(s.intervals)-1 {
		correctStreak = len(s.intervals) - 1
	}
	return s.intervals[correctStreak]
}
