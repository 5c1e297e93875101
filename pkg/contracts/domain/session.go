package domain

import "time"

// TrainingSession is one [Start, Stop] interval taken from a user's
// training_summary table. Bounds are inclusive: a reading stamped exactly on
// a boundary counts as inside the session.
type TrainingSession struct {
	Start time.Time
	Stop  time.Time
}

// Contains reports whether ts falls inside the session interval.
func (s TrainingSession) Contains(ts time.Time) bool {
	return !ts.Before(s.Start) && !ts.After(s.Stop)
}

// InAnySession reports whether ts falls inside at least one of the sessions.
func InAnySession(sessions []TrainingSession, ts time.Time) bool {
	for _, s := range sessions {
		if s.Contains(ts) {
			return true
		}
	}
	return false
}
