package domain

import "time"

// Session is the main application's in-memory view of an activity session.
type Session struct {
	ActivityID     ActivityID
	Name           string
	PresentationID PresentationID
	StartedAt      time.Time
	EndedAt        time.Time
}

func (s Session) Ended() bool {
	return !s.EndedAt.IsZero()
}
