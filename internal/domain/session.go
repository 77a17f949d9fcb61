package domain

import (
	"math"
	"time"
)

// Session is one timed focus period. TaskID is a weak reference: the task may
// be deleted while the session survives, which only disqualifies the session
// from gating, never faults a lookup. A session mutates exactly once, on stop.
type Session struct {
	ID              string
	UserID          string
	TaskID          *string
	Type            SessionType
	StartAt         time.Time
	EndAt           *time.Time
	DurationMinutes int
	Completed       bool
	Interruptions   int
	CreatedAt       time.Time
}

// Running reports whether the session has been started but not stopped.
func (s *Session) Running() bool {
	return !s.Completed
}

// Stop finalizes the session at now: sets EndAt, freezes DurationMinutes,
// and marks it completed. Stopping an already-stopped session is a no-op.
func (s *Session) Stop(now time.Time) {
	if s.Completed {
		return
	}
	end := now
	s.EndAt = &end
	s.DurationMinutes = DurationMinutes(s.StartAt, now)
	s.Completed = true
}

// DurationMinutes computes the whole-minute duration between start and end,
// rounded to nearest and floored at zero.
func DurationMinutes(start, end time.Time) int {
	m := int(math.Round(end.Sub(start).Minutes()))
	if m < 0 {
		return 0
	}
	return m
}
