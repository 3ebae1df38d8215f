package clock

import "time"

// Clock is the single source of "now" for the whole bot. Handlers and
// the aggregation engine take it as a dependency so tests can inject a
// fixed instant.
type Clock interface {
	Now() time.Time
}

// System - wall clock pinned to the deployment's fixed zone.
type System struct {
	Loc *time.Location
}

func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{Loc: loc}
}

func (s System) Now() time.Time {
	return time.Now().In(s.Loc)
}

// Fixed - test clock frozen at Instant until advanced.
type Fixed struct {
	Instant time.Time
}

func (f *Fixed) Now() time.Time {
	return f.Instant
}

func (f *Fixed) Advance(d time.Duration) {
	f.Instant = f.Instant.Add(d)
}
