package clock

import "time"

// System reads the wall clock in a fixed location. The location decides
// which calendar day "today" is.
type System struct {
	loc *time.Location
}

// NewSystem creates a clock reporting time in loc. A nil loc means time.Local.
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}
	return &System{loc: loc}
}

// Now returns the current time in the clock's location.
func (c *System) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the clock's location.
func (c *System) Location() *time.Location {
	return c.loc
}
