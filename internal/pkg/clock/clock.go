package clock

import (
	"fmt"
	"time"
)

// Display layouts for times sent back to the chatroom.
const (
	timeLayout = "3:04pm"
	dateLayout = "Mon 2 Jan"

	// TimeDateLayout renders e.g. "3:04pm on Mon 2 Jan".
	TimeDateLayout = timeLayout + " on " + dateLayout
	// DateTimeLayout renders e.g. "Mon 2 Jan at 3:04pm".
	DateTimeLayout = dateLayout + " at " + timeLayout
)

// Clock supplies the current time and resolves timestamps in one fixed
// timezone. All reminder times are interpreted and displayed in this zone.
type Clock struct {
	loc *time.Location
}

// New loads the given IANA timezone name (e.g. "Australia/Melbourne").
func New(tz string) (*Clock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	return &Clock{loc: loc}, nil
}

// NewInLocation wraps an already-loaded location. Used by tests.
func NewInLocation(loc *time.Location) *Clock {
	return &Clock{loc: loc}
}

// Now returns the current time in the configured timezone.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the configured timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// In converts an instant to the configured timezone.
func (c *Clock) In(t time.Time) time.Time {
	return t.In(c.loc)
}

// FormatTimeDate renders an instant as "3:04pm on Mon 2 Jan" in the
// configured timezone.
func (c *Clock) FormatTimeDate(t time.Time) string {
	return t.In(c.loc).Format(TimeDateLayout)
}
