package gamification

import (
	"fmt"
	"time"
)

// DefaultDayOffset is the UTC offset whose midnight separates two days for
// streak counting.
const DefaultDayOffset = -3 * time.Hour

const dayLayout = "2006-01-02"

// Calendar maps instants to calendar days in one fixed offset. It never
// consults time.Local, so every deployment agrees on day boundaries.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(offset time.Duration) Calendar {
	name := fmt.Sprintf("UTC%+d", int(offset.Hours()))
	if offset%time.Hour != 0 {
		name = fmt.Sprintf("UTC%+.1f", offset.Hours())
	}
	return Calendar{loc: time.FixedZone(name, int(offset.Seconds()))}
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Day returns the calendar date of t as midnight UTC.
func (c Calendar) Day(t time.Time) time.Time {
	y, m, d := t.In(c.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "YYYY-MM-DD" and returns the instant that date starts in
// the calendar's zone, so that Day(ParseDate(s)) is the same date.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return t, nil
}

// FormatDay renders a day produced by Day.
func FormatDay(day time.Time) string {
	return day.UTC().Format(dayLayout)
}

// dateOf re-normalizes a stored day value; drivers may hand it back in a
// different zone or with a monotonic reading attached.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
