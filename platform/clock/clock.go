// Package clock handles civil dates and wall-clock times for the agenda.
// Dates are carried as time.Time at midnight UTC so that values read from
// DATE columns compare equal to values built here.
// This is part of the platform layer and contains no business logic.
package clock

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "02/01/2006 15:04"
)

// ErrInvalid is returned for unparseable dates or times.
var ErrInvalid = errors.New("clock: invalid value")

// Location is the business time zone.
var Location = loadLocation("America/Santiago")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// At returns a Clock for h:m.
func At(h, m int) Clock {
	return Clock{Hour: h, Minute: m}
}

// Parse accepts "HH:MM" and "HH:MM:SS"; seconds are dropped.
func Parse(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return Clock{}, ErrInvalid
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Micros is the offset from midnight in microseconds, the TIME wire unit.
func (c Clock) Micros() int64 {
	return (int64(c.Hour)*60 + int64(c.Minute)) * int64(time.Minute/time.Microsecond)
}

func FromMicros(us int64) Clock {
	minutes := us / int64(time.Minute/time.Microsecond)
	return Clock{Hour: int(minutes / 60), Minute: int(minutes % 60)}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalid
	}
	return t, nil
}

// DateOf truncates t to its civil date in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Combine joins a civil date and a clock into a wall-clock instant.
func Combine(date time.Time, c Clock) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, time.UTC)
}

// Instant reads a wall-clock value as a moment in the business time zone.
func Instant(wall time.Time) time.Time {
	y, m, d := wall.Date()
	return time.Date(y, m, d, wall.Hour(), wall.Minute(), 0, 0, Location)
}

// Today is the current civil date in the business time zone.
func Today(now time.Time) time.Time {
	return DateOf(now.In(Location))
}

// NextBusinessDay returns the day after date, rolling Saturday and Sunday
// forward to Monday.
func NextBusinessDay(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	switch next.Weekday() {
	case time.Saturday:
		next = next.AddDate(0, 0, 2)
	case time.Sunday:
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Display formats a visit slot as "dd/mm/YYYY HH:MM", or the date alone when
// there is no time.
func Display(date time.Time, c *Clock) string {
	if c == nil {
		return date.Format("02/01/2006")
	}
	return Combine(date, *c).Format(DisplayLayout)
}
