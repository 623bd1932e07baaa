// Package schedule computes occurrences of a daily wall-clock instant in a
// fixed timezone.
package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the layout of the reset date markers.
const DateLayout = "2006-01-02"

// Daily is an HH:MM instant repeating every day in Location.
type Daily struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// NewDaily returns a Daily, defaulting to UTC when loc is nil.
func NewDaily(hour, minute int, loc *time.Location) Daily {
	if loc == nil {
		loc = time.UTC
	}
	return Daily{Hour: hour, Minute: minute, Location: loc}
}

func (d Daily) String() string {
	return fmt.Sprintf("%02d:%02d %s", d.Hour, d.Minute, d.loc())
}

func (d Daily) loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

func (d Daily) on(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, d.Hour, d.Minute, 0, 0, d.loc())
}

// Next returns the first occurrence strictly after now.
func (d Daily) Next(now time.Time) time.Time {
	n := now.In(d.loc())
	candidate := d.on(n.Year(), n.Month(), n.Day())
	if !candidate.After(now) {
		candidate = d.on(n.Year(), n.Month(), n.Day()+1)
	}
	return candidate
}

// Previous returns the most recent occurrence at or before now.
func (d Daily) Previous(now time.Time) time.Time {
	n := now.In(d.loc())
	candidate := d.on(n.Year(), n.Month(), n.Day())
	if candidate.After(now) {
		candidate = d.on(n.Year(), n.Month(), n.Day()-1)
	}
	return candidate
}

// Until returns how long to sleep from now to the next occurrence.
func (d Daily) Until(now time.Time) time.Duration {
	return d.Next(now).Sub(now)
}

// IsInstant reports whether now falls in the scheduled minute.
func (d Daily) IsInstant(now time.Time) bool {
	n := now.In(d.loc())
	return n.Hour() == d.Hour && n.Minute() == d.Minute
}

// Crossed reports whether an occurrence lies in (prev, now]. With a zero prev
// only the minute of now is considered.
func (d Daily) Crossed(prev, now time.Time) bool {
	if prev.IsZero() {
		return d.IsInstant(now)
	}
	return d.Previous(now).After(prev)
}

// DateKey formats t as a calendar date in the schedule's timezone.
func (d Daily) DateKey(t time.Time) string {
	return t.In(d.loc()).Format(DateLayout)
}

// ResetDate is the date of the most recent occurrence at or before now.
func (d Daily) ResetDate(now time.Time) string {
	return d.DateKey(d.Previous(now))
}
