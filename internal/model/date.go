package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for due dates and generation markers.
const DateLayout = "2006-01-02"

// DefaultEndTime closes a task's working day when no explicit end time is set.
const DefaultEndTime = "23:59"

// Date is a calendar day stored as YYYY-MM-DD. The zero value means "unset".
type Date string

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func (d Date) String() string {
	return string(d)
}

func (d Date) IsZero() bool {
	return d == ""
}

func (d Date) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// Before compares two valid dates. Lexical order matches calendar order for the layout.
func (d Date) Before(other Date) bool {
	return d < other
}

// AddDays shifts a valid date by n calendar days. Invalid dates are returned unchanged.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// Time returns midnight of the day in loc.
func (d Date) Time(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", d, err)
	}
	return t, nil
}

// At returns the instant on this day at the HH:MM clock time.
func (d Date) At(loc *time.Location, clock string) (time.Time, error) {
	day, err := d.Time(loc)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, dd := day.Date()
	return time.Date(y, m, dd, hour, minute, 0, 0, loc), nil
}

// EndOfDay returns 23:59:59 of the day in loc.
func (d Date) EndOfDay(loc *time.Location) (time.Time, error) {
	day, err := d.Time(loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, dd := day.Date()
	return time.Date(y, m, dd, 23, 59, 59, 0, loc), nil
}

// ParseClock parses an HH:MM string.
func ParseClock(clock string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hour, minute, nil
}
