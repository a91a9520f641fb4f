// Package schedule maps the abstract "week N, weekday" descriptors of a
// generated plan onto calendar dates and applies per-session date overrides.
// Everything in this package is pure: the same inputs always give the same dates.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only date format accepted for overrides, logs and week bounds.
const DateLayout = "2006-01-02"

const daysPerWeek = 7

var (
	ErrInvalidDate      = errors.New("date must be formatted as yyyy-mm-dd")
	ErrInvalidWeek      = errors.New("week number must be 1 or greater")
	ErrMissingStartDate = errors.New("plan start date is missing")
)

// ParseDate parses a yyyy-mm-dd string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseStartDate parses the plan start date from onboarding data. Besides
// yyyy-mm-dd it tolerates an RFC 3339 timestamp, whose calendar date is used.
// An empty value is ErrMissingStartDate: no date may be computed without it.
func ParseStartDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingStartDate
	}
	if len(s) > len(DateLayout) {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return ParseDate(s)
}

// FormatDate renders the calendar date of t as yyyy-mm-dd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CivilDate drops the time of day and location of t, keeping its calendar date.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays adds n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// mondayOffset is the number of days since the Monday of t's week.
// Sunday is 6, so a Sunday belongs to the week that started six days earlier.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % daysPerWeek
}

// StartOfWeek returns the Monday of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	return AddDays(CivilDate(t), -mondayOffset(t))
}

// WeekMonday returns the Monday of plan week weekNumber. Week 1 is the
// Monday-aligned week containing the start date; week N starts (N-1)*7 days later.
func WeekMonday(start time.Time, weekNumber int) (time.Time, error) {
	if weekNumber < 1 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidWeek, weekNumber)
	}
	shifted := AddDays(CivilDate(start), (weekNumber-1)*daysPerWeek)
	return StartOfWeek(shifted), nil
}

// WeekRange returns the Monday and Sunday of plan week weekNumber as yyyy-mm-dd.
func WeekRange(start time.Time, weekNumber int) (monday, sunday string, err error) {
	m, err := WeekMonday(start, weekNumber)
	if err != nil {
		return "", "", err
	}
	return FormatDate(m), FormatDate(AddDays(m, daysPerWeek-1)), nil
}

// WeekDates returns the seven dates Monday..Sunday of plan week weekNumber.
func WeekDates(start time.Time, weekNumber int) ([]string, error) {
	m, err := WeekMonday(start, weekNumber)
	if err != nil {
		return nil, err
	}
	dates := make([]string, daysPerWeek)
	for i := range dates {
		dates[i] = FormatDate(AddDays(m, i))
	}
	return dates, nil
}

// CurrentWeek is the plan week that contains today, clamped to [1, totalWeeks].
// A totalWeeks below 1 disables the upper clamp. Every screen uses this
// definition so "this week" never differs between the calendar and the dashboard.
func CurrentWeek(start, today time.Time, totalWeeks int) int {
	anchor := StartOfWeek(start)
	days := int(CivilDate(today).Sub(anchor).Hours() / 24)
	week := 1
	if days > 0 {
		week = days/daysPerWeek + 1
	}
	if totalWeeks > 0 && week > totalWeeks {
		week = totalWeeks
	}
	return week
}

// InRange reports whether the yyyy-mm-dd date lies in [from, to]. ISO dates
// order lexically, so no parsing is needed.
func InRange(date, from, to string) bool {
	return date != "" && date >= from && date <= to
}
