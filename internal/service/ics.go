package service

import (
	"fmt"
	"strings"
	"time"

	"alcyxob/plan-calendar/internal/schedule"

	ics "github.com/arran4/golang-ical"
)

const icsProductID = "-//plan-calendar//training plan//EN"

// renderICS writes the resolved calendar as an iCalendar document with one
// all-day event per session on its effective date. Escaping and line folding
// are left to the encoder.
func renderICS(planID string, sessions []schedule.ResolvedSession, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetProductId(icsProductID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRCalName("Training plan")

	for _, rs := range sessions {
		day, err := schedule.ParseDate(rs.ResolvedDate)
		if err != nil {
			return "", fmt.Errorf("session %s: %w", rs.Session.SessionID, err)
		}
		event := cal.AddEvent(rs.Session.SessionID + "@" + planID)
		event.SetDtStampTime(stamp.UTC())
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(schedule.AddDays(day, 1))
		event.SetSummary(rs.Session.Title())
		if desc := describe(rs); desc != "" {
			event.SetDescription(desc)
		}
		if rs.Session.SessionType != "" {
			event.SetProperty(ics.ComponentPropertyCategories, rs.Session.SessionType)
		}
	}
	return cal.Serialize(), nil
}

func describe(rs schedule.ResolvedSession) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Week %d", rs.WeekNumber))
	if rs.BlockName != "" {
		parts = append(parts, rs.BlockName)
	}
	if d := rs.Session.Duration(); d > 0 {
		parts = append(parts, fmt.Sprintf("%d min", d))
	}
	lines := []string{strings.Join(parts, " · ")}
	for _, ex := range rs.Session.AllExercises() {
		if ex.Name == "" {
			continue
		}
		line := "- " + ex.Name
		if ex.Sets > 0 && ex.Reps != "" {
			line += fmt.Sprintf(" %dx%s", ex.Sets, ex.Reps)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
