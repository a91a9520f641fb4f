package schedule

import "strings"

// Weekdays holds the canonical weekday labels of generated plans, Monday first.
var Weekdays = [daysPerWeek]string{
	"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag", "Sonntag",
}

var dayOffsets = map[string]int{
	"montag": 0, "dienstag": 1, "mittwoch": 2, "donnerstag": 3,
	"freitag": 4, "samstag": 5, "sonntag": 6,
	// English aliases
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// FallbackDayOffset is used for weekday labels that match no known name: such
// sessions are placed on the Monday of their week.
const FallbackDayOffset = 0

// DayOffset maps a weekday label to its offset from Monday (Monday=0 .. Sunday=6).
func DayOffset(label string) (int, bool) {
	off, ok := dayOffsets[strings.ToLower(strings.TrimSpace(label))]
	return off, ok
}

// WeekdayName returns the canonical label for an offset from Monday.
func WeekdayName(offset int) string {
	if offset < 0 || offset >= daysPerWeek {
		return ""
	}
	return Weekdays[offset]
}
