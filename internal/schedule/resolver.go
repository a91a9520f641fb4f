package schedule

import (
	"time"

	"alcyxob/plan-calendar/internal/domain"

	"github.com/sirupsen/logrus"
)

// ResolvedSession is a session placed on the calendar. It is derived on every
// query from (plan, start date, overrides) and never stored.
type ResolvedSession struct {
	Session      domain.Session `json:"session"`
	WeekNumber   int            `json:"weekNumber"`
	BlockName    string         `json:"blockName,omitempty"`
	OriginalDate string         `json:"originalDate"`
	ResolvedDate string         `json:"resolvedDate"`
	IsOverridden bool           `json:"isOverridden"`
}

// OriginalDate computes the date a session falls on from its week and weekday,
// ignoring overrides. Unknown weekday labels use FallbackDayOffset.
func OriginalDate(session domain.Session, weekNumber int, start time.Time) (time.Time, error) {
	monday, err := WeekMonday(start, weekNumber)
	if err != nil {
		return time.Time{}, err
	}
	offset, ok := DayOffset(session.DayOfWeek)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"sessionId": session.SessionID,
			"dayOfWeek": session.DayOfWeek,
			"week":      weekNumber,
		}).Warn("unknown weekday label, placing session on monday")
		offset = FallbackDayOffset
	}
	return AddDays(monday, offset), nil
}

// Resolve flattens every session of the plan in document order and attaches
// its original and effective dates. A missing start date fails closed with
// ErrMissingStartDate so that no invented dates reach the caller.
func Resolve(plan *domain.Plan, startDate string, overrides OverrideMap) ([]ResolvedSession, error) {
	start, err := ParseStartDate(startDate)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return []ResolvedSession{}, nil
	}

	resolved := make([]ResolvedSession, 0)
	for _, block := range plan.Blocks {
		for _, week := range block.Weeks {
			weekNumber := week.WeekNumber
			if weekNumber < 1 {
				weekNumber = 1
			}
			for _, session := range week.Sessions {
				original, err := OriginalDate(session, weekNumber, start)
				if err != nil {
					return nil, err
				}
				originalStr := FormatDate(original)
				entry := ResolvedSession{
					Session:      session,
					WeekNumber:   weekNumber,
					BlockName:    block.BlockName,
					OriginalDate: originalStr,
					ResolvedDate: originalStr,
				}
				if target, ok := overrides[session.SessionID]; ok && session.SessionID != "" {
					entry.ResolvedDate = target
					entry.IsOverridden = true
				}
				resolved = append(resolved, entry)
			}
		}
	}
	return resolved, nil
}

// SessionsOnDate returns the sessions whose effective date is date.
func SessionsOnDate(resolved []ResolvedSession, date string) []ResolvedSession {
	out := make([]ResolvedSession, 0)
	for _, rs := range resolved {
		if rs.ResolvedDate == date {
			out = append(out, rs)
		}
	}
	return out
}

// FindSession looks a session up by id.
func FindSession(resolved []ResolvedSession, sessionID string) (ResolvedSession, bool) {
	for _, rs := range resolved {
		if rs.Session.SessionID == sessionID {
			return rs, true
		}
	}
	return ResolvedSession{}, false
}

// touchesWeek is the single predicate behind the reset affordance and the
// reset itself: an overridden session counts when it was moved into the week
// or out of it.
func touchesWeek(rs ResolvedSession, overrides OverrideMap, monday, sunday string) bool {
	target, ok := overrides[rs.Session.SessionID]
	if !ok || rs.Session.SessionID == "" {
		return false
	}
	return InRange(target, monday, sunday) || InRange(rs.OriginalDate, monday, sunday)
}

// WeekHasOverrides reports whether any override touches [monday, sunday].
func WeekHasOverrides(resolved []ResolvedSession, overrides OverrideMap, monday, sunday string) bool {
	for _, rs := range resolved {
		if touchesWeek(rs, overrides, monday, sunday) {
			return true
		}
	}
	return false
}

// OverriddenInWeek lists the session ids a reset of [monday, sunday] clears.
func OverriddenInWeek(resolved []ResolvedSession, overrides OverrideMap, monday, sunday string) []string {
	ids := make([]string, 0)
	for _, rs := range resolved {
		if touchesWeek(rs, overrides, monday, sunday) {
			ids = append(ids, rs.Session.SessionID)
		}
	}
	return ids
}

// FindWeek returns the block and week metadata of plan week weekNumber.
func FindWeek(plan *domain.Plan, weekNumber int) (*domain.Block, *domain.Week) {
	if plan == nil {
		return nil, nil
	}
	for bi := range plan.Blocks {
		block := &plan.Blocks[bi]
		for wi := range block.Weeks {
			if block.Weeks[wi].WeekNumber == weekNumber {
				return block, &block.Weeks[wi]
			}
		}
	}
	for bi := range plan.Blocks {
		block := &plan.Blocks[bi]
		if weekNumber >= block.WeekStart && weekNumber <= block.WeekEnd {
			return block, nil
		}
	}
	return nil, nil
}

// TotalWeeks is the declared plan length, or the highest week number present.
func TotalWeeks(plan *domain.Plan) int {
	if plan == nil {
		return 0
	}
	if plan.TotalWeeks > 0 {
		return plan.TotalWeeks
	}
	max := 0
	for _, block := range plan.Blocks {
		if block.WeekEnd > max {
			max = block.WeekEnd
		}
		for _, week := range block.Weeks {
			if week.WeekNumber > max {
				max = week.WeekNumber
			}
		}
	}
	return max
}
