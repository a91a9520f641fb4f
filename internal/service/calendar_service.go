package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/metrics"
	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/reschedule"
	"alcyxob/plan-calendar/internal/schedule"
)

// ScheduledSession is a resolved session with the log written for its current date, if any.
type ScheduledSession struct {
	schedule.ResolvedSession
	Log *domain.SessionLog `json:"log,omitempty"`
}

type CalendarDay struct {
	Date     string             `json:"date"`
	Weekday  string             `json:"weekday"`
	IsToday  bool               `json:"isToday"`
	Sessions []ScheduledSession `json:"sessions"`
}

// CalendarWeek is one Monday..Sunday page of the calendar.
type CalendarWeek struct {
	WeekNumber   int           `json:"weekNumber"`
	TotalWeeks   int           `json:"totalWeeks"`
	CurrentWeek  int           `json:"currentWeek"`
	Monday       string        `json:"monday"`
	Sunday       string        `json:"sunday"`
	BlockName    string        `json:"blockName,omitempty"`
	WeekGoal     string        `json:"weekGoal,omitempty"`
	CoachNote    string        `json:"coachNote,omitempty"`
	IsDeloadWeek bool          `json:"isDeloadWeek"`
	HasOverrides bool          `json:"hasOverrides"` // Drives the "reset week" affordance
	Days         []CalendarDay `json:"days"`
}

type RescheduleResult struct {
	Session schedule.ResolvedSession `json:"session"`
	Changed bool                     `json:"changed"`
	Version int64                    `json:"version"`
}

type WeekResetResult struct {
	Monday  string   `json:"monday"`
	Sunday  string   `json:"sunday"`
	Cleared []string `json:"cleared"`
	Version int64    `json:"version"`
}

// CalendarService renders the resolved calendar and applies reschedules.
type CalendarService interface {
	// GetWeek renders plan week weekNumber; 0 selects the current week.
	GetWeek(ctx context.Context, userID string, weekNumber int) (*CalendarWeek, error)
	GetDay(ctx context.Context, userID, date string) (*CalendarDay, error)
	MoveSession(ctx context.Context, userID, sessionID, date string) (*RescheduleResult, error)
	ResetSession(ctx context.Context, userID, sessionID string) (*RescheduleResult, error)
	PreviewWeekReset(ctx context.Context, userID, monday, sunday string) ([]string, error)
	ResetWeek(ctx context.Context, userID, monday, sunday string, confirm bool) (*WeekResetResult, error)
}

// calendarService implements the CalendarService interface.
type calendarService struct {
	plans   repository.TrainingPlanRepository
	logs    repository.SessionLogRepository
	metrics *metrics.Manager
	now     func() time.Time
}

// NewCalendarService creates a new instance of calendarService.
func NewCalendarService(
	plans repository.TrainingPlanRepository,
	logs repository.SessionLogRepository,
	m *metrics.Manager,
) CalendarService {
	return &calendarService{
		plans:   plans,
		logs:    logs,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *calendarService) GetWeek(ctx context.Context, userID string, weekNumber int) (*CalendarWeek, error) {
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	total := v.totalWeeks()
	today := schedule.CivilDate(s.now())
	current := schedule.CurrentWeek(v.start, today, total)
	if weekNumber == 0 {
		weekNumber = current
	}
	if weekNumber < 1 || (total > 0 && weekNumber > total) {
		return nil, fmt.Errorf("%w: week %d outside 1..%d", ErrInvalidInput, weekNumber, total)
	}

	logs, err := s.logs.ListByPlan(ctx, userID, v.row.ID)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}

	monday, sunday, err := schedule.WeekRange(v.start, weekNumber)
	if err != nil {
		return nil, err
	}
	dates, err := schedule.WeekDates(v.start, weekNumber)
	if err != nil {
		return nil, err
	}

	week := &CalendarWeek{
		WeekNumber:   weekNumber,
		TotalWeeks:   total,
		CurrentWeek:  current,
		Monday:       monday,
		Sunday:       sunday,
		HasOverrides: schedule.WeekHasOverrides(v.resolved, v.row.SessionOverrides, monday, sunday),
		Days:         make([]CalendarDay, 0, len(dates)),
	}
	if block, w := schedule.FindWeek(&v.row.PlanData.Plan, weekNumber); block != nil {
		week.BlockName = block.BlockName
		if w != nil {
			week.WeekGoal = w.WeekGoal
			week.CoachNote = w.CoachNote
			week.IsDeloadWeek = w.IsDeloadWeek
		}
	}

	index := indexLogs(logs)
	todayStr := schedule.FormatDate(today)
	for i, date := range dates {
		week.Days = append(week.Days, buildDay(v.resolved, index, date, schedule.WeekdayName(i), todayStr))
	}
	return week, nil
}

func (s *calendarService) GetDay(ctx context.Context, userID, date string) (*CalendarDay, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByPlan(ctx, userID, v.row.ID)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}
	weekday := schedule.WeekdayName((int(day.Weekday()) + 6) % 7)
	result := buildDay(v.resolved, indexLogs(logs), date, weekday, schedule.FormatDate(s.now()))
	return &result, nil
}

// MoveSession runs one drag gesture: pick up the session, drop it on date.
func (s *calendarService) MoveSession(ctx context.Context, userID, sessionID, date string) (*RescheduleResult, error) {
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	c := newController(v, s.plans, userID, s.metrics)

	if err := c.BeginDrag(sessionID); err != nil {
		return nil, mapControllerError(err)
	}
	changed, err := c.Drop(ctx, date)
	if err != nil {
		return nil, mapControllerError(err)
	}
	return s.result(c, sessionID, changed)
}

// ResetSession puts a single moved session back on its computed date.
func (s *calendarService) ResetSession(ctx context.Context, userID, sessionID string) (*RescheduleResult, error) {
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := schedule.FindSession(v.resolved, sessionID); !ok {
		return nil, ErrSessionNotFound
	}
	c := newController(v, s.plans, userID, s.metrics)
	changed, err := c.ClearOverride(ctx, sessionID)
	if err != nil {
		return nil, mapControllerError(err)
	}
	return s.result(c, sessionID, changed)
}

func (s *calendarService) PreviewWeekReset(ctx context.Context, userID, monday, sunday string) ([]string, error) {
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	ids, err := newController(v, s.plans, userID, s.metrics).PreviewWeekReset(monday, sunday)
	if err != nil {
		return nil, mapControllerError(err)
	}
	return ids, nil
}

func (s *calendarService) ResetWeek(ctx context.Context, userID, monday, sunday string, confirm bool) (*WeekResetResult, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	c := newController(v, s.plans, userID, s.metrics)
	cleared, err := c.ResetWeek(ctx, monday, sunday)
	if err != nil {
		return nil, mapControllerError(err)
	}
	return &WeekResetResult{Monday: monday, Sunday: sunday, Cleared: cleared, Version: c.Version()}, nil
}

func (s *calendarService) result(c *reschedule.Controller, sessionID string, changed bool) (*RescheduleResult, error) {
	resolved, err := c.Resolved()
	if err != nil {
		return nil, err
	}
	rs, ok := schedule.FindSession(resolved, sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &RescheduleResult{Session: rs, Changed: changed, Version: c.Version()}, nil
}

// mapControllerError translates controller validation errors to service errors.
// *reschedule.ActionError passes through untouched.
func mapControllerError(err error) error {
	switch {
	case errors.Is(err, reschedule.ErrUnknownSession):
		return ErrSessionNotFound
	case errors.Is(err, reschedule.ErrInvalidWeekBounds):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return err
	}
}

type logKey struct {
	sessionID string
	date      string
}

func indexLogs(logs []domain.SessionLog) map[logKey]*domain.SessionLog {
	index := make(map[logKey]*domain.SessionLog, len(logs))
	for i := range logs {
		index[logKey{logs[i].SessionID, logs[i].ScheduledDate}] = &logs[i]
	}
	return index
}

// buildDay collects the sessions resolved onto date. A log only shows when it
// was written for the session's current date; logs of a session that has since
// moved stay on their original date and are not carried along.
func buildDay(resolved []schedule.ResolvedSession, logs map[logKey]*domain.SessionLog, date, weekday, today string) CalendarDay {
	day := CalendarDay{
		Date:     date,
		Weekday:  weekday,
		IsToday:  date == today,
		Sessions: []ScheduledSession{},
	}
	for _, rs := range schedule.SessionsOnDate(resolved, date) {
		day.Sessions = append(day.Sessions, ScheduledSession{
			ResolvedSession: rs,
			Log:             logs[logKey{rs.Session.SessionID, date}],
		})
	}
	return day
}
