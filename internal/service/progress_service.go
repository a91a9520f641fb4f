package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/schedule"

	"golang.org/x/sync/errgroup"
)

// upcomingLimit is how many future sessions the dashboard lists.
const upcomingLimit = 3

// DayStatus is one dot of the current-week strip on the dashboard.
type DayStatus struct {
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	IsToday    bool   `json:"isToday"`
	IsPast     bool   `json:"isPast"`
	HasSession bool   `json:"hasSession"`
	Completed  bool   `json:"completed"` // Every session on the day has a completed log
}

type Dashboard struct {
	PlanID         string             `json:"planId"`
	CurrentWeek    int                `json:"currentWeek"`
	TotalWeeks     int                `json:"totalWeeks"`
	BlockName      string             `json:"blockName,omitempty"`
	BlockProgress  int                `json:"blockProgress"` // Percent of the current block elapsed
	WeekGoal       string             `json:"weekGoal,omitempty"`
	CoachNote      string             `json:"coachNote,omitempty"`
	IsDeloadWeek   bool               `json:"isDeloadWeek"`
	DaysUntilRace  *int               `json:"daysUntilRace,omitempty"`
	WeeksUntilRace *int               `json:"weeksUntilRace,omitempty"`
	Today          []ScheduledSession `json:"today"`
	Upcoming       []ScheduledSession `json:"upcoming"`
	Week           []DayStatus        `json:"week"`
	CompletedCount int                `json:"completedCount"`
	TotalSessions  int                `json:"totalSessions"`
}

// ProgressService builds the dashboard summary.
type ProgressService interface {
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
}

// progressService implements the ProgressService interface.
type progressService struct {
	plans repository.TrainingPlanRepository
	logs  repository.SessionLogRepository
	now   func() time.Time
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(plans repository.TrainingPlanRepository, logs repository.SessionLogRepository) ProgressService {
	return &progressService{
		plans: plans,
		logs:  logs,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *progressService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	// Plan and logs are independent reads
	var (
		v       *planView
		allLogs []domain.SessionLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		v, err = loadReadyPlan(gctx, s.plans, userID)
		return err
	})
	g.Go(func() error {
		var err error
		allLogs, err = s.logs.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("load logs: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	planLogs := make([]domain.SessionLog, 0, len(allLogs))
	for _, l := range allLogs {
		if l.PlanID == v.row.ID {
			planLogs = append(planLogs, l)
		}
	}
	index := indexLogs(planLogs)

	today := schedule.CivilDate(s.now())
	todayStr := schedule.FormatDate(today)
	plan := &v.row.PlanData.Plan
	total := v.totalWeeks()
	current := schedule.CurrentWeek(v.start, today, total)

	d := &Dashboard{
		PlanID:        v.row.ID.Hex(),
		CurrentWeek:   current,
		TotalWeeks:    total,
		TotalSessions: len(v.resolved),
		Today:         []ScheduledSession{},
		Upcoming:      []ScheduledSession{},
	}

	block, week := schedule.FindWeek(plan, current)
	if block == nil && len(plan.Blocks) > 0 {
		block = &plan.Blocks[0]
	}
	if block != nil {
		d.BlockName = block.BlockName
		d.BlockProgress = blockProgress(block, current)
	}
	if week != nil {
		d.WeekGoal = week.WeekGoal
		d.CoachNote = week.CoachNote
		d.IsDeloadWeek = week.IsDeloadWeek
	}

	if plan.RaceDate != "" {
		if race, err := schedule.ParseStartDate(plan.RaceDate); err == nil {
			days := int(math.Ceil(race.Sub(today).Hours() / 24))
			weeks := int(math.Ceil(float64(days) / 7))
			d.DaysUntilRace = &days
			d.WeeksUntilRace = &weeks
		}
	}

	for _, l := range planLogs {
		if l.Completed {
			d.CompletedCount++
		}
	}

	// Today and upcoming follow the resolved dates, so moved sessions show where they now are
	future := make([]schedule.ResolvedSession, 0)
	for _, rs := range v.resolved {
		switch {
		case rs.ResolvedDate == todayStr:
			d.Today = append(d.Today, ScheduledSession{ResolvedSession: rs, Log: index[logKey{rs.Session.SessionID, todayStr}]})
		case rs.ResolvedDate > todayStr:
			future = append(future, rs)
		}
	}
	sort.SliceStable(future, func(i, j int) bool { return future[i].ResolvedDate < future[j].ResolvedDate })
	for i := 0; i < len(future) && i < upcomingLimit; i++ {
		d.Upcoming = append(d.Upcoming, ScheduledSession{ResolvedSession: future[i]})
	}

	dates, err := schedule.WeekDates(v.start, current)
	if err != nil {
		return nil, err
	}
	d.Week = make([]DayStatus, 0, len(dates))
	for i, date := range dates {
		status := DayStatus{
			Date:    date,
			Weekday: schedule.WeekdayName(i),
			IsToday: date == todayStr,
			IsPast:  date < todayStr,
		}
		sessions := schedule.SessionsOnDate(v.resolved, date)
		status.HasSession = len(sessions) > 0
		status.Completed = status.HasSession
		for _, rs := range sessions {
			if l := index[logKey{rs.Session.SessionID, date}]; l == nil || !l.Completed {
				status.Completed = false
			}
		}
		d.Week = append(d.Week, status)
	}
	return d, nil
}

// blockProgress is the elapsed share of block at week, as a whole percent in [0, 100].
func blockProgress(block *domain.Block, week int) int {
	start := block.WeekStart
	if start < 1 {
		start = 1
	}
	end := block.WeekEnd
	if end < start {
		end = start
	}
	span := end - start + 1
	pct := int(math.Round(float64(week-start) / float64(span) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
