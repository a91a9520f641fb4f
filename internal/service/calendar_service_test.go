package service

import (
	"context"
	"errors"
	"testing"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/metrics"
	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/reschedule"
	"alcyxob/plan-calendar/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalendar(t *testing.T, overrides map[string]string, today string) (*calendarService, *fakePlanRepo, *fakeLogRepo, *domain.TrainingPlan) {
	t.Helper()
	plans := newFakePlanRepo()
	logs := &fakeLogRepo{}
	plan := plans.put(readyPlan("user-1", overrides))
	svc := NewCalendarService(plans, logs, metrics.NewTestManager()).(*calendarService)
	svc.now = fixedClock(today)
	return svc, plans, logs, plan
}

func sessionIDs(day CalendarDay) []string {
	ids := make([]string, 0, len(day.Sessions))
	for _, s := range day.Sessions {
		ids = append(ids, s.Session.SessionID)
	}
	return ids
}

func TestGetWeek_CurrentWeekAndMetadata(t *testing.T) {
	svc, _, _, _ := newTestCalendar(t, nil, "2024-01-10")

	week, err := svc.GetWeek(context.Background(), "user-1", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, week.WeekNumber)
	assert.Equal(t, 2, week.CurrentWeek)
	assert.Equal(t, 4, week.TotalWeeks)
	assert.Equal(t, "2024-01-08", week.Monday)
	assert.Equal(t, "2024-01-14", week.Sunday)
	assert.Equal(t, "Base", week.BlockName)
	assert.Equal(t, "keep it easy", week.CoachNote)
	assert.False(t, week.HasOverrides)

	require.Len(t, week.Days, 7)
	assert.Equal(t, "Montag", week.Days[0].Weekday)
	assert.True(t, week.Days[2].IsToday)
	assert.Equal(t, []string{"w2-fri"}, sessionIDs(week.Days[4]))
	assert.Equal(t, []string{"w2-sun"}, sessionIDs(week.Days[6]))
}

func TestGetWeek_ShowsSessionsWhereTheyWereMoved(t *testing.T) {
	// w2-fri moved from week 2 into week 3
	svc, _, _, _ := newTestCalendar(t, map[string]string{"w2-fri": "2024-01-15"}, "2024-01-10")

	week2, err := svc.GetWeek(context.Background(), "user-1", 2)
	require.NoError(t, err)
	assert.Empty(t, week2.Days[4].Sessions)
	assert.True(t, week2.HasOverrides, "moved out of the week")

	week3, err := svc.GetWeek(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"w2-fri"}, sessionIDs(week3.Days[0]))
	assert.True(t, week3.Days[0].Sessions[0].IsOverridden)
	assert.Equal(t, "2024-01-12", week3.Days[0].Sessions[0].OriginalDate)
	assert.True(t, week3.HasOverrides, "moved into the week")
	assert.True(t, week3.IsDeloadWeek)
}

func TestGetWeek_Errors(t *testing.T) {
	svc, plans, _, _ := newTestCalendar(t, nil, "2024-01-10")
	ctx := context.Background()

	_, err := svc.GetWeek(ctx, "user-1", 5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.GetWeek(ctx, "nobody", 1)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	noStart := readyPlan("user-2", nil)
	noStart.OnboardingData = map[string]interface{}{}
	plans.put(noStart)
	_, err = svc.GetWeek(ctx, "user-2", 1)
	assert.ErrorIs(t, err, schedule.ErrMissingStartDate)

	plans.put(&domain.TrainingPlan{UserID: "user-3", Status: domain.PlanStatusPending})
	_, err = svc.GetWeek(ctx, "user-3", 1)
	assert.ErrorIs(t, err, ErrPlanNotReady)
}

func TestGetDay_AttachesLogOfCurrentDateOnly(t *testing.T) {
	svc, _, logs, plan := newTestCalendar(t, map[string]string{"w1-fri": "2024-01-04"}, "2024-01-04")
	ctx := context.Background()
	logs.logs = []domain.SessionLog{
		{UserID: "user-1", PlanID: plan.ID, SessionID: "w1-fri", ScheduledDate: "2024-01-05", Completed: true},
		{UserID: "user-1", PlanID: plan.ID, SessionID: "w1-fri", ScheduledDate: "2024-01-04", Completed: false},
	}

	day, err := svc.GetDay(ctx, "user-1", "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, "Donnerstag", day.Weekday)
	assert.True(t, day.IsToday)
	require.Len(t, day.Sessions, 1)
	require.NotNil(t, day.Sessions[0].Log)
	assert.Equal(t, "2024-01-04", day.Sessions[0].Log.ScheduledDate)

	day, err = svc.GetDay(ctx, "user-1", "2024-01-05")
	require.NoError(t, err)
	assert.Empty(t, day.Sessions, "the old log stays behind without its session")

	_, err = svc.GetDay(ctx, "user-1", "2024/01/05")
	assert.ErrorIs(t, err, schedule.ErrInvalidDate)
}

func TestMoveSession(t *testing.T) {
	svc, plans, _, plan := newTestCalendar(t, nil, "2024-01-02")
	ctx := context.Background()

	res, err := svc.MoveSession(ctx, "user-1", "w1-fri", "2024-01-03")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "2024-01-03", res.Session.ResolvedDate)
	assert.Equal(t, "2024-01-05", res.Session.OriginalDate)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, map[string]string{"w1-fri": "2024-01-03"}, plans.overrides(plan.ID))

	res, err = svc.MoveSession(ctx, "user-1", "w1-fri", "2024-01-03")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, plans.casHits)

	_, err = svc.MoveSession(ctx, "user-1", "missing", "2024-01-03")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.MoveSession(ctx, "user-1", "w1-mon", "tomorrow")
	assert.ErrorIs(t, err, schedule.ErrInvalidDate)
}

func TestMoveSession_FailedWriteLeavesStoreUntouched(t *testing.T) {
	svc, plans, _, plan := newTestCalendar(t, map[string]string{"w2-sun": "2024-01-13"}, "2024-01-02")
	plans.casErr = errors.New("connection reset")

	_, err := svc.MoveSession(context.Background(), "user-1", "w1-fri", "2024-01-03")
	var actionErr *reschedule.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, reschedule.ActionMove, actionErr.Action)
	assert.Equal(t, map[string]string{"w2-sun": "2024-01-13"}, plans.overrides(plan.ID))
}

func TestMoveSession_ConcurrentWriterConflicts(t *testing.T) {
	svc, plans, _, _ := newTestCalendar(t, nil, "2024-01-02")
	plans.casErr = repository.ErrVersionConflict

	_, err := svc.MoveSession(context.Background(), "user-1", "w1-fri", "2024-01-03")
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestResetSession(t *testing.T) {
	svc, plans, _, plan := newTestCalendar(t, map[string]string{"w1-fri": "2024-01-03"}, "2024-01-02")
	ctx := context.Background()

	res, err := svc.ResetSession(ctx, "user-1", "w1-fri")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "2024-01-05", res.Session.ResolvedDate)
	assert.False(t, res.Session.IsOverridden)
	assert.Empty(t, plans.overrides(plan.ID))

	res, err = svc.ResetSession(ctx, "user-1", "w1-fri")
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = svc.ResetSession(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWeekReset(t *testing.T) {
	overrides := map[string]string{
		"w1-fri": "2024-01-09", // into week 2
		"w2-sun": "2024-01-16", // out of week 2
		"w4-sat": "2024-01-25", // within week 4
	}
	svc, plans, _, plan := newTestCalendar(t, overrides, "2024-01-02")
	ctx := context.Background()

	preview, err := svc.PreviewWeekReset(ctx, "user-1", "2024-01-08", "2024-01-14")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"w1-fri", "w2-sun"}, preview)

	_, err = svc.ResetWeek(ctx, "user-1", "2024-01-08", "2024-01-14", false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Zero(t, plans.casHits)

	res, err := svc.ResetWeek(ctx, "user-1", "2024-01-08", "2024-01-14", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"w1-fri", "w2-sun"}, res.Cleared)
	assert.Equal(t, map[string]string{"w4-sat": "2024-01-25"}, plans.overrides(plan.ID))

	_, err = svc.ResetWeek(ctx, "user-1", "2024-01-14", "2024-01-08", true)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// A span wider than the displayed week would clear the week-4 move
	_, err = svc.ResetWeek(ctx, "user-1", "2024-01-10", "2024-01-28", true)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, map[string]string{"w4-sat": "2024-01-25"}, plans.overrides(plan.ID))
}
