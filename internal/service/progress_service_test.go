package service

import (
	"context"
	"errors"
	"testing"

	"alcyxob/plan-calendar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	plans := newFakePlanRepo()
	logs := &fakeLogRepo{}
	// w2-sun pulled forward onto today
	plan := plans.put(readyPlan("user-1", map[string]string{"w2-sun": "2024-01-10"}))
	logs.logs = []domain.SessionLog{
		{UserID: "user-1", PlanID: plan.ID, SessionID: "w1-mon", ScheduledDate: "2024-01-01", Completed: true},
		{UserID: "user-1", PlanID: plan.ID, SessionID: "w2-sun", ScheduledDate: "2024-01-10", Completed: true},
		{UserID: "user-1", SessionID: "old-plan", ScheduledDate: "2023-11-01", Completed: true},
	}
	svc := NewProgressService(plans, logs).(*progressService)
	svc.now = fixedClock("2024-01-10")

	d, err := svc.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, d.CurrentWeek)
	assert.Equal(t, 4, d.TotalWeeks)
	assert.Equal(t, "Base", d.BlockName)
	assert.Equal(t, 50, d.BlockProgress)
	assert.Equal(t, "keep it easy", d.CoachNote)
	require.NotNil(t, d.DaysUntilRace)
	assert.Equal(t, 25, *d.DaysUntilRace)
	assert.Equal(t, 4, *d.WeeksUntilRace)
	assert.Equal(t, 2, d.CompletedCount)
	assert.Equal(t, 6, d.TotalSessions)

	require.Len(t, d.Today, 1)
	assert.Equal(t, "w2-sun", d.Today[0].Session.SessionID)
	require.NotNil(t, d.Today[0].Log)

	var upcoming []string
	for _, s := range d.Upcoming {
		upcoming = append(upcoming, s.Session.SessionID)
	}
	assert.Equal(t, []string{"w2-fri", "w3-wed", "w4-sat"}, upcoming)

	require.Len(t, d.Week, 7)
	assert.True(t, d.Week[0].IsPast)
	assert.True(t, d.Week[2].IsToday)
	assert.True(t, d.Week[2].HasSession)
	assert.True(t, d.Week[2].Completed)
	assert.True(t, d.Week[4].HasSession)
	assert.False(t, d.Week[4].Completed)
	assert.False(t, d.Week[6].HasSession, "sunday session was moved away")
}

func TestDashboard_Errors(t *testing.T) {
	plans := newFakePlanRepo()
	plans.put(readyPlan("user-1", nil))

	svc := NewProgressService(plans, &fakeLogRepo{err: errors.New("db down")})
	_, err := svc.Dashboard(context.Background(), "user-1")
	assert.Error(t, err)

	svc = NewProgressService(plans, &fakeLogRepo{})
	_, err = svc.Dashboard(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestBlockProgress(t *testing.T) {
	block := &domain.Block{WeekStart: 3, WeekEnd: 6}
	assert.Equal(t, 0, blockProgress(block, 3))
	assert.Equal(t, 50, blockProgress(block, 5))
	assert.Equal(t, 0, blockProgress(block, 1))
	assert.Equal(t, 100, blockProgress(block, 9))
}
