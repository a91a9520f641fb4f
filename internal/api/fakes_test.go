package api

import (
	"context"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/service"
)

type fakePlanService struct {
	requestFn func(userID string, onboarding map[string]interface{}) (*domain.TrainingPlan, error)
	ingestFn  func(userID string, doc *domain.PlanDocument) (*domain.TrainingPlan, error)
	currentFn func(userID string) (*domain.TrainingPlan, error)
	discardFn func(userID string) (int64, error)
}

func (f *fakePlanService) RequestGeneration(_ context.Context, userID string, onboarding map[string]interface{}) (*domain.TrainingPlan, error) {
	return f.requestFn(userID, onboarding)
}

func (f *fakePlanService) IngestPlan(_ context.Context, userID string, doc *domain.PlanDocument) (*domain.TrainingPlan, error) {
	return f.ingestFn(userID, doc)
}

func (f *fakePlanService) GetCurrent(_ context.Context, userID string) (*domain.TrainingPlan, error) {
	return f.currentFn(userID)
}

func (f *fakePlanService) DiscardPlans(_ context.Context, userID string) (int64, error) {
	return f.discardFn(userID)
}

type fakeCalendarService struct {
	weekFn    func(userID string, week int) (*service.CalendarWeek, error)
	dayFn     func(userID, date string) (*service.CalendarDay, error)
	moveFn    func(userID, sessionID, date string) (*service.RescheduleResult, error)
	resetFn   func(userID, sessionID string) (*service.RescheduleResult, error)
	previewFn func(userID, monday, sunday string) ([]string, error)
	weekReset func(userID, monday, sunday string, confirm bool) (*service.WeekResetResult, error)
}

func (f *fakeCalendarService) GetWeek(_ context.Context, userID string, week int) (*service.CalendarWeek, error) {
	return f.weekFn(userID, week)
}

func (f *fakeCalendarService) GetDay(_ context.Context, userID, date string) (*service.CalendarDay, error) {
	return f.dayFn(userID, date)
}

func (f *fakeCalendarService) MoveSession(_ context.Context, userID, sessionID, date string) (*service.RescheduleResult, error) {
	return f.moveFn(userID, sessionID, date)
}

func (f *fakeCalendarService) ResetSession(_ context.Context, userID, sessionID string) (*service.RescheduleResult, error) {
	return f.resetFn(userID, sessionID)
}

func (f *fakeCalendarService) PreviewWeekReset(_ context.Context, userID, monday, sunday string) ([]string, error) {
	return f.previewFn(userID, monday, sunday)
}

func (f *fakeCalendarService) ResetWeek(_ context.Context, userID, monday, sunday string, confirm bool) (*service.WeekResetResult, error) {
	return f.weekReset(userID, monday, sunday, confirm)
}

type fakeLogService struct {
	saveFn func(userID, sessionID string, in service.LogInput) (*domain.SessionLog, error)
	getFn  func(userID, sessionID string) (*domain.SessionLog, error)
	listFn func(userID string) ([]domain.SessionLog, error)
}

func (f *fakeLogService) SaveLog(_ context.Context, userID, sessionID string, in service.LogInput) (*domain.SessionLog, error) {
	return f.saveFn(userID, sessionID, in)
}

func (f *fakeLogService) GetLog(_ context.Context, userID, sessionID string) (*domain.SessionLog, error) {
	return f.getFn(userID, sessionID)
}

func (f *fakeLogService) ListLogs(_ context.Context, userID string) ([]domain.SessionLog, error) {
	return f.listFn(userID)
}

type fakeProgressService struct {
	dashboardFn func(userID string) (*service.Dashboard, error)
}

func (f *fakeProgressService) Dashboard(_ context.Context, userID string) (*service.Dashboard, error) {
	return f.dashboardFn(userID)
}

type fakeExportService struct {
	exportFn func(userID string) (*service.ExportResult, error)
}

func (f *fakeExportService) ExportCalendar(_ context.Context, userID string) (*service.ExportResult, error) {
	return f.exportFn(userID)
}

type fakeEventService struct {
	syncFn func(events []domain.RaceEvent) (int64, error)
	listFn func() ([]domain.RaceEvent, error)
}

func (f *fakeEventService) SyncEvents(_ context.Context, events []domain.RaceEvent) (int64, error) {
	return f.syncFn(events)
}

func (f *fakeEventService) ListUpcoming(_ context.Context) ([]domain.RaceEvent, error) {
	return f.listFn()
}
