package service

import (
	"context"
	"sync"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/schedule"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakePlanRepo struct {
	mu      sync.Mutex
	plans   map[primitive.ObjectID]*domain.TrainingPlan
	casErr  error
	casHits int
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: map[primitive.ObjectID]*domain.TrainingPlan{}}
}

func clonePlan(p *domain.TrainingPlan) *domain.TrainingPlan {
	cp := *p
	cp.SessionOverrides = schedule.OverrideMap(p.SessionOverrides).Clone()
	return &cp
}

func (r *fakePlanRepo) put(p *domain.TrainingPlan) *domain.TrainingPlan {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.SessionOverrides == nil {
		p.SessionOverrides = map[string]string{}
	}
	r.plans[p.ID] = clonePlan(p)
	return p
}

func (r *fakePlanRepo) Create(_ context.Context, p *domain.TrainingPlan) (primitive.ObjectID, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.put(p)
	return p.ID, nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePlan(p), nil
}

func (r *fakePlanRepo) latest(userID string, onlyReady bool) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.TrainingPlan
	for _, p := range r.plans {
		if p.UserID != userID || (onlyReady && p.Status != domain.PlanStatusReady) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return clonePlan(best), nil
}

func (r *fakePlanRepo) GetLatestByUser(_ context.Context, userID string) (*domain.TrainingPlan, error) {
	return r.latest(userID, false)
}

func (r *fakePlanRepo) GetLatestReadyByUser(_ context.Context, userID string) (*domain.TrainingPlan, error) {
	return r.latest(userID, true)
}

func (r *fakePlanRepo) MarkReady(_ context.Context, id primitive.ObjectID, doc *domain.PlanDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status == domain.PlanStatusReady {
		return repository.ErrAlreadyReady
	}
	p.Status = domain.PlanStatusReady
	p.PlanData = doc
	p.FailureReason = ""
	p.OverridesVersion++
	return nil
}

func (r *fakePlanRepo) MarkFailed(_ context.Context, id primitive.ObjectID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[id]; ok && p.Status == domain.PlanStatusPending {
		p.Status = domain.PlanStatusFailed
		p.FailureReason = reason
	}
	return nil
}

func (r *fakePlanRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, p := range r.plans {
		if p.UserID == userID {
			delete(r.plans, id)
			n++
		}
	}
	return n, nil
}

func (r *fakePlanRepo) LoadOverrides(_ context.Context, id primitive.ObjectID) (map[string]string, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, 0, repository.ErrNotFound
	}
	return schedule.OverrideMap(p.SessionOverrides).Clone(), p.OverridesVersion, nil
}

func (r *fakePlanRepo) CompareAndSwapOverrides(_ context.Context, id primitive.ObjectID, expected int64, overrides map[string]string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casHits++
	if r.casErr != nil {
		return 0, r.casErr
	}
	p, ok := r.plans[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if p.OverridesVersion != expected {
		return 0, repository.ErrVersionConflict
	}
	p.SessionOverrides = schedule.OverrideMap(overrides).Clone()
	p.OverridesVersion++
	return p.OverridesVersion, nil
}

func (r *fakePlanRepo) overrides(id primitive.ObjectID) map[string]string {
	m, _, _ := r.LoadOverrides(context.Background(), id)
	return m
}

type fakeLogRepo struct {
	mu   sync.Mutex
	logs []domain.SessionLog
	err  error
}

func (r *fakeLogRepo) Upsert(_ context.Context, l *domain.SessionLog) (*domain.SessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.logs {
		e := &r.logs[i]
		if e.UserID == l.UserID && e.PlanID == l.PlanID && e.SessionID == l.SessionID && e.ScheduledDate == l.ScheduledDate {
			e.Completed, e.RPE, e.Notes = l.Completed, l.RPE, l.Notes
			cp := *e
			return &cp, nil
		}
	}
	stored := *l
	stored.ID = primitive.NewObjectID()
	r.logs = append(r.logs, stored)
	return &stored, nil
}

func (r *fakeLogRepo) Get(_ context.Context, userID string, planID primitive.ObjectID, sessionID, date string) (*domain.SessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.logs {
		if e.UserID == userID && e.PlanID == planID && e.SessionID == sessionID && e.ScheduledDate == date {
			cp := e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeLogRepo) ListByUser(_ context.Context, userID string) ([]domain.SessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := []domain.SessionLog{}
	for _, e := range r.logs {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) ListByPlan(ctx context.Context, userID string, planID primitive.ObjectID) ([]domain.SessionLog, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []domain.SessionLog{}
	for _, e := range all {
		if e.PlanID == planID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Starting Monday 2024-01-01:
// w1-mon 01-01, w1-fri 01-05, w2-fri 01-12, w2-sun 01-14, w3-wed 01-17, w4-sat 01-27.
func fixturePlan() *domain.PlanDocument {
	return &domain.PlanDocument{Plan: domain.Plan{
		RaceDate:   "2024-02-04",
		TotalWeeks: 4,
		Blocks: []domain.Block{
			{BlockName: "Base", WeekStart: 1, WeekEnd: 2, Weeks: []domain.Week{
				{WeekNumber: 1, WeekGoal: "settle in", Sessions: []domain.Session{
					{SessionID: "w1-mon", DayOfWeek: "Montag", Focus: "Easy run", DurationMin: 40},
					{SessionID: "w1-fri", DayOfWeek: "Freitag", SessionType: "strength"},
				}},
				{WeekNumber: 2, CoachNote: "keep it easy", Sessions: []domain.Session{
					{SessionID: "w2-fri", DayOfWeek: "Freitag"},
					{SessionID: "w2-sun", DayOfWeek: "Sonntag"},
				}},
			}},
			{BlockName: "Build", WeekStart: 3, WeekEnd: 4, Weeks: []domain.Week{
				{WeekNumber: 3, IsDeloadWeek: true, Sessions: []domain.Session{
					{SessionID: "w3-wed", DayOfWeek: "Mittwoch"},
				}},
				{WeekNumber: 4, Sessions: []domain.Session{
					{SessionID: "w4-sat", DayOfWeek: "Samstag"},
				}},
			}},
		},
	}}
}

func readyPlan(userID string, overrides map[string]string) *domain.TrainingPlan {
	return &domain.TrainingPlan{
		UserID:           userID,
		Status:           domain.PlanStatusReady,
		PlanData:         fixturePlan(),
		OnboardingData:   map[string]interface{}{"startDate": "2024-01-01"},
		SessionOverrides: overrides,
		CreatedAt:        time.Date(2023, 12, 20, 9, 0, 0, 0, time.UTC),
	}
}

func fixedClock(date string) func() time.Time {
	t, err := time.Parse(schedule.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(10 * time.Hour) }
}
