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

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// planView is a ready plan of a user together with its resolved calendar.
type planView struct {
	row       *domain.TrainingPlan
	start     time.Time
	startDate string
	resolved  []schedule.ResolvedSession
}

func (v *planView) totalWeeks() int {
	return schedule.TotalWeeks(&v.row.PlanData.Plan)
}

// loadReadyPlan fetches the newest ready plan of userID and resolves it.
// It fails with ErrPlanNotFound, ErrPlanNotReady or schedule.ErrMissingStartDate.
func loadReadyPlan(ctx context.Context, plans repository.TrainingPlanRepository, userID string) (*planView, error) {
	row, err := plans.GetLatestReadyByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			latest, lerr := plans.GetLatestByUser(ctx, userID)
			if lerr == nil && latest.Status == domain.PlanStatusPending {
				return nil, ErrPlanNotReady
			}
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if !row.IsReady() {
		return nil, ErrPlanNotReady
	}

	start, err := schedule.ParseStartDate(row.StartDate())
	if err != nil {
		return nil, err
	}
	startDate := schedule.FormatDate(start)
	resolved, err := schedule.Resolve(&row.PlanData.Plan, startDate, row.SessionOverrides)
	if err != nil {
		return nil, err
	}
	return &planView{row: row, start: start, startDate: startDate, resolved: resolved}, nil
}

// overrideStore lets a reschedule.Controller persist through the plan repository.
type overrideStore struct {
	plans repository.TrainingPlanRepository
}

func (s overrideStore) LoadOverrides(ctx context.Context, planID string) (schedule.OverrideMap, int64, error) {
	id, err := primitive.ObjectIDFromHex(planID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: plan id %q", ErrInvalidInput, planID)
	}
	overrides, version, err := s.plans.LoadOverrides(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return overrides, version, nil
}

func (s overrideStore) SaveOverrides(ctx context.Context, planID string, expectedVersion int64, overrides schedule.OverrideMap) (int64, error) {
	id, err := primitive.ObjectIDFromHex(planID)
	if err != nil {
		return 0, fmt.Errorf("%w: plan id %q", ErrInvalidInput, planID)
	}
	return s.plans.CompareAndSwapOverrides(ctx, id, expectedVersion, overrides)
}

// logNotifier reports failed override writes in the service log; the HTTP
// layer turns the returned error into the user-facing message.
type logNotifier struct {
	userID string
}

func (n logNotifier) NotifyFailure(action reschedule.Action, message string, err error) {
	log.WithFields(log.Fields{
		"userId": n.userID,
		"action": action,
		"error":  err,
	}).Warn(message)
}

// newController hydrates a reschedule controller from the plan row, which
// already carries the override map and its version.
func newController(v *planView, plans repository.TrainingPlanRepository, userID string, m *metrics.Manager) *reschedule.Controller {
	opts := []reschedule.Option{reschedule.WithNotifier(logNotifier{userID: userID})}
	if m != nil {
		opts = append(opts, reschedule.WithMetrics(m))
	}
	return reschedule.New(reschedule.Config{
		PlanID:    v.row.ID.Hex(),
		Plan:      &v.row.PlanData.Plan,
		StartDate: v.startDate,
		Overrides: v.row.SessionOverrides,
		Version:   v.row.OverridesVersion,
	}, overrideStore{plans: plans}, opts...)
}
