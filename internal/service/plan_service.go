package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/metrics"
	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/schedule"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// PlanGenerator starts the external plan generation job.
type PlanGenerator interface {
	RequestPlan(ctx context.Context, userID string, onboarding map[string]interface{}) error
}

// PlanService covers the plan lifecycle: request, delivery, status.
type PlanService interface {
	// RequestGeneration inserts a pending plan row and triggers the generator.
	RequestGeneration(ctx context.Context, userID string, onboarding map[string]interface{}) (*domain.TrainingPlan, error)
	// IngestPlan stores a generated plan document on the user's latest row.
	IngestPlan(ctx context.Context, userID string, doc *domain.PlanDocument) (*domain.TrainingPlan, error)
	// GetCurrent returns the user's latest plan row whatever its status.
	GetCurrent(ctx context.Context, userID string) (*domain.TrainingPlan, error)
	// DiscardPlans deletes every plan row of the user so onboarding can start over.
	DiscardPlans(ctx context.Context, userID string) (int64, error)
}

// PlanServiceConfig tunes generation requests.
type PlanServiceConfig struct {
	MinInterval      time.Duration // Minimum age of the latest ready plan before another may be generated
	GeneratorTimeout time.Duration
	PendingTimeout   time.Duration // A pending row older than this is treated as failed
}

// planService implements the PlanService interface.
type planService struct {
	plans     repository.TrainingPlanRepository
	generator PlanGenerator
	metrics   *metrics.Manager
	cfg       PlanServiceConfig
	now       func() time.Time
	// async runs the generator call detached from the request
	async func(func())
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	plans repository.TrainingPlanRepository,
	generator PlanGenerator,
	m *metrics.Manager,
	cfg PlanServiceConfig,
) PlanService {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 24 * time.Hour
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = 30 * time.Second
	}
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = 15 * time.Minute
	}
	return &planService{
		plans:     plans,
		generator: generator,
		metrics:   m,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		async:     func(f func()) { go f() },
	}
}

func (s *planService) RequestGeneration(ctx context.Context, userID string, onboarding map[string]interface{}) (*domain.TrainingPlan, error) {
	// 1. Validate input
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if raw, ok := onboarding["startDate"]; ok {
		str, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("%w: startDate must be a string", ErrInvalidInput)
		}
		if _, err := schedule.ParseStartDate(str); err != nil && !errors.Is(err, schedule.ErrMissingStartDate) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	// 2. One plan in flight, one ready plan per interval
	latest, err := s.plans.GetLatestByUser(ctx, userID)
	switch {
	case err == nil:
		if latest.Status == domain.PlanStatusPending {
			if s.now().Sub(latest.CreatedAt) < s.cfg.PendingTimeout {
				s.countPlanRequest("pending")
				return nil, ErrPlanPending
			}
			// Never delivered; release the slot
			if err := s.plans.MarkFailed(ctx, latest.ID, "plan not delivered in time"); err != nil {
				return nil, fmt.Errorf("expire pending plan: %w", err)
			}
			log.WithFields(log.Fields{"userId": userID, "planId": latest.ID.Hex()}).Warn("stale pending plan marked failed")
		}
		if latest.Status == domain.PlanStatusReady && s.now().Sub(latest.CreatedAt) < s.cfg.MinInterval {
			s.countPlanRequest("rate_limited")
			return nil, ErrRateLimited
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("load latest plan: %w", err)
	}

	// 3. Insert pending row
	plan := &domain.TrainingPlan{
		UserID:           userID,
		Status:           domain.PlanStatusPending,
		OnboardingData:   onboarding,
		SessionOverrides: map[string]string{},
	}
	if _, err := s.plans.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("create pending plan: %w", err)
	}
	s.countPlanRequest("accepted")

	// 4. Trigger the generator; the plan arrives later through IngestPlan
	if s.generator != nil {
		s.async(func() {
			genCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GeneratorTimeout)
			defer cancel()
			fields := log.Fields{"userId": userID, "planId": plan.ID.Hex()}
			if err := s.generator.RequestPlan(genCtx, userID, onboarding); err != nil {
				log.WithFields(fields).WithError(err).Error("plan generator call failed")
				s.failPlan(plan, err)
				return
			}
			log.WithFields(fields).Info("plan generation requested")
		})
	}
	return plan, nil
}

func (s *planService) IngestPlan(ctx context.Context, userID string, doc *domain.PlanDocument) (*domain.TrainingPlan, error) {
	if userID == "" || doc == nil {
		return nil, fmt.Errorf("%w: userId and plan_data are required", ErrInvalidInput)
	}
	if len(doc.Plan.Blocks) == 0 {
		return nil, fmt.Errorf("%w: plan has no blocks", ErrInvalidInput)
	}
	if err := assignSessionIDs(&doc.Plan); err != nil {
		return nil, err
	}

	latest, err := s.plans.GetLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load latest plan: %w", err)
	}
	fields := log.Fields{"userId": userID, "planId": latest.ID.Hex()}
	// Webhooks may be redelivered; the stored document and its moves win
	if latest.Status == domain.PlanStatusReady {
		log.WithFields(fields).Info("duplicate plan delivery ignored")
		return latest, nil
	}
	if err := s.plans.MarkReady(ctx, latest.ID, doc); err != nil {
		if !errors.Is(err, repository.ErrAlreadyReady) {
			return nil, fmt.Errorf("store plan document: %w", err)
		}
		log.WithFields(fields).Info("duplicate plan delivery ignored")
		return s.plans.GetByID(ctx, latest.ID)
	}

	log.WithFields(fields).WithField("totalWeeks", schedule.TotalWeeks(&doc.Plan)).Info("training plan delivered")

	return s.plans.GetByID(ctx, latest.ID)
}

func (s *planService) GetCurrent(ctx context.Context, userID string) (*domain.TrainingPlan, error) {
	plan, err := s.plans.GetLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *planService) DiscardPlans(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	n, err := s.plans.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("discard plans: %w", err)
	}
	log.WithFields(log.Fields{"userId": userID, "deleted": n}).Info("training plans discarded")
	return n, nil
}

// failPlan records a generator failure on the pending row. The request
// context is gone by now, so the write gets its own deadline.
func (s *planService) failPlan(plan *domain.TrainingPlan, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.plans.MarkFailed(ctx, plan.ID, cause.Error()); err != nil {
		log.WithField("planId", plan.ID.Hex()).WithError(err).Error("failed to mark plan failed")
	}
}

func (s *planService) countPlanRequest(outcome string) {
	if s.metrics != nil {
		s.metrics.CounterPlanRequests.WithLabelValues(outcome).Inc()
	}
}

// assignSessionIDs gives every session without an id a fresh one, since
// overrides and logs are keyed by session id. Duplicate ids are rejected.
func assignSessionIDs(plan *domain.Plan) error {
	seen := make(map[string]struct{})
	for bi := range plan.Blocks {
		for wi := range plan.Blocks[bi].Weeks {
			sessions := plan.Blocks[bi].Weeks[wi].Sessions
			for si := range sessions {
				if sessions[si].SessionID == "" {
					sessions[si].SessionID = uuid.NewString()
				}
				id := sessions[si].SessionID
				if _, dup := seen[id]; dup {
					return fmt.Errorf("%w: %s", ErrDuplicateSessionID, id)
				}
				seen[id] = struct{}{}
			}
		}
	}
	return nil
}
