// internal/domain/training_plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanStatus tracks the lifecycle of a generated plan row.
type PlanStatus string

const (
	PlanStatusPending PlanStatus = "pending" // Generation requested, plan document not yet delivered
	PlanStatusReady   PlanStatus = "ready"   // Plan document stored, calendar usable
	PlanStatusFailed  PlanStatus = "failed"  // Generator call failed or never delivered; a new request is allowed
)

// TrainingPlan is the persisted row for one generated plan of a user.
// The override map lives on this row: one map per plan, not one row per session.
type TrainingPlan struct {
	ID               primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID           string                 `bson:"userId" json:"userId"` // Subject of the auth token
	Status           PlanStatus             `bson:"status" json:"status"`
	PlanData         *PlanDocument          `bson:"planData,omitempty" json:"planData,omitempty"`
	OnboardingData   map[string]interface{} `bson:"onboardingData,omitempty" json:"onboardingData,omitempty"` // Snapshot of the questionnaire answers
	SessionOverrides map[string]string      `bson:"sessionOverrides" json:"sessionOverrides"`                 // sessionId -> yyyy-mm-dd
	OverridesVersion int64                  `bson:"overridesVersion" json:"overridesVersion"`                 // Bumped on every override write
	FailureReason    string                 `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt        time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time              `bson:"updatedAt" json:"updatedAt"`
}

// StartDate returns the plan start date from the onboarding snapshot, or ""
// when the questionnaire did not carry one.
func (p *TrainingPlan) StartDate() string {
	if p == nil || p.OnboardingData == nil {
		return ""
	}
	raw, ok := p.OnboardingData["startDate"]
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

// IsReady reports whether the plan document is available.
func (p *TrainingPlan) IsReady() bool {
	return p != nil && p.Status == PlanStatusReady && p.PlanData != nil
}
