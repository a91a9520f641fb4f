package repository

import (
	"alcyxob/plan-calendar/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound        = RepositoryError("not found")
	ErrUpdateFailed    = RepositoryError("update failed")
	ErrVersionConflict = RepositoryError("override map was changed concurrently")
	ErrDuplicate       = RepositoryError("duplicate key")
	ErrAlreadyReady    = RepositoryError("plan document already delivered")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TrainingPlanRepository stores generated plans and their override map.
type TrainingPlanRepository interface {
	Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error)
	// GetLatestByUser returns the newest plan row of the user, whatever its status.
	GetLatestByUser(ctx context.Context, userID string) (*domain.TrainingPlan, error)
	// GetLatestReadyByUser returns the newest plan whose document has been delivered.
	GetLatestReadyByUser(ctx context.Context, userID string) (*domain.TrainingPlan, error)
	// MarkReady stores the plan document on a pending or failed row and flips
	// it to ready. A row that is already ready is left untouched and yields
	// ErrAlreadyReady, so the override map survives a repeated delivery.
	MarkReady(ctx context.Context, id primitive.ObjectID, doc *domain.PlanDocument) error
	// MarkFailed moves a pending row to failed. Rows in any other state are left alone.
	MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error
	// DeleteByUser removes every plan row of the user and returns how many were deleted.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	LoadOverrides(ctx context.Context, id primitive.ObjectID) (map[string]string, int64, error)
	// CompareAndSwapOverrides replaces the whole override map if the stored
	// version still equals expectedVersion, and returns the new version.
	// A stale expectedVersion yields ErrVersionConflict.
	CompareAndSwapOverrides(ctx context.Context, id primitive.ObjectID, expectedVersion int64, overrides map[string]string) (int64, error)
}

// SessionLogRepository stores completion logs keyed by (user, plan, session, scheduled date).
type SessionLogRepository interface {
	// Upsert creates or updates the log for the key tuple of log and returns the stored row.
	Upsert(ctx context.Context, log *domain.SessionLog) (*domain.SessionLog, error)
	Get(ctx context.Context, userID string, planID primitive.ObjectID, sessionID, scheduledDate string) (*domain.SessionLog, error)
	ListByUser(ctx context.Context, userID string) ([]domain.SessionLog, error)
	ListByPlan(ctx context.Context, userID string, planID primitive.ObjectID) ([]domain.SessionLog, error)
}

// RaceEventRepository stores the race event catalog.
type RaceEventRepository interface {
	// UpsertMany inserts or refreshes events keyed on (name, raceDate) and
	// returns how many rows were written.
	UpsertMany(ctx context.Context, events []domain.RaceEvent) (int64, error)
	// ListFrom returns events on or after the given yyyy-mm-dd date, soonest first.
	ListFrom(ctx context.Context, from string) ([]domain.RaceEvent, error)
}
