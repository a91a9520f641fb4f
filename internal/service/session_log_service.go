package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/schedule"

	log "github.com/sirupsen/logrus"
)

// LogInput is what the user records for a session.
type LogInput struct {
	Completed     bool    `json:"completed"`
	RPE           *int    `json:"rpe,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	ScheduledDate string  `json:"scheduledDate,omitempty"` // Optional; must equal the session's current date when sent
}

// SessionLogService records and reads completion logs.
type SessionLogService interface {
	// SaveLog upserts the log of sessionID on its current resolved date.
	SaveLog(ctx context.Context, userID, sessionID string, in LogInput) (*domain.SessionLog, error)
	// GetLog returns the log of sessionID on its current resolved date.
	GetLog(ctx context.Context, userID, sessionID string) (*domain.SessionLog, error)
	ListLogs(ctx context.Context, userID string) ([]domain.SessionLog, error)
}

// sessionLogService implements the SessionLogService interface.
type sessionLogService struct {
	plans repository.TrainingPlanRepository
	logs  repository.SessionLogRepository
}

// NewSessionLogService creates a new instance of sessionLogService.
func NewSessionLogService(plans repository.TrainingPlanRepository, logs repository.SessionLogRepository) SessionLogService {
	return &sessionLogService{plans: plans, logs: logs}
}

func (s *sessionLogService) SaveLog(ctx context.Context, userID, sessionID string, in LogInput) (*domain.SessionLog, error) {
	// 1. Validate input
	if err := validateLogInput(&in); err != nil {
		return nil, err
	}

	// 2. The key date is always the session's current resolved date
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	rs, ok := schedule.FindSession(v.resolved, sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if in.ScheduledDate != "" && in.ScheduledDate != rs.ResolvedDate {
		return nil, fmt.Errorf("%w: got %s, session is on %s", ErrDateMismatch, in.ScheduledDate, rs.ResolvedDate)
	}

	// 3. Upsert; a session marked not completed keeps no rating or notes
	entry := &domain.SessionLog{
		UserID:        userID,
		PlanID:        v.row.ID,
		SessionID:     sessionID,
		ScheduledDate: rs.ResolvedDate,
		Completed:     in.Completed,
	}
	if in.Completed {
		entry.RPE = in.RPE
		entry.Notes = in.Notes
	}
	stored, err := s.logs.Upsert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("save log: %w", err)
	}

	log.WithFields(log.Fields{
		"userId":        userID,
		"sessionId":     sessionID,
		"scheduledDate": rs.ResolvedDate,
		"completed":     in.Completed,
	}).Debug("session log saved")
	return stored, nil
}

func (s *sessionLogService) GetLog(ctx context.Context, userID, sessionID string) (*domain.SessionLog, error) {
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}
	rs, ok := schedule.FindSession(v.resolved, sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry, err := s.logs.Get(ctx, userID, v.row.ID, sessionID, rs.ResolvedDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (s *sessionLogService) ListLogs(ctx context.Context, userID string) ([]domain.SessionLog, error) {
	return s.logs.ListByUser(ctx, userID)
}

func validateLogInput(in *LogInput) error {
	if in.RPE != nil && (*in.RPE < domain.MinRPE || *in.RPE > domain.MaxRPE) {
		return fmt.Errorf("%w: rpe must be between %d and %d", ErrInvalidInput, domain.MinRPE, domain.MaxRPE)
	}
	if in.Notes != nil {
		trimmed := strings.TrimSpace(*in.Notes)
		if utf8.RuneCountInString(trimmed) > domain.MaxNotesLength {
			return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidInput, domain.MaxNotesLength)
		}
		if trimmed == "" {
			in.Notes = nil
		} else {
			in.Notes = &trimmed
		}
	}
	if in.ScheduledDate != "" {
		if _, err := schedule.ParseDate(in.ScheduledDate); err != nil {
			return err
		}
	}
	return nil
}
