package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/schedule"

	log "github.com/sirupsen/logrus"
)

// EventService maintains the race event catalog shown during onboarding.
type EventService interface {
	// SyncEvents upserts a batch pushed by the catalog scraper and returns
	// the number of distinct events written.
	SyncEvents(ctx context.Context, events []domain.RaceEvent) (int64, error)
	// ListUpcoming returns events from today on, soonest first.
	ListUpcoming(ctx context.Context) ([]domain.RaceEvent, error)
}

// eventService implements the EventService interface.
type eventService struct {
	events repository.RaceEventRepository
	now    func() time.Time
}

func NewEventService(events repository.RaceEventRepository) EventService {
	return &eventService{
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *eventService) SyncEvents(ctx context.Context, events []domain.RaceEvent) (int64, error) {
	// 1. Validate the whole batch before writing any of it
	if len(events) == 0 {
		return 0, fmt.Errorf("%w: at least one event is required", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(events))
	batch := make([]domain.RaceEvent, 0, len(events))
	for i, e := range events {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return 0, fmt.Errorf("%w: event %d has no name", ErrInvalidInput, i)
		}
		if _, err := schedule.ParseDate(e.RaceDate); err != nil {
			return 0, fmt.Errorf("%w: event %d: %v", ErrInvalidInput, i, err)
		}
		// 2. Collapse repeats of the same key
		key := name + "\x00" + e.RaceDate
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		batch = append(batch, domain.RaceEvent{Name: name, RaceDate: e.RaceDate})
	}

	// 3. Upsert
	n, err := s.events.UpsertMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("sync race events: %w", err)
	}
	log.WithFields(log.Fields{"received": len(events), "written": n}).Info("race events synced")
	return n, nil
}

func (s *eventService) ListUpcoming(ctx context.Context) ([]domain.RaceEvent, error) {
	today := schedule.FormatDate(s.now())
	return s.events.ListFrom(ctx, today)
}
