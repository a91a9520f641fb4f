package service

import (
	"context"
	"fmt"
	"time"

	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/storage"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const icsContentType = "text/calendar; charset=utf-8"

type ExportResult struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"objectKey"`
	Events    int       `json:"events"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExportService publishes the resolved calendar as an .ics download.
type ExportService interface {
	ExportCalendar(ctx context.Context, userID string) (*ExportResult, error)
}

// exportService implements the ExportService interface.
type exportService struct {
	plans     repository.TrainingPlanRepository
	files     storage.FileStorage
	urlExpiry time.Duration
	now       func() time.Time
}

// NewExportService creates a new instance of exportService. files may be nil
// when no object storage is configured.
func NewExportService(plans repository.TrainingPlanRepository, files storage.FileStorage, urlExpiry time.Duration) ExportService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &exportService{
		plans:     plans,
		files:     files,
		urlExpiry: urlExpiry,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *exportService) ExportCalendar(ctx context.Context, userID string) (*ExportResult, error) {
	if s.files == nil {
		return nil, ErrStorageUnavailable
	}
	v, err := loadReadyPlan(ctx, s.plans, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	body, err := renderICS(v.row.ID.Hex(), v.resolved, now)
	if err != nil {
		return nil, fmt.Errorf("render calendar: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s.ics", userID, uuid.NewString())
	if err := s.files.PutObject(ctx, key, icsContentType, []byte(body)); err != nil {
		return nil, fmt.Errorf("upload calendar: %w", err)
	}
	url, err := s.files.GeneratePresignedDownloadURL(ctx, key, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign calendar: %w", err)
	}

	log.WithFields(log.Fields{"userId": userID, "key": key, "events": len(v.resolved)}).Info("calendar exported")
	return &ExportResult{
		URL:       url,
		ObjectKey: key,
		Events:    len(v.resolved),
		ExpiresAt: now.Add(s.urlExpiry),
	}, nil
}
