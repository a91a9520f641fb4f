package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	objects map[string]string
	types   map[string]string
}

func (s *fakeStorage) PutObject(_ context.Context, key, contentType string, body []byte) error {
	if s.objects == nil {
		s.objects = map[string]string{}
		s.types = map[string]string{}
	}
	s.objects[key] = string(body)
	s.types[key] = contentType
	return nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.example/" + key + "?sig=abc", nil
}

func TestExportCalendar(t *testing.T) {
	plans := newFakePlanRepo()
	plans.put(readyPlan("user-1", map[string]string{"w1-fri": "2024-01-04"}))
	files := &fakeStorage{}
	svc := NewExportService(plans, files, time.Hour).(*exportService)
	svc.now = fixedClock("2024-01-02")

	res, err := svc.ExportCalendar(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Events)
	assert.True(t, strings.HasPrefix(res.ObjectKey, "exports/user-1/"))
	assert.Contains(t, res.URL, res.ObjectKey)
	assert.Equal(t, time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC), res.ExpiresAt)

	body := files.objects[res.ObjectKey]
	assert.Equal(t, icsContentType, files.types[res.ObjectKey])
	assert.Equal(t, 6, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "UID:w1-fri@")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20240104\r\n")
	assert.Contains(t, body, "DTEND;VALUE=DATE:20240105\r\n")
	assert.NotContains(t, body, "DTSTART;VALUE=DATE:20240105")
}

func TestExportCalendar_NoStorage(t *testing.T) {
	plans := newFakePlanRepo()
	plans.put(readyPlan("user-1", nil))

	_, err := NewExportService(plans, nil, 0).ExportCalendar(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestRenderICS_EscapesAndFolds(t *testing.T) {
	long := strings.Repeat("Intervalle, Tempo; ", 8)
	sessions := []schedule.ResolvedSession{{
		Session:      domain.Session{SessionID: "s1", Focus: long, Exercises: []domain.Exercise{{Name: "Squat", Sets: 3, Reps: "8-10"}}},
		WeekNumber:   1,
		ResolvedDate: "2024-01-05",
	}}

	out, err := renderICS("plan", sessions, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 75, line)
	}
	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	assert.Contains(t, unfolded, `SUMMARY:Intervalle\, Tempo\; `)
	assert.Contains(t, unfolded, `- Squat 3x8-10`)
	assert.Contains(t, unfolded, "DTSTAMP:20240101T000000Z")
	assert.Contains(t, unfolded, "PRODID:-//plan-calendar//training plan//EN")
	assert.Contains(t, unfolded, `DESCRIPTION:Week 1\n- Squat 3x8-10`)

	_, err = renderICS("plan", []schedule.ResolvedSession{{ResolvedDate: "bad"}}, time.Now())
	assert.Error(t, err)
}
