// internal/api/event_handler.go
package api

import (
	"net/http"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	eventService service.EventService
}

func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// RaceEventRequest is one catalog entry pushed by the scraper.
type RaceEventRequest struct {
	Name     string `json:"name"`
	RaceDate string `json:"race_date"`
}

// SyncEvents godoc
// @Summary Upsert race events
// @Description Called by the catalog scraper with the shared secret header. Events are keyed on name and race date.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param x-app-secret header string true "Shared secret"
// @Param body body []RaceEventRequest true "Events"
// @Success 200 {object} gin.H
// @Failure 400 {object} gin.H "Body must be a non-empty array"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /webhooks/events [post]
func (h *EventHandler) SyncEvents(c *gin.Context) {
	var req []RaceEventRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		abortWithError(c, http.StatusBadRequest, "Body must be a non-empty array")
		return
	}

	events := make([]domain.RaceEvent, 0, len(req))
	for _, e := range req {
		events = append(events, domain.RaceEvent{Name: e.Name, RaceDate: e.RaceDate})
	}
	n, err := h.eventService.SyncEvents(c.Request.Context(), events)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
}

// ListUpcoming returns the events a user can still train for.
func (h *EventHandler) ListUpcoming(c *gin.Context) {
	events, err := h.eventService.ListUpcoming(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
