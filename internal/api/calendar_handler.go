// internal/api/calendar_handler.go
package api

import (
	"net/http"
	"strconv"

	"alcyxob/plan-calendar/internal/service"

	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	calendarService service.CalendarService
	exportService   service.ExportService
}

func NewCalendarHandler(calendarService service.CalendarService, exportService service.ExportService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService, exportService: exportService}
}

// --- DTOs ---

type MoveSessionRequest struct {
	Date string `json:"date" binding:"required"`
}

type ResetWeekRequest struct {
	WeekMonday string `json:"weekMonday" binding:"required"`
	WeekSunday string `json:"weekSunday" binding:"required"`
	Confirm    bool   `json:"confirm"`
}

type WeekResetPreviewResponse struct {
	Monday   string   `json:"monday"`
	Sunday   string   `json:"sunday"`
	Affected []string `json:"affected"`
}

// GetWeek godoc
// @Summary Get one calendar week
// @Description Sessions on their effective dates for plan week N (default: current week).
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param week query int false "Plan week number"
// @Success 200 {object} service.CalendarWeek
// @Failure 400 {object} gin.H "Week out of range"
// @Failure 404 {object} gin.H "No plan"
// @Failure 412 {object} gin.H "Start date missing"
// @Router /calendar [get]
func (h *CalendarHandler) GetWeek(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	week := 0
	if raw := c.Query("week"); raw != "" {
		week, err = strconv.Atoi(raw)
		if err != nil || week < 1 {
			abortWithError(c, http.StatusBadRequest, "week must be a positive number")
			return
		}
	}

	result, err := h.calendarService.GetWeek(c.Request.Context(), userID, week)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CalendarHandler) GetDay(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	day, err := h.calendarService.GetDay(c.Request.Context(), userID, c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// MoveSession godoc
// @Summary Move a session to another date
// @Description Dropping a session on the date it already has changes nothing. A failed write leaves the stored calendar untouched.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session id"
// @Param body body MoveSessionRequest true "Target date"
// @Success 200 {object} service.RescheduleResult
// @Failure 400 {object} gin.H "Invalid date"
// @Failure 404 {object} gin.H "Unknown session"
// @Failure 409 {object} gin.H "Calendar changed elsewhere"
// @Failure 502 {object} gin.H "Write failed"
// @Router /calendar/sessions/{sessionId}/override [put]
func (h *CalendarHandler) MoveSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	var req MoveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.calendarService.MoveSession(c.Request.Context(), userID, c.Param("sessionId"), req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResetSession puts one session back on its computed date.
func (h *CalendarHandler) ResetSession(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	result, err := h.calendarService.ResetSession(c.Request.Context(), userID, c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PreviewWeekReset lists what a week reset would undo, for the confirmation dialog.
func (h *CalendarHandler) PreviewWeekReset(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	monday, sunday := c.Query("monday"), c.Query("sunday")
	if monday == "" || sunday == "" {
		abortWithError(c, http.StatusBadRequest, "monday and sunday are required")
		return
	}

	affected, err := h.calendarService.PreviewWeekReset(c.Request.Context(), userID, monday, sunday)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, WeekResetPreviewResponse{Monday: monday, Sunday: sunday, Affected: affected})
}

// ResetWeek godoc
// @Summary Reset all moves touching a week
// @Description Clears every override moved into or out of the week in one write. Requires confirm=true.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ResetWeekRequest true "Week bounds"
// @Success 200 {object} service.WeekResetResult
// @Failure 400 {object} gin.H "Invalid bounds or not confirmed"
// @Failure 409 {object} gin.H "Calendar changed elsewhere"
// @Failure 502 {object} gin.H "Write failed"
// @Router /calendar/weeks/reset [post]
func (h *CalendarHandler) ResetWeek(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	var req ResetWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.calendarService.ResetWeek(c.Request.Context(), userID, req.WeekMonday, req.WeekSunday, req.Confirm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportCalendar uploads an .ics file of the calendar and returns a download link.
func (h *CalendarHandler) ExportCalendar(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	result, err := h.exportService.ExportCalendar(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
