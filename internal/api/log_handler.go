// internal/api/log_handler.go
package api

import (
	"net/http"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/service"

	"github.com/gin-gonic/gin"
)

type LogHandler struct {
	logService      service.SessionLogService
	progressService service.ProgressService
}

func NewLogHandler(logService service.SessionLogService, progressService service.ProgressService) *LogHandler {
	return &LogHandler{logService: logService, progressService: progressService}
}

// SaveLog godoc
// @Summary Record completion of a session
// @Description The log is keyed by the session's current date. Marking a session not completed drops rating and notes.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session id"
// @Param body body service.LogInput true "Log"
// @Success 200 {object} domain.SessionLog
// @Failure 400 {object} gin.H "Invalid rating or notes"
// @Failure 404 {object} gin.H "Unknown session"
// @Failure 409 {object} gin.H "Session is no longer on the given date"
// @Router /calendar/sessions/{sessionId}/log [put]
func (h *LogHandler) SaveLog(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	var in service.LogInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	stored, err := h.logService.SaveLog(c.Request.Context(), userID, c.Param("sessionId"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h *LogHandler) GetLog(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	entry, err := h.logService.GetLog(c.Request.Context(), userID, c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *LogHandler) ListLogs(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	logs, err := h.logService.ListLogs(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []domain.SessionLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// Dashboard returns the progress summary for the home screen.
func (h *LogHandler) Dashboard(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	d, err := h.progressService.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
