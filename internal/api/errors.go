package api

import (
	"errors"
	"net/http"

	"alcyxob/plan-calendar/internal/repository"
	"alcyxob/plan-calendar/internal/reschedule"
	"alcyxob/plan-calendar/internal/schedule"
	"alcyxob/plan-calendar/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var actionErr *reschedule.ActionError
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrDuplicateSessionID),
		errors.Is(err, service.ErrConfirmationRequired),
		errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, schedule.ErrInvalidWeek):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrLogNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrMissingStartDate):
		abortWithError(c, http.StatusPreconditionFailed, "Plan has no start date. Please complete onboarding again.")
	case errors.Is(err, repository.ErrVersionConflict):
		// The stored map changed since it was read; the client has to reload.
		abortWithError(c, http.StatusConflict, "Calendar was changed elsewhere. Please reload.")
	case errors.Is(err, service.ErrPlanNotReady),
		errors.Is(err, service.ErrDateMismatch):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPlanPending),
		errors.Is(err, service.ErrRateLimited):
		abortWithError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &actionErr):
		abortWithError(c, http.StatusBadGateway, actionErr.Message())
	default:
		log.WithField("path", c.FullPath()).WithError(err).Error("unhandled error")
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
