// internal/api/plan_handler.go
package api

import (
	"errors"
	"net/http"

	"alcyxob/plan-calendar/internal/domain"
	"alcyxob/plan-calendar/internal/service"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

type GeneratePlanRequest struct {
	Onboarding map[string]interface{} `json:"onboarding" binding:"required"`
}

// IngestPlanRequest is posted by the generator once a plan is ready.
type IngestPlanRequest struct {
	UserID   string               `json:"userId" binding:"required"`
	Status   string               `json:"status"`
	PlanData *domain.PlanDocument `json:"plan_data" binding:"required"`
}

type PlanStatusResponse struct {
	Status string               `json:"status"` // none, pending, ready or failed
	Plan   *domain.TrainingPlan `json:"plan,omitempty"`
}

// RequestGeneration godoc
// @Summary Request a new training plan
// @Description Stores the onboarding answers and starts plan generation. At most one plan may be pending, and a new plan may only be requested 24h after the last one.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GeneratePlanRequest true "Onboarding answers"
// @Success 202 {object} PlanStatusResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 429 {object} gin.H "Plan pending or requested too recently"
// @Router /plans/generate [post]
func (h *PlanHandler) RequestGeneration(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	plan, err := h.planService.RequestGeneration(c.Request.Context(), userID, req.Onboarding)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, PlanStatusResponse{Status: string(plan.Status), Plan: plan})
}

// GetCurrent reports the generation state of the user's latest plan.
func (h *PlanHandler) GetCurrent(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	plan, err := h.planService.GetCurrent(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			c.JSON(http.StatusOK, PlanStatusResponse{Status: "none"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PlanStatusResponse{Status: string(plan.Status), Plan: plan})
}

// DiscardPlans godoc
// @Summary Discard the user's plans
// @Description Deletes every plan row of the user, pending and failed ones included, so onboarding can start over.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H
// @Router /plans/current [delete]
func (h *PlanHandler) DiscardPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	n, err := h.planService.DiscardPlans(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// IngestPlan godoc
// @Summary Deliver a generated plan
// @Description Called by the generator with the shared secret header. Session ids are assigned where missing.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param x-app-secret header string true "Shared secret"
// @Param body body IngestPlanRequest true "Generated plan"
// @Success 200 {object} gin.H
// @Failure 400 {object} gin.H "Invalid plan document"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "No plan row for the user"
// @Router /webhooks/plans [post]
func (h *PlanHandler) IngestPlan(c *gin.Context) {
	var req IngestPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Missing userId or plan_data")
		return
	}
	if req.Status != "" && req.Status != string(domain.PlanStatusReady) {
		abortWithError(c, http.StatusBadRequest, "Unsupported status: "+req.Status)
		return
	}

	plan, err := h.planService.IngestPlan(c.Request.Context(), req.UserID, req.PlanData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "planId": plan.ID.Hex()})
}
