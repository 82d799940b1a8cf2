package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stageiq/stageiq/internal/models"
	"github.com/stageiq/stageiq/internal/services"
)

type UsageHandler struct {
	svc services.UsageService
}

func NewUsageHandler(svc services.UsageService) *UsageHandler {
	return &UsageHandler{svc: svc}
}

// Quota lets the caller see their analysis budget before submitting.
func (h *UsageHandler) Quota(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	info, err := h.svc.Quota(c.Request.Context(), userID, models.CapabilityVideoAnalysis)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// QuotaForUser is the admin view of any user's budget.
func (h *UsageHandler) QuotaForUser(c *gin.Context) {
	info, err := h.svc.Quota(c.Request.Context(), c.Param("user_id"), models.CapabilityVideoAnalysis)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
