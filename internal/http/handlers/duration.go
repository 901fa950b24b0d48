package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/http/response"
	"github.com/structa/knowledge-backend/internal/services"
)

type DurationHandler struct {
	duration *services.DurationService
}

func NewDurationHandler(duration *services.DurationService) *DurationHandler {
	return &DurationHandler{duration: duration}
}

type durationRequest struct {
	CurrentDays float64           `json:"current_days"`
	TargetDays  float64           `json:"target_days"`
	Tasks       []domain.PlanTask `json:"tasks"`
	Mode        string            `json:"mode"`
	Limit       int               `json:"limit"`
}

// POST /api/agents/duration
func (h *DurationHandler) Plan(c *gin.Context) {
	var req durationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mode, ok := services.ParseMode(req.Mode)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("unknown mode %q", req.Mode))
		return
	}
	res, err := h.duration.Plan(c.Request.Context(), req.CurrentDays, req.TargetDays, req.Tasks, mode, req.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}
