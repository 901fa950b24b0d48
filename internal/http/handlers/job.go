package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/structa/knowledge-backend/internal/http/response"
	"github.com/structa/knowledge-backend/internal/services"
)

type JobHandler struct {
	enrichment *services.EnrichmentService
}

func NewJobHandler(enrichment *services.EnrichmentService) *JobHandler {
	return &JobHandler{enrichment: enrichment}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	includeResult := c.DefaultQuery("include_result", "true") != "false"
	rec, ok := h.enrichment.JobStatus(jobID.String(), includeResult)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job %s not found", jobID))
		return
	}
	response.RespondOK(c, gin.H{"job": rec})
}
