package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/structa/knowledge-backend/internal/http/response"
	"github.com/structa/knowledge-backend/internal/platform/apierr"
	"github.com/structa/knowledge-backend/internal/services"
)

type KnowledgeHandler struct {
	knowledge  *services.KnowledgeService
	enrichment *services.EnrichmentService
}

func NewKnowledgeHandler(knowledge *services.KnowledgeService, enrichment *services.EnrichmentService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge, enrichment: enrichment}
}

type queryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	Mode  string `json:"mode"`
}

func (r queryRequest) validate() (services.SearchMode, error) {
	if strings.TrimSpace(r.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	mode, ok := services.ParseMode(r.Mode)
	if !ok {
		return "", fmt.Errorf("unknown mode %q", r.Mode)
	}
	return mode, nil
}

// POST /api/knowledge/search
func (h *KnowledgeHandler) Search(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mode, err := req.validate()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.knowledge.Search(c.Request.Context(), req.Query, req.Limit, mode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/knowledge/answer
func (h *KnowledgeHandler) Answer(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mode, err := req.validate()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.knowledge.Answer(c.Request.Context(), req.Query, req.Limit, mode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/knowledge/card
func (h *KnowledgeHandler) Card(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mode, err := req.validate()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.knowledge.Card(c.Request.Context(), req.Query, req.Limit, mode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

type enrichRequest struct {
	Items         []services.BatchItem `json:"items"`
	Mode          string               `json:"mode"`
	Limit         int                  `json:"limit"`
	MaxItems      int                  `json:"max_items"`
	Overwrite     bool                 `json:"overwrite"`
	IncludeAnswer bool                 `json:"include_answer"`
	IncludeCard   bool                 `json:"include_card"`
	Async         bool                 `json:"async"`
}

// POST /api/knowledge/enrich
func (h *KnowledgeHandler) Enrich(c *gin.Context) {
	var req enrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Items) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("items is required"))
		return
	}
	mode, ok := services.ParseMode(req.Mode)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("unknown mode %q", req.Mode))
		return
	}
	opts := services.EnrichOptions{
		Mode:          mode,
		Limit:         req.Limit,
		MaxItems:      req.MaxItems,
		Overwrite:     req.Overwrite,
		IncludeAnswer: req.IncludeAnswer,
		IncludeCard:   req.IncludeCard,
	}

	if req.Async {
		rec, err := h.enrichment.SubmitBatch(req.Items, opts)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		response.RespondAccepted(c, gin.H{
			"job_id":     rec.ID,
			"status":     rec.Status,
			"status_url": fmt.Sprintf("/api/jobs/%s", rec.ID),
		})
		return
	}

	response.RespondOK(c, h.enrichment.EnrichBatch(c.Request.Context(), req.Items, opts))
}

type evidencePackRequest struct {
	Items        []services.BatchItem `json:"items"`
	MaxPerKind   int                  `json:"max_per_kind"`
	ExcerptLimit int                  `json:"excerpt_limit"`
}

// POST /api/knowledge/evidence-pack
func (h *KnowledgeHandler) EvidencePack(c *gin.Context) {
	var req evidencePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Items) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("items is required"))
		return
	}
	res, err := h.knowledge.EvidencePack(c.Request.Context(), req.Items, req.MaxPerKind, req.ExcerptLimit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// respondServiceError maps service-layer failures onto the HTTP error
// envelope.
func respondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	switch {
	case errors.As(err, &ae):
		response.RespondError(c, ae.Status, ae.Code, ae.Err)
	case errors.Is(err, services.ErrGenerationDisabled):
		response.RespondError(c, http.StatusServiceUnavailable, "generation_disabled", err)
	case errors.Is(err, services.ErrVectorUnavailable):
		response.RespondError(c, http.StatusServiceUnavailable, "vector_unavailable", err)
	case errors.Is(err, services.ErrRetrievalUnavailable):
		response.RespondError(c, http.StatusServiceUnavailable, "retrieval_unavailable", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
