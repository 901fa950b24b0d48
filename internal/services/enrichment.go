package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/structa/knowledge-backend/internal/jobs"
	"github.com/structa/knowledge-backend/internal/platform/apierr"
	"github.com/structa/knowledge-backend/internal/platform/logger"
)

const (
	MaxBatchItems    = 1000
	MaxEnrichedItems = 50
	maxItemErrorLen  = 200
)

// EnrichOptions controls one batch enrichment run.
type EnrichOptions struct {
	Mode          SearchMode
	Limit         int
	MaxItems      int
	Overwrite     bool
	IncludeAnswer bool
	IncludeCard   bool
}

// EnrichmentService runs batch evidence enrichment, inline or through
// the async job manager.
type EnrichmentService struct {
	log       *logger.Logger
	knowledge *KnowledgeService
	jobs      *jobs.Manager
}

func NewEnrichmentService(log *logger.Logger, knowledge *KnowledgeService, manager *jobs.Manager) *EnrichmentService {
	if log != nil {
		log = log.With("service", "EnrichmentService")
	}
	return &EnrichmentService{log: log, knowledge: knowledge, jobs: manager}
}

// EnrichBatch enriches up to opts.MaxItems items with retrieved
// evidence (and optionally generated answers/cards). One failed item
// never aborts the batch: the failure lands in Errors and the item
// passes through unchanged.
func (s *EnrichmentService) EnrichBatch(ctx context.Context, items []BatchItem, opts EnrichOptions) EnrichResult {
	if len(items) > MaxBatchItems {
		items = items[:MaxBatchItems]
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 || maxItems > MaxEnrichedItems {
		maxItems = MaxEnrichedItems
	}
	limit := clampLimit(opts.Limit, MaxAnswerLimit)

	result := EnrichResult{
		Items:  make([]BatchItem, 0, len(items)),
		Errors: []BatchItemError{},
	}
	for _, item := range items {
		if result.Enriched >= maxItems {
			result.Items = append(result.Items, item)
			result.Skipped++
			continue
		}
		if !opts.Overwrite && len(item.Evidence) > 0 {
			result.Items = append(result.Items, item)
			result.Skipped++
			continue
		}
		enriched, err := s.enrichOne(ctx, item, limit, opts)
		if err != nil {
			result.Items = append(result.Items, item)
			result.Errors = append(result.Errors, BatchItemError{
				ItemID: item.ID,
				Reason: truncateReason(err.Error()),
			})
			continue
		}
		result.Items = append(result.Items, enriched)
		result.Enriched++
	}
	return result
}

// SubmitBatch queues an async enrichment run and returns the job
// snapshot for polling.
func (s *EnrichmentService) SubmitBatch(items []BatchItem, opts EnrichOptions) (jobs.Record, error) {
	if s.jobs == nil {
		return jobs.Record{}, apierr.New(http.StatusServiceUnavailable, "jobs_disabled",
			fmt.Errorf("async enrichment not available: job manager not configured"))
	}
	rec, ok := s.jobs.Submit(func(ctx context.Context) (any, error) {
		return s.EnrichBatch(ctx, items, opts), nil
	})
	if !ok {
		return rec, apierr.New(http.StatusServiceUnavailable, "jobs_saturated",
			fmt.Errorf("async enrichment rejected: %s", rec.Error))
	}
	return rec, nil
}

func (s *EnrichmentService) JobStatus(id string, includeResult bool) (jobs.Record, bool) {
	if s.jobs == nil {
		return jobs.Record{}, false
	}
	return s.jobs.Get(id, includeResult)
}

func (s *EnrichmentService) enrichOne(ctx context.Context, item BatchItem, limit int, opts EnrichOptions) (BatchItem, error) {
	if strings.TrimSpace(item.Query) == "" {
		return item, fmt.Errorf("item has no query")
	}
	sr, err := s.knowledge.Search(ctx, item.Query, limit, opts.Mode)
	if err != nil {
		return item, err
	}
	item.Evidence = append(sr.Standards, sr.Laws...)
	tr := sr.Trust
	item.Trust = &tr

	if opts.IncludeAnswer {
		ans, err := s.knowledge.Answer(ctx, item.Query, limit, opts.Mode)
		if err != nil {
			return item, fmt.Errorf("answer: %w", err)
		}
		item.Answer = ans.Answer
	}
	if opts.IncludeCard {
		card, err := s.knowledge.Card(ctx, item.Query, limit, opts.Mode)
		if err != nil {
			return item, fmt.Errorf("card: %w", err)
		}
		c := card.Card
		item.Card = &c
	}
	return item, nil
}

func truncateReason(reason string) string {
	if len(reason) > maxItemErrorLen {
		return reason[:maxItemErrorLen]
	}
	return reason
}
