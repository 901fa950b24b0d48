package services

import (
	"context"
	"errors"

	"github.com/structa/knowledge-backend/internal/domain"
)

// SearchMode selects which retrieval paths a query runs.
type SearchMode string

const (
	ModeHybrid   SearchMode = "hybrid"
	ModeFulltext SearchMode = "fulltext"
	ModeVector   SearchMode = "vector"
)

func ParseMode(s string) (SearchMode, bool) {
	switch SearchMode(s) {
	case ModeHybrid, ModeFulltext, ModeVector:
		return SearchMode(s), true
	case "":
		return ModeHybrid, true
	default:
		return "", false
	}
}

var (
	// ErrGenerationDisabled is returned when no text-generation
	// credential is configured. Never retried, never cached.
	ErrGenerationDisabled = errors.New("text generation is disabled: openai_api_key is not set")

	// ErrRetrievalUnavailable propagates an unreachable graph store to
	// the caller; retry policy belongs to the caller.
	ErrRetrievalUnavailable = errors.New("knowledge store unavailable")

	// ErrVectorUnavailable is returned for explicit vector-mode queries
	// when the embedding path is down.
	ErrVectorUnavailable = errors.New("vector search unavailable")
)

// FulltextSearcher is the full-text retrieval primitive.
type FulltextSearcher interface {
	Search(ctx context.Context, query string, kind domain.Kind, limit int) ([]domain.EvidenceItem, error)
}

// VectorSearcher is the similarity retrieval primitive.
type VectorSearcher interface {
	Available() bool
	Search(ctx context.Context, embedding []float32, kind domain.Kind, limit int) ([]domain.EvidenceItem, error)
}

// Embedder turns query text into fixed-length vectors. Failures degrade
// the search mode instead of failing the query.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Generator is the external text-generation capability.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
}

// CacheMeta reports whether a response was served from cache and how
// old the cached entry is.
type CacheMeta struct {
	Hit        bool    `json:"hit"`
	AgeSeconds float64 `json:"age_seconds"`
}

// SearchResult is the grounded-retrieval response shared by search,
// answer and card. Mode is the effective mode after any degrade.
type SearchResult struct {
	Query     string                `json:"query"`
	Mode      SearchMode            `json:"mode"`
	Warning   string                `json:"warning,omitempty"`
	Standards []domain.EvidenceItem `json:"standards"`
	Laws      []domain.EvidenceItem `json:"laws"`
	Trust     domain.TrustRecord    `json:"trust"`
	CacheMeta CacheMeta             `json:"cache_meta"`
}

func (r SearchResult) Clone() SearchResult {
	out := r
	out.Standards = domain.CloneEvidenceItems(r.Standards)
	out.Laws = domain.CloneEvidenceItems(r.Laws)
	out.Trust = r.Trust.Clone()
	return out
}

// AnswerResult extends a search result with a generated answer.
type AnswerResult struct {
	SearchResult
	Answer string `json:"answer"`
}

func (r AnswerResult) Clone() AnswerResult {
	return AnswerResult{SearchResult: r.SearchResult.Clone(), Answer: r.Answer}
}

// CardResult extends a search result with a generated execution card.
type CardResult struct {
	SearchResult
	Card domain.Card `json:"card"`
}

func (r CardResult) Clone() CardResult {
	return CardResult{SearchResult: r.SearchResult.Clone(), Card: r.Card.Clone()}
}

// BatchItem is one unit of a batch enrichment request. Query drives
// retrieval; the enrichment fields are filled in by EnrichBatch.
type BatchItem struct {
	ID       string                `json:"id"`
	Title    string                `json:"title,omitempty"`
	Query    string                `json:"query"`
	Evidence []domain.EvidenceItem `json:"evidence,omitempty"`
	Trust    *domain.TrustRecord   `json:"trust,omitempty"`
	Answer   string                `json:"answer,omitempty"`
	Card     *domain.Card          `json:"card,omitempty"`
}

// BatchItemError records one failed item of a batch; the item itself is
// passed through unenriched.
type BatchItemError struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// EnrichResult is the outcome of one batch enrichment run.
type EnrichResult struct {
	Items    []BatchItem      `json:"items"`
	Enriched int              `json:"enriched"`
	Skipped  int              `json:"skipped"`
	Errors   []BatchItemError `json:"errors"`
}

// EvidencePackResult bundles retrieved evidence for a set of items into
// one markdown document plus a deduplicated evidence index.
type EvidencePackResult struct {
	Markdown      string                `json:"markdown"`
	Items         []BatchItem           `json:"items"`
	EvidenceIndex []domain.EvidenceItem `json:"evidence_index"`
}

func (r EvidencePackResult) Clone() EvidencePackResult {
	out := r
	out.Items = append([]BatchItem(nil), r.Items...)
	out.EvidenceIndex = domain.CloneEvidenceItems(r.EvidenceIndex)
	return out
}

// DurationBaseline summarizes the schedule gap the planner worked from.
type DurationBaseline struct {
	CurrentDays float64 `json:"current_days"`
	TargetDays  float64 `json:"target_days"`
	GapDays     float64 `json:"gap_days"`
	GapRatio    float64 `json:"gap_ratio"`
}

// DurationEvidence carries the trust assessment and evidence links that
// ground a duration recommendation.
type DurationEvidence struct {
	Trust domain.TrustRecord    `json:"trust"`
	Links []domain.EvidenceItem `json:"links"`
}

// DurationResult is the multi-scenario schedule-adequacy
// recommendation.
type DurationResult struct {
	Baseline          DurationBaseline  `json:"baseline"`
	Bottlenecks       []domain.PlanTask `json:"bottlenecks"`
	Scenarios         []domain.Scenario `json:"scenarios"`
	PrimaryScenarioID string            `json:"primary_scenario_id"`
	Evidence          DurationEvidence  `json:"evidence"`
	Warning           string            `json:"warning,omitempty"`
	CacheMeta         CacheMeta         `json:"cache_meta"`
}

func (r DurationResult) Clone() DurationResult {
	out := r
	out.Bottlenecks = append([]domain.PlanTask(nil), r.Bottlenecks...)
	out.Scenarios = domain.CloneScenarios(r.Scenarios)
	out.Evidence.Trust = r.Evidence.Trust.Clone()
	out.Evidence.Links = domain.CloneEvidenceItems(r.Evidence.Links)
	return out
}
