package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/structa/knowledge-backend/internal/cache"
	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/platform/logger"
	"github.com/structa/knowledge-backend/internal/search"
	"github.com/structa/knowledge-backend/internal/trust"
)

const (
	MaxSearchLimit      = 30
	MaxAnswerLimit      = 20
	MaxPackItems        = 1000
	MaxEvidencePerKind  = 20
	MaxPackExcerptChars = 2000
)

// Caches groups the per-concern result caches. Each concern gets its
// own instance so churn in one cannot evict entries of another.
type Caches struct {
	Search   *cache.Cache[SearchResult]
	Answer   *cache.Cache[AnswerResult]
	Card     *cache.Cache[CardResult]
	Evidence *cache.Cache[EvidencePackResult]
	Duration *cache.Cache[DurationResult]
}

// KnowledgeService orchestrates grounded retrieval: sanitize, run the
// full-text and vector paths, fuse, score, and attach the trust layer.
type KnowledgeService struct {
	log      *logger.Logger
	fulltext FulltextSearcher
	vector   VectorSearcher
	embedder Embedder
	gen      Generator
	analyzer *trust.Analyzer
	caches   Caches
	alpha    float64
}

func NewKnowledgeService(
	log *logger.Logger,
	fulltext FulltextSearcher,
	vector VectorSearcher,
	embedder Embedder,
	gen Generator,
	analyzer *trust.Analyzer,
	caches Caches,
) *KnowledgeService {
	if log != nil {
		log = log.With("service", "KnowledgeService")
	}
	return &KnowledgeService{
		log:      log,
		fulltext: fulltext,
		vector:   vector,
		embedder: embedder,
		gen:      gen,
		analyzer: analyzer,
		caches:   caches,
		alpha:    search.DefaultAlpha,
	}
}

// SetAlpha overrides the vector weight of hybrid fusion. Values
// outside (0,1) keep the default.
func (s *KnowledgeService) SetAlpha(alpha float64) {
	if alpha > 0 && alpha < 1 {
		s.alpha = alpha
	}
}

// Search runs one grounded retrieval. The returned mode is the
// effective mode: hybrid and vector degrade to fulltext with a warning
// when the embedding path is down, except that explicit vector mode is
// a hard failure.
func (s *KnowledgeService) Search(ctx context.Context, query string, limit int, mode SearchMode) (SearchResult, error) {
	limit = clampLimit(limit, MaxSearchLimit)
	key := cacheKey(string(mode), limit, query)
	if s.caches.Search != nil {
		if hit, ok := s.caches.Search.Get(key); ok {
			hit.CacheMeta = s.searchCacheMeta(key)
			return hit, nil
		}
	}

	result, err := s.retrieve(ctx, query, limit, mode)
	if err != nil {
		return SearchResult{}, err
	}
	// A degraded result (hybrid fell back to fulltext) stays uncached
	// so callers see vector hits again as soon as the embedder recovers.
	if s.caches.Search != nil && result.Query != "" && result.Mode == mode {
		s.caches.Search.Set(key, result)
	}
	return result, nil
}

func (s *KnowledgeService) retrieve(ctx context.Context, query string, limit int, mode SearchMode) (SearchResult, error) {
	sanitized := search.Sanitize(query)
	result := SearchResult{
		Query:     sanitized,
		Mode:      mode,
		Standards: []domain.EvidenceItem{},
		Laws:      []domain.EvidenceItem{},
	}
	if sanitized == "" {
		result.Trust = s.analyzer.BuildTrustLayer("", nil, nil)
		return result, nil
	}

	effMode := mode
	var embedding []float32
	if mode != ModeFulltext {
		vec, warn, err := s.embedQuery(ctx, sanitized)
		if err != nil {
			if mode == ModeVector {
				return SearchResult{}, fmt.Errorf("%w: %s", ErrVectorUnavailable, warn)
			}
			effMode = ModeFulltext
			result.Warning = warn
		}
		embedding = vec
	}
	result.Mode = effMode

	var ftStandards, ftLaws, vecStandards, vecLaws []domain.EvidenceItem
	g, gctx := errgroup.WithContext(ctx)
	if effMode != ModeVector {
		g.Go(func() error {
			var err error
			ftStandards, err = s.fulltext.Search(gctx, sanitized, domain.KindStandard, limit)
			return err
		})
		g.Go(func() error {
			var err error
			ftLaws, err = s.fulltext.Search(gctx, sanitized, domain.KindLaw, limit)
			return err
		})
	}
	if effMode != ModeFulltext {
		g.Go(func() error {
			var err error
			vecStandards, err = s.vector.Search(gctx, embedding, domain.KindStandard, limit)
			return err
		})
		g.Go(func() error {
			var err error
			vecLaws, err = s.vector.Search(gctx, embedding, domain.KindLaw, limit)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	switch effMode {
	case ModeFulltext:
		result.Standards = search.AttachEvidenceScores(ftStandards)
		result.Laws = search.AttachEvidenceScores(ftLaws)
	case ModeVector:
		result.Standards = search.AttachEvidenceScores(vecStandards)
		result.Laws = search.AttachEvidenceScores(vecLaws)
	default:
		result.Standards = search.AttachEvidenceScores(search.Merge(ftStandards, vecStandards, limit, s.alpha))
		result.Laws = search.AttachEvidenceScores(search.Merge(ftLaws, vecLaws, limit, s.alpha))
	}
	if result.Standards == nil {
		result.Standards = []domain.EvidenceItem{}
	}
	if result.Laws == nil {
		result.Laws = []domain.EvidenceItem{}
	}

	result.Trust = s.analyzer.BuildTrustLayer(sanitized, result.Standards, result.Laws)
	return result, nil
}

// embedQuery returns the query embedding or a degrade reason.
func (s *KnowledgeService) embedQuery(ctx context.Context, query string) ([]float32, string, error) {
	if s.vector == nil || !s.vector.Available() {
		return nil, "vector store not configured; degraded to fulltext", fmt.Errorf("vector store not configured")
	}
	if s.embedder == nil {
		return nil, "embedding provider not configured; degraded to fulltext", fmt.Errorf("embedding provider not configured")
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		if s.log != nil {
			s.log.Warn("query embedding failed; degrading to fulltext", "error", err)
		}
		return nil, "query embedding failed; degraded to fulltext", fmt.Errorf("embed query: %w", err)
	}
	return vecs[0], "", nil
}

// Answer runs a search and asks the generator for a grounded answer.
// Generated text that begins with a known failure marker is treated as
// a failure and never cached.
func (s *KnowledgeService) Answer(ctx context.Context, query string, limit int, mode SearchMode) (AnswerResult, error) {
	if s.gen == nil {
		return AnswerResult{}, ErrGenerationDisabled
	}
	limit = clampLimit(limit, MaxAnswerLimit)
	key := cacheKey(string(mode), limit, query)
	if s.caches.Answer != nil {
		if hit, ok := s.caches.Answer.Get(key); ok {
			hit.CacheMeta = CacheMeta{Hit: true}
			if age, ok := s.caches.Answer.Age(key); ok {
				hit.CacheMeta.AgeSeconds = age.Seconds()
			}
			return hit, nil
		}
	}

	sr, err := s.Search(ctx, query, limit, mode)
	if err != nil {
		return AnswerResult{}, err
	}

	system, user := answerPrompt(query, sr.Standards, sr.Laws)
	text, err := s.gen.GenerateText(ctx, system, user)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("answer generation: %w", err)
	}
	if marker, bad := failureMarker(text); bad {
		return AnswerResult{}, fmt.Errorf("answer generation failed: %s", marker)
	}

	out := AnswerResult{SearchResult: sr, Answer: text}
	if s.caches.Answer != nil {
		s.caches.Answer.Set(key, out)
	}
	return out, nil
}

// Card runs a search and asks the generator for a structured execution
// card.
func (s *KnowledgeService) Card(ctx context.Context, query string, limit int, mode SearchMode) (CardResult, error) {
	if s.gen == nil {
		return CardResult{}, ErrGenerationDisabled
	}
	limit = clampLimit(limit, MaxAnswerLimit)
	key := cacheKey(string(mode), limit, query)
	if s.caches.Card != nil {
		if hit, ok := s.caches.Card.Get(key); ok {
			hit.CacheMeta = CacheMeta{Hit: true}
			if age, ok := s.caches.Card.Age(key); ok {
				hit.CacheMeta.AgeSeconds = age.Seconds()
			}
			return hit, nil
		}
	}

	sr, err := s.Search(ctx, query, limit, mode)
	if err != nil {
		return CardResult{}, err
	}

	system, user := cardPrompt(query, sr.Standards, sr.Laws)
	raw, err := s.gen.GenerateJSON(ctx, system, user, "execution_card", cardSchema())
	if err != nil {
		return CardResult{}, fmt.Errorf("card generation: %w", err)
	}
	card, err := shapeCard(raw)
	if err != nil {
		return CardResult{}, fmt.Errorf("card generation: %w", err)
	}

	out := CardResult{SearchResult: sr, Card: card}
	if s.caches.Card != nil {
		s.caches.Card.Set(key, out)
	}
	return out, nil
}

// EvidencePack retrieves evidence for each item and renders one
// markdown bundle with a deduplicated evidence index.
func (s *KnowledgeService) EvidencePack(ctx context.Context, items []BatchItem, maxPerKind, excerptLimit int) (EvidencePackResult, error) {
	if len(items) > MaxPackItems {
		items = items[:MaxPackItems]
	}
	maxPerKind = clampLimit(maxPerKind, MaxEvidencePerKind)
	if excerptLimit <= 0 || excerptLimit > MaxPackExcerptChars {
		excerptLimit = MaxPackExcerptChars
	}

	key := packCacheKey(items, maxPerKind, excerptLimit)
	if s.caches.Evidence != nil {
		if hit, ok := s.caches.Evidence.Get(key); ok {
			return hit, nil
		}
	}

	var md strings.Builder
	md.WriteString("# Evidence Pack\n")
	indexByKey := make(map[string]domain.EvidenceItem)
	var indexOrder []string
	outItems := make([]BatchItem, 0, len(items))

	for _, item := range items {
		sr, err := s.Search(ctx, item.Query, maxPerKind, ModeHybrid)
		if err != nil {
			// A per-item retrieval failure passes the item through
			// unenriched.
			outItems = append(outItems, item)
			continue
		}
		evidence := append(domain.CloneEvidenceItems(sr.Standards), sr.Laws...)
		for i := range evidence {
			evidence[i].Excerpt = truncateRunes(evidence[i].Excerpt, excerptLimit)
			if _, seen := indexByKey[evidence[i].Key]; !seen {
				indexByKey[evidence[i].Key] = evidence[i]
				indexOrder = append(indexOrder, evidence[i].Key)
			}
		}
		enriched := item
		enriched.Evidence = evidence
		tr := sr.Trust
		enriched.Trust = &tr
		outItems = append(outItems, enriched)

		writePackSection(&md, enriched)
	}

	md.WriteString("\n## Evidence Index\n")
	index := make([]domain.EvidenceItem, 0, len(indexOrder))
	for i, k := range indexOrder {
		ev := indexByKey[k]
		index = append(index, ev)
		fmt.Fprintf(&md, "%d. [%s] %s\n", i+1, ev.Kind, evidenceLabel(ev))
	}

	out := EvidencePackResult{
		Markdown:      md.String(),
		Items:         outItems,
		EvidenceIndex: index,
	}
	if s.caches.Evidence != nil {
		s.caches.Evidence.Set(key, out)
	}
	return out, nil
}

func (s *KnowledgeService) searchCacheMeta(key string) CacheMeta {
	meta := CacheMeta{Hit: true}
	if age, ok := s.caches.Search.Age(key); ok {
		meta.AgeSeconds = age.Seconds()
	}
	return meta
}

func writePackSection(md *strings.Builder, item BatchItem) {
	title := item.Title
	if title == "" {
		title = item.Query
	}
	fmt.Fprintf(md, "\n## %s\n", title)
	if item.Trust != nil {
		fmt.Fprintf(md, "confidence: %.2f, conflicts: %d\n", item.Trust.OverallConfidence, len(item.Trust.Conflicts))
	}
	for _, ev := range item.Evidence {
		fmt.Fprintf(md, "- [%s] %s — %s\n", ev.Kind, evidenceLabel(ev), ev.Excerpt)
	}
}

func evidenceLabel(ev domain.EvidenceItem) string {
	if ev.Kind == domain.KindLaw {
		parts := []string{ev.LawName}
		if ev.Article != "" {
			parts = append(parts, ev.Article)
		}
		if ev.Paragraph != "" {
			parts = append(parts, ev.Paragraph)
		}
		label := strings.TrimSpace(strings.Join(parts, " "))
		if label != "" {
			return label
		}
		return ev.Key
	}
	if ev.Title != "" {
		return ev.Title
	}
	if ev.Path != "" {
		return ev.Path
	}
	return ev.Key
}

// failureMarker reports generated text that is an upstream error
// message rather than an answer.
var failureMarkers = []string{
	"openai_api_key is not set",
	"temporarily unavailable",
}

func failureMarker(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range failureMarkers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	return "", false
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 10
	}
	if limit > max {
		return max
	}
	return limit
}

func cacheKey(mode string, limit int, query string) string {
	return fmt.Sprintf("%s|%d|%s", mode, limit, strings.TrimSpace(query))
}

func packCacheKey(items []BatchItem, maxPerKind, excerptLimit int) string {
	h := sha256.New()
	for _, it := range items {
		fmt.Fprintf(h, "%s|%s\n", it.ID, it.Query)
	}
	fmt.Fprintf(h, "%d|%d", maxPerKind, excerptLimit)
	return hex.EncodeToString(h.Sum(nil))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
