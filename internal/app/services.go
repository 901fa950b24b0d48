package app

import (
	"fmt"

	"github.com/structa/knowledge-backend/internal/cache"
	"github.com/structa/knowledge-backend/internal/data/graph"
	"github.com/structa/knowledge-backend/internal/data/vector"
	"github.com/structa/knowledge-backend/internal/jobs"
	"github.com/structa/knowledge-backend/internal/platform/logger"
	"github.com/structa/knowledge-backend/internal/services"
	"github.com/structa/knowledge-backend/internal/trust"
)

type Services struct {
	Knowledge  *services.KnowledgeService
	Enrichment *services.EnrichmentService
	Duration   *services.DurationService
	Jobs       *jobs.Manager
}

func wireServices(log *logger.Logger, cfg Config, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	lex, err := trust.LoadLexicon(cfg.TrustLexiconPath)
	if err != nil {
		return Services{}, fmt.Errorf("load trust lexicon: %w", err)
	}
	analyzer := trust.NewAnalyzer(lex, log)

	fulltext := graph.NewSearcher(clients.Neo4j, log)
	vec := vector.NewSearcher(clients.VectorStore, log)

	caches := services.Caches{
		Search:   cache.New(cfg.Cache.SearchTTL, cfg.Cache.MaxEntries, services.SearchResult.Clone),
		Answer:   cache.New(cfg.Cache.AnswerTTL, cfg.Cache.MaxEntries, services.AnswerResult.Clone),
		Card:     cache.New(cfg.Cache.CardTTL, cfg.Cache.MaxEntries, services.CardResult.Clone),
		Evidence: cache.New(cfg.Cache.EvidenceTTL, cfg.Cache.MaxEntries, services.EvidencePackResult.Clone),
		Duration: cache.New(cfg.Cache.DurationTTL, cfg.Cache.MaxEntries, services.DurationResult.Clone),
	}

	// The OpenAI client serves both roles; a nil client disables each.
	var embedder services.Embedder
	var gen services.Generator
	if clients.Openai != nil {
		embedder = clients.Openai
		gen = clients.Openai
	}

	knowledge := services.NewKnowledgeService(log, fulltext, vec, embedder, gen, analyzer, caches)
	knowledge.SetAlpha(cfg.HybridAlpha)

	manager := jobs.NewManager(cfg.Jobs, log)
	enrichment := services.NewEnrichmentService(log, knowledge, manager)
	duration := services.NewDurationService(log, knowledge)

	return Services{
		Knowledge:  knowledge,
		Enrichment: enrichment,
		Duration:   duration,
		Jobs:       manager,
	}, nil
}
