package vector

import (
	"context"
	"fmt"

	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/platform/logger"
	"github.com/structa/knowledge-backend/internal/platform/qdrant"
)

// Searcher maps similarity matches from the vector store into evidence
// items. Points carry the source fields in their payload so no second
// lookup is needed.
type Searcher struct {
	store qdrant.VectorStore
	log   *logger.Logger
}

func NewSearcher(store qdrant.VectorStore, log *logger.Logger) *Searcher {
	if log != nil {
		log = log.With("repo", "VectorSearch")
	}
	return &Searcher{store: store, log: log}
}

func (s *Searcher) Available() bool {
	return s != nil && s.store != nil
}

// Search runs a similarity query filtered to one kind. The raw score is
// the store's similarity score (higher is better).
func (s *Searcher) Search(ctx context.Context, embedding []float32, kind domain.Kind, limit int) ([]domain.EvidenceItem, error) {
	if !s.Available() {
		return nil, fmt.Errorf("vector search: store unavailable")
	}
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}
	matches, err := s.store.Query(ctx, embedding, map[string]string{"kind": string(kind)}, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %s query: %w", kind, err)
	}

	out := make([]domain.EvidenceItem, 0, len(matches))
	for _, m := range matches {
		item := domain.EvidenceItem{
			Key:       payloadString(m.Payload, "key"),
			Kind:      kind,
			Excerpt:   payloadString(m.Payload, "text"),
			Retrieval: domain.RetrievalVector,
			RawScore:  m.Score,
		}
		if item.Key == "" {
			item.Key = m.ID
		}
		switch kind {
		case domain.KindLaw:
			item.LawName = payloadString(m.Payload, "law_name")
			item.Article = payloadString(m.Payload, "article")
			item.Paragraph = payloadString(m.Payload, "paragraph")
			item.Item = payloadString(m.Payload, "item")
		default:
			item.Title = payloadString(m.Payload, "title")
			item.Path = payloadString(m.Payload, "path")
		}
		out = append(out, item)
	}
	return out, nil
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}
