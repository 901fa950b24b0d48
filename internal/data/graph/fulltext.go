package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/platform/logger"
	"github.com/structa/knowledge-backend/internal/platform/neo4jdb"
)

const (
	standardIndex = "standard_text_idx"
	lawIndex      = "law_text_idx"
	excerptLimit  = 600
)

// Searcher runs Lucene full-text queries against the knowledge graph.
// Queries must already be sanitized; raw user text would be parsed as
// query syntax.
type Searcher struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewSearcher(client *neo4jdb.Client, log *logger.Logger) *Searcher {
	if log != nil {
		log = log.With("repo", "GraphFulltext")
	}
	return &Searcher{client: client, log: log}
}

// Search returns ranked evidence rows for one kind. The raw score is
// the Lucene relevance score.
func (s *Searcher) Search(ctx context.Context, query string, kind domain.Kind, limit int) ([]domain.EvidenceItem, error) {
	if s == nil || s.client == nil || s.client.Driver == nil {
		return nil, fmt.Errorf("graph fulltext: store unavailable")
	}
	if query == "" || limit <= 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		switch kind {
		case domain.KindLaw:
			return s.queryLaws(ctx, tx, query, limit)
		default:
			return s.queryStandards(ctx, tx, query, limit)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("graph fulltext: %s search: %w", kind, err)
	}
	return rows.([]domain.EvidenceItem), nil
}

func (s *Searcher) queryStandards(ctx context.Context, tx neo4j.ManagedTransaction, query string, limit int) ([]domain.EvidenceItem, error) {
	res, err := tx.Run(ctx, `
CALL db.index.fulltext.queryNodes($index, $query)
YIELD node, score
RETURN node.key AS key,
       node.title AS title,
       node.path AS path,
       node.text AS text,
       score
ORDER BY score DESC
LIMIT $limit
`, map[string]any{"index": standardIndex, "query": query, "limit": limit})
	if err != nil {
		return nil, err
	}

	var out []domain.EvidenceItem
	for res.Next(ctx) {
		rec := res.Record()
		out = append(out, domain.EvidenceItem{
			Key:       asString(rec, "key"),
			Kind:      domain.KindStandard,
			Title:     asString(rec, "title"),
			Path:      asString(rec, "path"),
			Excerpt:   truncateExcerpt(asString(rec, "text")),
			Retrieval: domain.RetrievalFulltext,
			RawScore:  asFloat(rec, "score"),
		})
	}
	return out, res.Err()
}

func (s *Searcher) queryLaws(ctx context.Context, tx neo4j.ManagedTransaction, query string, limit int) ([]domain.EvidenceItem, error) {
	res, err := tx.Run(ctx, `
CALL db.index.fulltext.queryNodes($index, $query)
YIELD node, score
RETURN node.key AS key,
       node.law_name AS law_name,
       node.article AS article,
       node.paragraph AS paragraph,
       node.item AS item,
       node.text AS text,
       score
ORDER BY score DESC
LIMIT $limit
`, map[string]any{"index": lawIndex, "query": query, "limit": limit})
	if err != nil {
		return nil, err
	}

	var out []domain.EvidenceItem
	for res.Next(ctx) {
		rec := res.Record()
		out = append(out, domain.EvidenceItem{
			Key:       asString(rec, "key"),
			Kind:      domain.KindLaw,
			LawName:   asString(rec, "law_name"),
			Article:   asString(rec, "article"),
			Paragraph: asString(rec, "paragraph"),
			Item:      asString(rec, "item"),
			Excerpt:   truncateExcerpt(asString(rec, "text")),
			Retrieval: domain.RetrievalFulltext,
			RawScore:  asFloat(rec, "score"),
		})
	}
	return out, res.Err()
}

func asString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asFloat(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	default:
		return 0
	}
}

func truncateExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit])
}
