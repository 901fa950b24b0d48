package search

import (
	"sort"

	"github.com/structa/knowledge-backend/internal/domain"
)

// DefaultAlpha weights the vector ranking slightly above full-text in
// hybrid merges.
const DefaultAlpha = 0.6

// Merge fuses a full-text and a vector result set into one ranked list.
// Each source's raw scores are normalized against that source's own
// maximum so the two rankings become comparable; an item present in both
// sources gets the weighted sum of its normalized scores and is tagged
// hybrid. The output is sorted descending and truncated to limit.
func Merge(fulltext, vector []domain.EvidenceItem, limit int, alpha float64) []domain.EvidenceItem {
	if alpha < 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if limit <= 0 {
		return nil
	}

	ftMax := maxRawScore(fulltext)
	vecMax := maxRawScore(vector)

	type merged struct {
		item  domain.EvidenceItem
		score float64
		order int
	}
	byKey := make(map[string]*merged, len(fulltext)+len(vector))
	ordered := make([]*merged, 0, len(fulltext)+len(vector))

	for _, it := range fulltext {
		norm := it.RawScore / ftMax
		m := &merged{item: it, score: (1 - alpha) * norm, order: len(ordered)}
		m.item.Retrieval = domain.RetrievalFulltext
		byKey[it.Key] = m
		ordered = append(ordered, m)
	}
	for _, it := range vector {
		norm := it.RawScore / vecMax
		if existing, ok := byKey[it.Key]; ok {
			existing.score += alpha * norm
			existing.item.Retrieval = domain.RetrievalHybrid
			continue
		}
		m := &merged{item: it, score: alpha * norm, order: len(ordered)}
		m.item.Retrieval = domain.RetrievalVector
		byKey[it.Key] = m
		ordered = append(ordered, m)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].order < ordered[j].order
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	out := make([]domain.EvidenceItem, 0, len(ordered))
	for _, m := range ordered {
		m.item.RawScore = m.score
		out = append(out, m.item)
	}
	return out
}

func maxRawScore(items []domain.EvidenceItem) float64 {
	max := 0.0
	for _, it := range items {
		if it.RawScore > max {
			max = it.RawScore
		}
	}
	if max <= 0 {
		return 1.0
	}
	return max
}
