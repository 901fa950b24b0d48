package search

import (
	"math"

	"github.com/structa/knowledge-backend/internal/domain"
)

// AttachEvidenceScores normalizes a result set's raw scores into [0,1]
// evidence scores relative to the set's maximum, rounded to 4 decimals.
// Pure and idempotent: re-scoring an already scored list is a no-op.
func AttachEvidenceScores(items []domain.EvidenceItem) []domain.EvidenceItem {
	if len(items) == 0 {
		return items
	}
	max := 0.0
	for _, it := range items {
		if it.RawScore > max {
			max = it.RawScore
		}
	}
	if max <= 0 {
		max = 1.0
	}
	out := make([]domain.EvidenceItem, len(items))
	for i, it := range items {
		score := it.RawScore / max
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		it.EvidenceScore = math.Round(score*10000) / 10000
		out[i] = it
	}
	return out
}
