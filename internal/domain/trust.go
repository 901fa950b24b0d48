package domain

// ConflictType distinguishes the two contradiction classes the analyzer
// can detect.
type ConflictType string

const (
	ConflictDirective ConflictType = "directive_conflict"
	ConflictThreshold ConflictType = "threshold_conflict"
)

// Conflict is one detected contradiction between two or more evidence
// items.
type Conflict struct {
	Type         ConflictType `json:"type"`
	Reason       string       `json:"reason"`
	EvidenceRefs []string     `json:"evidence_refs"`
}

// TrustRecord is the aggregate confidence assessment over one query's
// evidence set. It is recomputed fresh on every query and never mutated
// after construction.
type TrustRecord struct {
	EvidenceScore          float64    `json:"evidence_score"`
	SourceConsistencyScore float64    `json:"source_consistency_score"`
	SourceCoverage         float64    `json:"source_coverage"`
	OverallConfidence      float64    `json:"overall_confidence"`
	Conflicts              []Conflict `json:"conflicts"`
}

func (t TrustRecord) Clone() TrustRecord {
	out := t
	if t.Conflicts != nil {
		out.Conflicts = make([]Conflict, len(t.Conflicts))
		for i, c := range t.Conflicts {
			cc := c
			cc.EvidenceRefs = append([]string(nil), c.EvidenceRefs...)
			out.Conflicts[i] = cc
		}
	}
	return out
}
