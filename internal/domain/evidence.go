package domain

// Kind discriminates the two evidence variants held in the knowledge base.
type Kind string

const (
	KindStandard Kind = "standard"
	KindLaw      Kind = "law"
)

// Retrieval records which search path produced an evidence item.
type Retrieval string

const (
	RetrievalFulltext Retrieval = "fulltext"
	RetrievalVector   Retrieval = "vector"
	RetrievalHybrid   Retrieval = "hybrid"
)

// EvidenceItem is one retrieved excerpt from the knowledge base. Fields
// after Excerpt are kind-specific: Title/Path for standards, LawName and
// the article coordinates for legal provisions.
type EvidenceItem struct {
	Key       string    `json:"key"`
	Kind      Kind      `json:"kind"`
	Excerpt   string    `json:"excerpt"`
	Retrieval Retrieval `json:"retrieval"`

	Title string `json:"title,omitempty"`
	Path  string `json:"path,omitempty"`

	LawName   string `json:"law_name,omitempty"`
	Article   string `json:"article,omitempty"`
	Paragraph string `json:"paragraph,omitempty"`
	Item      string `json:"item,omitempty"`

	RawScore      float64 `json:"raw_score"`
	EvidenceScore float64 `json:"evidence_score"`
}

// SourceLabel returns the identifier used for source-diversity counting:
// the document path for standards, the law name for provisions.
func (e EvidenceItem) SourceLabel() string {
	switch e.Kind {
	case KindLaw:
		if e.LawName != "" {
			return e.LawName
		}
	default:
		if e.Path != "" {
			return e.Path
		}
		if e.Title != "" {
			return e.Title
		}
	}
	return e.Key
}

func CloneEvidenceItems(items []EvidenceItem) []EvidenceItem {
	if items == nil {
		return nil
	}
	out := make([]EvidenceItem, len(items))
	copy(out, items)
	return out
}
