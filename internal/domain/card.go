package domain

// Card is a generated execution checklist distilled from retrieved
// evidence.
type Card struct {
	OneLiner          string   `json:"one_liner"`
	Checklist         []string `json:"checklist"`
	Risks             []string `json:"risks"`
	RequiredDocuments []string `json:"required_documents"`
}

func (c Card) Clone() Card {
	out := c
	out.Checklist = append([]string(nil), c.Checklist...)
	out.Risks = append([]string(nil), c.Risks...)
	out.RequiredDocuments = append([]string(nil), c.RequiredDocuments...)
	return out
}
