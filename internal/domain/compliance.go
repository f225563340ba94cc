package domain

// Citation quotes one parent regulation chunk in support of a verdict.
type Citation struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
	Content   string `json:"content"`
	Relevance string `json:"relevance"`
}

// ComplianceResult is the final answer of a compliance run. IsCompliant is
// always set, even when the answer text carries the nuance.
type ComplianceResult struct {
	Answer         string     `json:"answer"`
	IsCompliant    bool       `json:"is_compliant"`
	Citations      []Citation `json:"citations"`
	ReasoningSteps []string   `json:"reasoning_steps"`
}

// CitationFromChunk builds a citation for a parent chunk.
func CitationFromChunk(c *RegulatoryChunk, content, relevance string) Citation {
	return Citation{
		Source:    c.SourceDocument,
		Reference: c.Reference(),
		Content:   content,
		Relevance: relevance,
	}
}
