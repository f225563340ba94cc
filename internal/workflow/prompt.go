package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/plancheck/internal/domain"
)

// NoSourcesNotice opens every answer produced while regulations were
// unavailable.
const NoSourcesNotice = "No regulatory sources could be retrieved; this answer is based on geometry-only analysis."

const (
	fullExcerptRunes       = 1500
	simplifiedExcerptRunes = 400
	citationExcerptRunes   = 300
)

const draftFormat = `Respond with a single JSON object and nothing else:
{"answer": string, "is_compliant": boolean, "citations": [{"regulation_index": number, "quote": string, "relevance": string}], "note": string}`

const reasonInstructions = `Based on the regulations and geometric measurements above, analyze compliance.

Rules:
1. Set is_compliant to true only if every applicable regulation is satisfied, false otherwise. Always set it, even when the question is not strictly yes or no.
2. Support each finding with at least one citation. regulation_index is the number of a regulation listed above; quote must be copied word for word from it.
3. Use the exact areas, distances and percentages from the geometry section.
4. Keep the answer consistent with is_compliant.
5. If data is missing, say what additional information is needed in the answer.
6. note is one short sentence describing how you reached the verdict.`

// reasonPrompt builds the full synthesis prompt, including critique feedback
// from the previous pass.
func reasonPrompt(s *State) string {
	var b strings.Builder
	b.WriteString("You are a regulatory compliance assistant analyzing architectural drawings.\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n\n", s.Question)

	b.WriteString("REGULATIONS\n")
	writeRegulations(&b, s, fullExcerptRunes, true)

	b.WriteString("\nGEOMETRY\n")
	writeGeometry(&b, s)

	if len(s.Feedback) > 0 {
		b.WriteString("\nREVIEW OF YOUR PREVIOUS DRAFT\n")
		for _, f := range s.Feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		if s.Draft != nil {
			fmt.Fprintf(&b, "Previous answer: %s\n", s.Draft.Answer)
		}
		b.WriteString("Fix every point above in the new draft.\n")
	}

	b.WriteString("\nINSTRUCTIONS\n")
	b.WriteString(reasonInstructions)
	b.WriteString("\n\n")
	b.WriteString(draftFormat)
	return b.String()
}

// simplifiedPrompt is used for the single retry after a failed synthesis.
func simplifiedPrompt(s *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", s.Question)
	b.WriteString("Regulations:\n")
	writeRegulations(&b, s, simplifiedExcerptRunes, false)
	b.WriteString("\nDrawing measurements:\n")
	writeGeometry(&b, s)
	b.WriteString("\nDecide whether the drawing complies. Cite regulations by number.\n")
	b.WriteString(draftFormat)
	return b.String()
}

func writeRegulations(b *strings.Builder, s *State, excerpt int, detailed bool) {
	switch {
	case s.Degraded():
		b.WriteString("Regulation retrieval failed; no regulatory sources are available. Answer from the geometry alone and say so.\n")
		return
	case len(s.Regulations) == 0:
		b.WriteString("No regulations were retrieved for this question.\n")
		return
	}
	for i, r := range s.Regulations {
		if detailed {
			fmt.Fprintf(b, "[%d] Source: %s | Reference: %s | Relevance score: %.3f\n",
				i+1, r.Parent.SourceDocument, r.Parent.Reference(), r.Score)
		} else {
			fmt.Fprintf(b, "[%d] %s\n", i+1, r.Parent.Reference())
		}
		fmt.Fprintf(b, "%s\n", truncateRunes(r.Parent.Text, excerpt))
	}
}

func writeGeometry(b *strings.Builder, s *State) {
	if s.Geometry == nil {
		b.WriteString("No drawing data is available for analysis.\n")
		return
	}
	b.WriteString(s.Geometry.Text)
	b.WriteString("\n")
}

const critiquePromptTemplate = `You review draft answers produced by a regulatory compliance assistant.

QUESTION: %s

DRAFT ANSWER: %s
VERDICT: %s
CITATIONS:
%s
Reply with APPROVED if the draft cites the regulations it relies on, states a clear verdict and the verdict matches the answer text. Otherwise reply with one line describing the most important problem.`

func critiquePrompt(s *State) string {
	var cites strings.Builder
	if len(s.Draft.Citations) == 0 {
		cites.WriteString("(none)\n")
	}
	for _, c := range s.Draft.Citations {
		fmt.Fprintf(&cites, "- %s: %s\n", c.Reference, truncateRunes(c.Content, 200))
	}
	return fmt.Sprintf(critiquePromptTemplate, s.Question, s.Draft.Answer, verdictWord(s.Draft.IsCompliant), cites.String())
}

type rawDraft struct {
	Answer      string        `json:"answer"`
	IsCompliant *bool         `json:"is_compliant"`
	Citations   []rawCitation `json:"citations"`
	Note        string        `json:"note"`
}

type rawCitation struct {
	RegulationIndex int    `json:"regulation_index"`
	Quote           string `json:"quote"`
	Relevance       string `json:"relevance"`
}

// parseDraft decodes a model completion into a Draft. Citations are bound
// to the retrieved parents: unknown indexes are dropped, and a quote that
// does not occur verbatim in its parent is replaced by a parent excerpt.
func parseDraft(completion string, s *State) (*Draft, int, error) {
	body, err := extractJSON(completion)
	if err != nil {
		return nil, 0, err
	}

	var raw rawDraft
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, 0, fmt.Errorf("decode draft: %w", err)
	}
	if strings.TrimSpace(raw.Answer) == "" {
		return nil, 0, fmt.Errorf("draft has no answer")
	}
	if raw.IsCompliant == nil {
		return nil, 0, fmt.Errorf("draft has no is_compliant verdict")
	}

	d := &Draft{
		Answer:      strings.TrimSpace(raw.Answer),
		IsCompliant: *raw.IsCompliant,
		Citations:   []domain.Citation{},
		Note:        strings.TrimSpace(raw.Note),
	}

	dropped := 0
	used := make(map[int]struct{}, len(raw.Citations))
	for _, rc := range raw.Citations {
		i := rc.RegulationIndex - 1
		if s.Degraded() || i < 0 || i >= len(s.Regulations) {
			dropped++
			continue
		}
		if _, ok := used[i]; ok {
			continue
		}
		used[i] = struct{}{}

		parent := s.Regulations[i].Parent
		content := strings.TrimSpace(rc.Quote)
		if content == "" || !strings.Contains(parent.Text, content) {
			content = truncateRunes(strings.TrimSpace(parent.Text), citationExcerptRunes)
		}
		relevance := strings.TrimSpace(rc.Relevance)
		if relevance == "" {
			relevance = "Retrieved for the question"
		}
		d.Citations = append(d.Citations, domain.CitationFromChunk(parent, content, relevance))
	}

	if s.Degraded() && !strings.Contains(strings.ToLower(d.Answer), "no regulatory sources could be retrieved") {
		d.Answer = NoSourcesNotice + " " + d.Answer
	}
	return d, dropped, nil
}

// extractJSON returns the outermost JSON object in a completion, tolerating
// code fences and surrounding prose.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("completion contains no JSON object")
	}
	return s[start : end+1], nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func verdictWord(compliant bool) string {
	if compliant {
		return "compliant"
	}
	return "non-compliant"
}
