package workflow

import "strings"

// Issues reported by the deterministic review.
const (
	IssueMissingCitation    = "missing citation"
	IssueEmptyAnswer        = "empty answer"
	IssueVerdictContradicts = "verdict contradicts answer"
)

// Phrases are matched against the lower-cased answer. Negative phrases are
// removed before positive ones are looked up, so "not compliant" never
// counts as "compliant".
var negativePhrases = []string{
	"does not comply",
	"do not comply",
	"doesn't comply",
	"non-compliant",
	"noncompliant",
	"not compliant",
	"fails to comply",
	"fails to meet",
	"does not meet",
	"does not satisfy",
	"is not permitted",
	"would not be permitted",
	"violates",
	"in breach of",
	"breaches",
}

var positivePhrases = []string{
	"complies",
	"is compliant",
	"are compliant",
	"compliant with",
	"satisfies",
	"meets the",
	"is permitted",
	"would be permitted",
	"within the limit",
}

type tone int

const (
	toneNeutral tone = iota
	tonePositive
	toneNegative
)

func answerTone(answer string) tone {
	text := strings.ToLower(answer)
	negative := false
	for _, p := range negativePhrases {
		if strings.Contains(text, p) {
			negative = true
			text = strings.ReplaceAll(text, p, " ")
		}
	}
	positive := false
	for _, p := range positivePhrases {
		if strings.Contains(text, p) {
			positive = true
			break
		}
	}

	switch {
	case negative && !positive:
		return toneNegative
	case positive && !negative:
		return tonePositive
	default:
		return toneNeutral
	}
}

// reviewDraft applies the deterministic checks. An empty result means the
// draft passes.
func reviewDraft(s *State) []string {
	d := s.Draft
	var issues []string

	if strings.TrimSpace(d.Answer) == "" {
		issues = append(issues, IssueEmptyAnswer)
	}
	if len(s.Regulations) > 0 && !s.Degraded() && len(d.Citations) == 0 {
		issues = append(issues, IssueMissingCitation)
	}

	switch answerTone(d.Answer) {
	case toneNegative:
		if d.IsCompliant {
			issues = append(issues, IssueVerdictContradicts+": marked compliant but the answer reads non-compliant")
		}
	case tonePositive:
		if !d.IsCompliant {
			issues = append(issues, IssueVerdictContradicts+": marked non-compliant but the answer reads compliant")
		}
	}
	return issues
}

// parseReview interprets a model review. Anything other than an approval
// is returned as a single issue line.
func parseReview(completion string) (approved bool, issue string) {
	text := strings.TrimSpace(completion)
	if strings.HasPrefix(strings.ToUpper(text), "APPROVED") {
		return true, ""
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		text = "reviewer gave no reason"
	}
	return false, truncateRunes(text, 200)
}
