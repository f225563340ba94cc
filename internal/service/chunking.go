package service

import (
	"fmt"
	"unicode"

	"github.com/cloo-solutions/plancheck/internal/domain"
)

// ChunkConfig controls hierarchical chunking of regulation text. Sizes are
// targets in runes; the final chunk of a block may be shorter.
type ChunkConfig struct {
	ParentChars  int
	ChildChars   int
	ChildOverlap int
	// BreakWindow is how far back from a target boundary the splitter looks
	// for whitespace before falling back to a hard cut.
	BreakWindow int
}

// DefaultChunkConfig provides the default parent/child sizes.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ParentChars:  2000,
		ChildChars:   400,
		ChildOverlap: 100,
		BreakWindow:  80,
	}
}

// Validate rejects configurations that could not make progress or would
// break the fixed-overlap guarantee between adjacent children.
func (c ChunkConfig) Validate() error {
	switch {
	case c.ParentChars <= 0 || c.ChildChars <= 0:
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidChunkConfig.Message,
			fmt.Errorf("sizes must be positive"))
	case c.ChildOverlap < 0 || c.ChildOverlap >= c.ChildChars:
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidChunkConfig.Message,
			fmt.Errorf("overlap %d must be in [0, %d)", c.ChildOverlap, c.ChildChars))
	case c.BreakWindow < 0 || c.BreakWindow >= c.ChildChars-c.ChildOverlap:
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidChunkConfig.Message,
			fmt.Errorf("break window %d must be in [0, %d)", c.BreakWindow, c.ChildChars-c.ChildOverlap))
	}
	return nil
}

// Span is a half-open rune range [Start, End) of a text.
type Span struct {
	Start int
	End   int
}

// splitSpans cuts text into spans of about size runes where each span after
// the first starts exactly overlap runes before the previous one ends. Cuts
// prefer the position right after a whitespace rune within window runes of
// the target; otherwise the cut is hard. Spans never split a rune because
// offsets are rune indexes.
func splitSpans(runes []rune, size, overlap, window int) []Span {
	n := len(runes)
	if n == 0 || size <= 0 {
		return nil
	}
	if n <= size {
		return []Span{{Start: 0, End: n}}
	}

	spans := make([]Span, 0, n/size+2)
	start := 0
	for {
		end := start + size
		if end >= n {
			spans = append(spans, Span{Start: start, End: n})
			return spans
		}

		minCut := end - window
		if minCut <= start {
			minCut = start + 1
		}
		for i := end; i >= minCut; i-- {
			if unicode.IsSpace(runes[i-1]) {
				end = i
				break
			}
		}
		spans = append(spans, Span{Start: start, End: end})

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
}

// SplitParents cuts an element into consecutive, non-overlapping parent blocks.
func SplitParents(text string, cfg ChunkConfig) []string {
	runes := []rune(text)
	spans := splitSpans(runes, cfg.ParentChars, 0, cfg.BreakWindow)
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, string(runes[s.Start:s.End]))
	}
	return out
}

// SplitChildren returns the child spans of a parent text. The result is a
// pure function of text and configuration.
func SplitChildren(text string, cfg ChunkConfig) []Span {
	return splitSpans([]rune(text), cfg.ChildChars, cfg.ChildOverlap, cfg.BreakWindow)
}

// JoinChildren rebuilds a parent from its child texts by dropping the
// overlap each child shares with its predecessor.
func JoinChildren(children []string, overlap int) string {
	var out []rune
	for i, c := range children {
		r := []rune(c)
		if i > 0 {
			if overlap > len(r) {
				overlap = len(r)
			}
			r = r[overlap:]
		}
		out = append(out, r...)
	}
	return string(out)
}
