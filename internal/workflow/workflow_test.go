package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/geometry"
	"github.com/cloo-solutions/plancheck/internal/service"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, question string, k int) (*service.RetrievalResult, error) {
	args := m.Called(ctx, question, k)
	if r := args.Get(0); r != nil {
		return r.(*service.RetrievalResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// scriptedGenerator records prompts and answers them with reply.
type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(call int, prompt string) (string, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	call := len(g.prompts)
	g.mu.Unlock()
	return g.reply(call, prompt)
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// replies answers call n with rs[n-1], repeating the last reply.
func replies(rs ...string) *scriptedGenerator {
	return &scriptedGenerator{reply: func(call int, _ string) (string, error) {
		if call > len(rs) {
			call = len(rs)
		}
		return rs[call-1], nil
	}}
}

const (
	curtilageText = "Class A.1(b): development is not permitted if the total area of ground covered by buildings within the curtilage would exceed 50% of the total area of the curtilage."
	setbackText   = "Class A.1(e): any part of the enlarged dwellinghouse must be at least 2000 units from the boundary of the curtilage."
)

func regulation(id, section, text string, score float64) service.RetrievedRegulation {
	p := &domain.RegulatoryChunk{
		ID:             id,
		SourceDocument: "GPDO 2015",
		Section:        section,
		PageNumber:     12,
		ElementType:    domain.ElementTypeText,
		Text:           text,
	}
	return service.RetrievedRegulation{Parent: p, Matched: p, Score: score}
}

func retrieved(regs ...service.RetrievedRegulation) *service.RetrievalResult {
	return &service.RetrievalResult{Regulations: regs, RawHits: len(regs)}
}

func rect(layer string, x0, y0, x1, y1 float64) domain.Polyline {
	return domain.Polyline{
		Layer:  layer,
		Points: []domain.Point2D{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}},
		Closed: true,
	}
}

// plotWithWalls is a 250,000,000 unit plot with a 75,000,000 unit building
// 2,500 units from the nearest plot edge.
func plotWithWalls() []domain.DrawingEntity {
	return []domain.DrawingEntity{
		rect("Plot Boundary", 0, 0, 25000, 10000),
		rect("Walls", 2500, 2500, 17500, 7500),
	}
}

func newTestWorkflow(r Retriever, g Generator, cfg Config) *Workflow {
	return New(r, geometry.NewEngine(geometry.DefaultConfig()), g, cfg)
}

func TestProcess_CoverageScenario(t *testing.T) {
	question := "Does the extension comply with the 50% curtilage rule?"
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, question, 5).
		Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.91)), nil)

	gen := &scriptedGenerator{reply: func(_ int, prompt string) (string, error) {
		require.Contains(t, prompt, "coverage = 30.00% of Plot Boundary")
		require.Contains(t, prompt, "[1] Source: GPDO 2015 | Reference: Section A.1(b), Page 12")
		return `{"answer": "The extension complies: buildings cover 30.00% of the curtilage, below the 50% limit.",
			"is_compliant": true,
			"citations": [{"regulation_index": 1, "quote": "would exceed 50% of the total area of the curtilage", "relevance": "Sets the 50% limit"}]}`, nil
	}}

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), question, plotWithWalls())
	require.NoError(t, err)

	assert.True(t, result.IsCompliant)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, domain.Citation{
		Source:    "GPDO 2015",
		Reference: "Section A.1(b), Page 12",
		Content:   "would exceed 50% of the total area of the curtilage",
		Relevance: "Sets the 50% limit",
	}, result.Citations[0])

	require.Len(t, result.ReasoningSteps, 5)
	assert.Equal(t, "Retrieved 1 regulatory document", result.ReasoningSteps[0])
	assert.True(t, strings.HasPrefix(result.ReasoningSteps[1], "Analyzed drawing geometry: 2 layers"))
	assert.Contains(t, result.ReasoningSteps[1], "boundary Plot Boundary")
	assert.Equal(t, "Drafted answer (pass 1): compliant with 1 citations", result.ReasoningSteps[2])
	assert.Equal(t, "Critique approved the draft", result.ReasoningSteps[3])
	assert.Equal(t, "Finalized compliance result: compliant with 1 citations", result.ReasoningSteps[4])
	assert.Equal(t, 1, gen.calls())
	retriever.AssertExpectations(t)
}

func TestProcess_DistanceScenario(t *testing.T) {
	question := "Does the building satisfy the 2m boundary rule?"
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, question, 5).
		Return(retrieved(regulation("p2", "A.1(e)", setbackText, 0.88)), nil)

	gen := &scriptedGenerator{reply: func(_ int, prompt string) (string, error) {
		require.Contains(t, prompt, "Plot Boundary <-> Walls: minimum distance 2,500.00")
		require.Contains(t, prompt, "at least 2000 units from the boundary")
		return `{"answer": "The walls are 2,500.00 units from the plot boundary, so the building meets the 2000 unit requirement.",
			"is_compliant": true,
			"citations": [{"regulation_index": 1, "quote": "must be at least 2000 units from the boundary of the curtilage", "relevance": "Minimum distance"}],
			"note": "Compared the minimum distance with the required setback."}`, nil
	}}

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), question, plotWithWalls())
	require.NoError(t, err)

	assert.True(t, result.IsCompliant)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "must be at least 2000 units from the boundary of the curtilage", result.Citations[0].Content)
	assert.Equal(t,
		"Drafted answer (pass 1): compliant with 1 citations. Compared the minimum distance with the required setback.",
		result.ReasoningSteps[2])
}

func TestProcess_EmptyDrawingZeroHits(t *testing.T) {
	question := "Can I build a helipad on the roof?"
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, question, 5).Return(retrieved(), nil)

	gen := replies(`{"answer": "No applicable regulation was found and the drawing has no geometry, so more information is needed.", "is_compliant": false, "citations": []}`)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), question, []domain.DrawingEntity{})
	require.NoError(t, err)

	assert.False(t, result.IsCompliant)
	assert.NotNil(t, result.Citations)
	assert.Empty(t, result.Citations)
	assert.Equal(t, "Retrieval returned no regulatory documents for the question", result.ReasoningSteps[0])
	assert.Equal(t, "Analyzed drawing geometry: no geometry found", result.ReasoningSteps[1])
	assert.Contains(t, gen.prompts[0], "No regulations were retrieved for this question.")
	assert.Contains(t, gen.prompts[0], geometry.NoGeometryMessage)
}

func TestProcess_NoDrawing(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.7)), nil)
	gen := replies(`{"answer": "Without a drawing the coverage cannot be measured.", "is_compliant": false,
		"citations": [{"regulation_index": 1, "quote": "", "relevance": "Coverage limit"}]}`)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is my extension too big?", nil)
	require.NoError(t, err)

	assert.Equal(t, "No drawing provided; geometry analysis skipped", result.ReasoningSteps[1])
	assert.Contains(t, gen.prompts[0], "No drawing data is available for analysis.")
	require.Len(t, result.Citations, 1)
	assert.Equal(t, curtilageText, result.Citations[0].Content)
}

func TestProcess_IterationBudgetExceeded(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p2", "A.1(e)", setbackText, 0.8)), nil)

	gen := &scriptedGenerator{reply: func(call int, _ string) (string, error) {
		return `{"answer": "Draft ` + string(rune('0'+call)) + `: the walls are 2,500.00 units from the boundary.", "is_compliant": true, "citations": []}`, nil
	}}

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is the building far enough from the boundary?", plotWithWalls())
	require.NoError(t, err)

	assert.Equal(t, 3, gen.calls())
	assert.True(t, strings.HasPrefix(result.Answer, "Draft 3:"))
	assert.Empty(t, result.Citations)

	steps := result.ReasoningSteps
	require.Len(t, steps, 9)
	assert.Equal(t, "Critique requested revision: missing citation", steps[3])
	assert.Equal(t, "Critique requested revision: missing citation", steps[5])
	assert.Equal(t, "Critique found issues with no revisions left: missing citation", steps[7])
	assert.Contains(t, strings.ToLower(steps[8]), "iteration budget exceeded")

	assert.Contains(t, gen.prompts[1], "REVIEW OF YOUR PREVIOUS DRAFT\n- missing citation")
	assert.Contains(t, gen.prompts[1], "Previous answer: Draft 1:")
	assert.NotContains(t, gen.prompts[0], "REVIEW OF YOUR PREVIOUS DRAFT")
}

func TestProcess_ReasonPassesAreBounded(t *testing.T) {
	for _, maxRevisions := range []int{0, 1, 2, 3} {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).
			Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8)), nil)
		gen := replies(`{"answer": "Uncited draft.", "is_compliant": false, "citations": []}`)

		cfg := DefaultConfig()
		cfg.MaxRevisions = maxRevisions
		wf := newTestWorkflow(retriever, gen, cfg)

		result, err := wf.Process(context.Background(), "Is it allowed?", plotWithWalls())
		require.NoError(t, err)
		assert.Equal(t, maxRevisions+1, gen.calls(), "max revisions %d", maxRevisions)
		assert.Len(t, result.ReasoningSteps, 2+2*(maxRevisions+1)+1)
	}
}

func TestProcess_RevisionFixesMissingCitation(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8)), nil)
	gen := replies(
		`{"answer": "Coverage is 30.00%, which is within the limit.", "is_compliant": true, "citations": []}`,
		`{"answer": "Coverage is 30.00%, which is within the limit.", "is_compliant": true, "citations": [{"regulation_index": 1, "quote": "exceed 50%"}]}`,
	)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is the coverage acceptable?", plotWithWalls())
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls())
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "exceed 50%", result.Citations[0].Content)
	assert.Equal(t, "Retrieved for the question", result.Citations[0].Relevance)
	assert.Equal(t, "Critique requested revision: missing citation", result.ReasoningSteps[3])
	assert.Equal(t, "Critique approved the draft", result.ReasoningSteps[5])
	assert.Len(t, result.ReasoningSteps, 7)
}

func TestProcess_VerdictToneMismatchTriggersRevision(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p2", "A.1(e)", setbackText, 0.8)), nil)
	gen := replies(
		`{"answer": "The building does not comply with the setback rule.", "is_compliant": true, "citations": [{"regulation_index": 1}]}`,
		`{"answer": "The building complies with the setback rule.", "is_compliant": true, "citations": [{"regulation_index": 1}]}`,
	)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is the setback fine?", plotWithWalls())
	require.NoError(t, err)

	assert.Contains(t, result.ReasoningSteps[3], "verdict contradicts answer")
	assert.Equal(t, "The building complies with the setback rule.", result.Answer)
}

func TestProcess_SynthesisRetriedWithSimplifiedPrompt(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8)), nil)
	gen := replies(
		"I think it is fine.",
		"```json\n{\"answer\": \"Coverage of 30.00% is compliant with the 50% rule.\", \"is_compliant\": true, \"citations\": [{\"regulation_index\": 1}]}\n```",
	)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is the coverage acceptable?", plotWithWalls())
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls())
	assert.True(t, strings.HasPrefix(gen.prompts[1], "Question: Is the coverage acceptable?"))
	assert.Equal(t, "Drafted answer (pass 1): compliant with 1 citations after retrying with a simplified prompt", result.ReasoningSteps[2])
}

func TestProcess_SynthesisFailureAfterRetry(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(retrieved(), nil)
	genErr := errors.New("upstream 503")
	gen := &scriptedGenerator{reply: func(int, string) (string, error) { return "", genErr }}

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is it allowed?", plotWithWalls())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 2, gen.calls())

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, NodeReason, runErr.Node)
	assert.Equal(t, 0, runErr.Iterations)
	assert.ErrorIs(t, err, domain.ErrSynthesisFailure)
	assert.ErrorIs(t, err, genErr)
}

func TestProcess_SynthesisFailureOnLaterPass(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8)), nil)
	gen := replies(
		`{"answer": "Uncited draft.", "is_compliant": false, "citations": []}`,
		`{"answer": ""}`,
	)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	_, err := wf.Process(context.Background(), "Is it allowed?", plotWithWalls())

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, NodeReason, runErr.Node)
	assert.Equal(t, 1, runErr.Iterations)
	assert.Equal(t, 3, gen.calls())
}

func TestProcess_RetrievalFailureDegradesToGeometryOnly(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(nil, domain.NewRetrievalFailure(errors.New("embedding endpoint unreachable")))
	gen := replies(`{"answer": "Buildings cover 30.00% of the plot.", "is_compliant": true,
		"citations": [{"regulation_index": 1, "quote": "made up"}]}`)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is the coverage acceptable?", plotWithWalls())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Answer, NoSourcesNotice))
	assert.NotNil(t, result.Citations)
	assert.Empty(t, result.Citations)
	assert.Contains(t, result.ReasoningSteps[0], "retrieval failed")
	assert.Contains(t, gen.prompts[0], "Regulation retrieval failed")
	assert.Contains(t, gen.prompts[0], "coverage = 30.00%")
	assert.Equal(t, "Critique approved the draft", result.ReasoningSteps[3])
}

func TestProcess_RetrievalFailureWithoutDrawingFails(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(nil, errors.New("connection refused"))
	gen := replies(`{}`)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	_, err := wf.Process(context.Background(), "Is it allowed?", nil)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, NodeRetrieve, runErr.Node)
	assert.ErrorIs(t, err, domain.ErrRetrievalFailure)
	assert.Equal(t, 0, gen.calls())
}

func TestProcess_Cancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		retriever := new(MockRetriever)
		gen := replies(`{}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		wf := newTestWorkflow(retriever, gen, DefaultConfig())
		_, err := wf.Process(ctx, "Is it allowed?", plotWithWalls())

		assert.ErrorIs(t, err, domain.ErrRunCancelled)
		assert.ErrorIs(t, err, context.Canceled)
		retriever.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("during generation", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(retrieved(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		gen := &scriptedGenerator{reply: func(int, string) (string, error) {
			cancel()
			return "", context.Canceled
		}}

		wf := newTestWorkflow(retriever, gen, DefaultConfig())
		_, err := wf.Process(ctx, "Is it allowed?", plotWithWalls())

		var runErr *RunError
		require.True(t, errors.As(err, &runErr))
		assert.Equal(t, NodeReason, runErr.Node)
		assert.ErrorIs(t, err, domain.ErrRunCancelled)
		assert.Equal(t, 1, gen.calls())
	})
}

func TestProcess_EmptyQuestion(t *testing.T) {
	wf := newTestWorkflow(new(MockRetriever), replies(`{}`), DefaultConfig())

	_, err := wf.Process(context.Background(), "   ", nil)

	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestProcess_LLMCritique(t *testing.T) {
	draft := `{"answer": "Coverage of 30.00% is compliant with the 50% rule.", "is_compliant": true, "citations": [{"regulation_index": 1}]}`

	tests := []struct {
		name      string
		reviews   []string
		wantCalls int
		wantStep  string
	}{
		{
			name:      "approved",
			reviews:   []string{"APPROVED"},
			wantCalls: 2,
			wantStep:  "Critique approved the draft",
		},
		{
			name:      "revision requested",
			reviews:   []string{"The answer ignores the height limit.\nMore detail here.", "Approved."},
			wantCalls: 4,
			wantStep:  "Critique requested revision: The answer ignores the height limit.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := new(MockRetriever)
			retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
				Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8)), nil)

			review := 0
			gen := &scriptedGenerator{reply: func(_ int, prompt string) (string, error) {
				if strings.HasPrefix(prompt, "You review draft answers") {
					r := tt.reviews[review]
					review++
					return r, nil
				}
				return draft, nil
			}}

			cfg := DefaultConfig()
			cfg.LLMCritique = true
			wf := newTestWorkflow(retriever, gen, cfg)

			result, err := wf.Process(context.Background(), "Is the coverage acceptable?", plotWithWalls())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, gen.calls())
			assert.Equal(t, tt.wantStep, result.ReasoningSteps[3])
		})
	}
}

func TestProcess_LLMCritiqueFailure(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8)), nil)
	gen := &scriptedGenerator{reply: func(_ int, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "You review draft answers") {
			return "", context.DeadlineExceeded
		}
		return `{"answer": "Coverage of 30.00% is compliant.", "is_compliant": true, "citations": [{"regulation_index": 1}]}`, nil
	}}

	cfg := DefaultConfig()
	cfg.LLMCritique = true
	wf := newTestWorkflow(retriever, gen, cfg)

	_, err := wf.Process(context.Background(), "Is the coverage acceptable?", plotWithWalls())

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, NodeCritique, runErr.Node)
	assert.Equal(t, 1, runErr.Iterations)
	assert.ErrorIs(t, err, domain.ErrSynthesisFailure)
	assert.Equal(t, 3, gen.calls())
}

func TestProcess_UnresolvedHitsAreNoted(t *testing.T) {
	res := retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8))
	res.Unresolved = 2
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(res, nil)
	gen := replies(`{"answer": "Coverage of 30.00% is compliant.", "is_compliant": true, "citations": [{"regulation_index": 1}]}`)

	wf := newTestWorkflow(retriever, gen, DefaultConfig())
	result, err := wf.Process(context.Background(), "Is the coverage acceptable?", plotWithWalls())
	require.NoError(t, err)

	assert.Equal(t, "Retrieved 1 regulatory document (2 hits skipped: parent unavailable)", result.ReasoningSteps[0])
}

func TestProcess_ConcurrentRunsDoNotShareState(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return(retrieved(regulation("p1", "A.1(b)", curtilageText, 0.8)), nil)
	gen := &scriptedGenerator{reply: func(_ int, prompt string) (string, error) {
		q := prompt[strings.Index(prompt, "QUESTION: ")+len("QUESTION: "):]
		q = q[:strings.Index(q, "\n")]
		return `{"answer": "` + q + ` is compliant.", "is_compliant": true, "citations": [{"regulation_index": 1}]}`, nil
	}}
	wf := newTestWorkflow(retriever, gen, DefaultConfig())

	var wg sync.WaitGroup
	results := make([]*domain.ComplianceResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := wf.Process(context.Background(), "question "+string(rune('A'+i)), plotWithWalls())
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "question "+string(rune('A'+i))+" is compliant.", r.Answer)
		assert.Len(t, r.ReasoningSteps, 5)
	}
}
