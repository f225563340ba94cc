// Package workflow runs the bounded compliance reasoning state machine:
// Retrieve and AnalyzeGeometry, then Reason and Critique until the draft is
// approved or the revision budget is spent, then Respond.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/geometry"
	"github.com/cloo-solutions/plancheck/internal/logger"
	"github.com/cloo-solutions/plancheck/internal/metrics"
	"github.com/cloo-solutions/plancheck/internal/service"
	"github.com/cloo-solutions/plancheck/internal/telemetry"
)

// Retriever resolves a question to parent regulations.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) (*service.RetrievalResult, error)
}

// GeometryAnalyzer turns drawing entities into a report.
type GeometryAnalyzer interface {
	Analyze(entities []domain.DrawingEntity, question string) *geometry.Report
}

// Generator is the text-generation capability used by Reason and Critique.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Workflow answers compliance questions. It holds no per-run state and is
// safe for concurrent use.
type Workflow struct {
	retriever Retriever
	geometry  GeometryAnalyzer
	generator Generator
	cfg       Config
	uuidGen   service.UUIDGenerator
}

// New creates a Workflow.
func New(retriever Retriever, analyzer GeometryAnalyzer, generator Generator, cfg Config) *Workflow {
	return &Workflow{
		retriever: retriever,
		geometry:  analyzer,
		generator: generator,
		cfg:       cfg.normalized(),
		uuidGen:   &service.DefaultUUIDGenerator{},
	}
}

// Process runs one compliance check. drawing may be nil when no drawing is
// available. On failure the error is a *RunError naming the failed node.
func (w *Workflow) Process(ctx context.Context, question string, drawing []domain.DrawingEntity) (*domain.ComplianceResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	s := &State{
		RunID:    w.uuidGen.NewString(),
		Question: question,
		Drawing:  drawing,
	}

	ctx, span := telemetry.StartSpan(ctx, "Workflow.Process", telemetry.SpanAttributes{
		RunID:     s.RunID,
		Operation: "compliance_check",
	})
	defer span.End()

	log := logger.FromContext(ctx).With(zap.String("run_id", s.RunID))
	ctx = logger.ContextWithLogger(ctx, log)

	result, err := w.run(ctx, s)
	metrics.ReasoningPasses.Observe(float64(s.Passes))
	if err != nil {
		outcome := "failed"
		if errors.Is(err, domain.ErrRunCancelled) {
			outcome = "cancelled"
		}
		metrics.WorkflowRunsTotal.WithLabelValues(outcome).Inc()
		span.SetError(err)
		log.Warn("compliance run failed", zap.Error(err), zap.Int("passes", s.Passes))
		return nil, err
	}

	outcome := "ok"
	switch {
	case s.Degraded():
		outcome = "degraded"
	case s.BudgetExceeded:
		outcome = "budget_exceeded"
	}
	metrics.WorkflowRunsTotal.WithLabelValues(outcome).Inc()
	log.Info("compliance run finished",
		zap.String("outcome", outcome),
		zap.Int("passes", s.Passes),
		zap.Int("citations", len(result.Citations)))
	return result, nil
}

func (w *Workflow) run(ctx context.Context, s *State) (*domain.ComplianceResult, error) {
	if err := w.gather(ctx, s); err != nil {
		return nil, err
	}

	node := NodeReason
	for {
		if err := ctx.Err(); err != nil {
			return nil, w.fail(s, node, cancelled(err))
		}

		var err error
		switch node {
		case NodeReason:
			err = w.timed(ctx, s, node, w.reason)
			node = NodeCritique
		case NodeCritique:
			var approved bool
			err = w.timed(ctx, s, node, func(ctx context.Context, s *State) error {
				var cerr error
				approved, cerr = w.critique(ctx, s)
				return cerr
			})
			if err == nil {
				node = w.afterCritique(s, approved)
			}
		case NodeRespond:
			var result *domain.ComplianceResult
			_ = w.timed(ctx, s, node, func(_ context.Context, s *State) error {
				result = respond(s)
				return nil
			})
			return result, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// gather runs Retrieve and AnalyzeGeometry concurrently. Their trace
// entries are recorded in node order once both have finished.
func (w *Workflow) gather(ctx context.Context, s *State) error {
	if err := ctx.Err(); err != nil {
		return w.fail(s, NodeRetrieve, cancelled(err))
	}

	var (
		g            errgroup.Group
		retrieved    *service.RetrievalResult
		retrieveErr  error
		report       *geometry.Report
		retrieveTook time.Duration
		analyzeTook  time.Duration
	)

	g.Go(func() error {
		start := time.Now()
		nodeCtx, span := telemetry.StartSpan(ctx, "Workflow.Retrieve", telemetry.SpanAttributes{
			RunID: s.RunID, Node: string(NodeRetrieve),
		})
		defer span.End()
		retrieved, retrieveErr = w.retriever.Retrieve(nodeCtx, s.Question, w.cfg.TopK)
		if retrieveErr != nil {
			span.SetError(retrieveErr)
		}
		retrieveTook = time.Since(start)
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		if s.HasDrawing() {
			_, span := telemetry.StartSpan(ctx, "Workflow.AnalyzeGeometry", telemetry.SpanAttributes{
				RunID: s.RunID, Node: string(NodeAnalyzeGeometry),
			})
			report = w.geometry.Analyze(s.Drawing, s.Question)
			span.End()
		}
		analyzeTook = time.Since(start)
		return nil
	})

	_ = g.Wait()
	metrics.WorkflowNodeDuration.WithLabelValues(string(NodeRetrieve)).Observe(retrieveTook.Seconds())
	metrics.WorkflowNodeDuration.WithLabelValues(string(NodeAnalyzeGeometry)).Observe(analyzeTook.Seconds())

	if err := ctx.Err(); err != nil {
		return w.fail(s, NodeRetrieve, cancelled(err))
	}

	log := logger.FromContext(ctx)
	if retrieveErr != nil {
		if !errors.Is(retrieveErr, domain.ErrRetrievalFailure) {
			retrieveErr = domain.NewRetrievalFailure(retrieveErr)
		}
		if !s.HasDrawing() {
			return w.fail(s, NodeRetrieve, retrieveErr)
		}
		s.RetrievalErr = retrieveErr
		log.Warn("regulation retrieval failed, continuing with geometry only", zap.Error(retrieveErr))
		s.record("Regulation retrieval failed: regulations unavailable, continuing with geometry-only analysis")
	} else {
		if retrieved == nil {
			retrieved = &service.RetrievalResult{}
		}
		s.Regulations = retrieved.Regulations
		s.Unresolved = retrieved.Unresolved
		s.record("%s", retrieveStep(retrieved))
	}

	s.Geometry = report
	s.record("%s", geometryStep(report))
	return nil
}

func retrieveStep(r *service.RetrievalResult) string {
	var msg string
	switch n := len(r.Regulations); n {
	case 0:
		msg = "Retrieval returned no regulatory documents for the question"
	case 1:
		msg = "Retrieved 1 regulatory document"
	default:
		msg = fmt.Sprintf("Retrieved %d regulatory documents", n)
	}
	if r.Unresolved > 0 {
		msg += fmt.Sprintf(" (%d hits skipped: parent unavailable)", r.Unresolved)
	}
	return msg
}

func geometryStep(r *geometry.Report) string {
	if r == nil {
		return "No drawing provided; geometry analysis skipped"
	}
	f := r.Facts
	if f.Empty() {
		msg := "Analyzed drawing geometry: no geometry found"
		if n := len(f.Warnings); n > 0 {
			msg += fmt.Sprintf(", %d parse warnings", n)
		}
		return msg
	}
	msg := fmt.Sprintf("Analyzed drawing geometry: %d layers, %d entities", f.LayerCount, f.EntityCount)
	if f.BoundaryLayer != "" {
		msg += ", boundary " + f.BoundaryLayer
	}
	if n := len(f.Warnings); n > 0 {
		msg += fmt.Sprintf(", %d parse warnings", n)
	}
	return msg
}

// reason drafts an answer. A failed generation or an unparseable draft is
// retried once with a simplified prompt.
func (w *Workflow) reason(ctx context.Context, s *State) error {
	log := logger.FromContext(ctx)
	prompts := []string{reasonPrompt(s), simplifiedPrompt(s)}

	var lastErr error
	for attempt, prompt := range prompts {
		completion, err := w.generate(ctx, prompt)
		if err == nil {
			var draft *Draft
			var dropped int
			draft, dropped, err = parseDraft(completion, s)
			if err == nil {
				if dropped > 0 {
					log.Warn("draft cited unknown regulations", zap.Int("dropped", dropped))
				}
				s.Draft = draft
				s.Passes++
				s.record("%s", draftStep(s.Passes, draft, attempt > 0))
				return nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return w.fail(s, NodeReason, cancelled(ctxErr))
		}
		lastErr = err
		log.Warn("synthesis attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return w.fail(s, NodeReason, domain.NewSynthesisFailure(lastErr))
}

func draftStep(pass int, d *Draft, retried bool) string {
	msg := fmt.Sprintf("Drafted answer (pass %d): %s with %d citations", pass, verdictWord(d.IsCompliant), len(d.Citations))
	if retried {
		msg += " after retrying with a simplified prompt"
	}
	if d.Note != "" {
		msg += ". " + d.Note
	}
	return msg
}

// critique reviews the current draft and records the outcome. Feedback for
// the next Reason pass is left in the state.
func (w *Workflow) critique(ctx context.Context, s *State) (bool, error) {
	issues := reviewDraft(s)

	if len(issues) == 0 && w.cfg.LLMCritique {
		prompt := critiquePrompt(s)
		var (
			completion string
			err        error
		)
		for attempt := 0; attempt < 2; attempt++ {
			completion, err = w.generate(ctx, prompt)
			if err == nil {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, w.fail(s, NodeCritique, cancelled(ctxErr))
			}
			logger.FromContext(ctx).Warn("critique attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
		}
		if err != nil {
			return false, w.fail(s, NodeCritique, domain.NewSynthesisFailure(err))
		}
		if ok, issue := parseReview(completion); !ok {
			issues = append(issues, issue)
		}
	}

	s.Feedback = issues
	return len(issues) == 0, nil
}

// afterCritique records the Critique entry and picks the next node.
func (w *Workflow) afterCritique(s *State, approved bool) Node {
	switch {
	case approved:
		s.record("Critique approved the draft")
		return NodeRespond
	case s.Revisions < w.cfg.MaxRevisions:
		s.Revisions++
		s.record("Critique requested revision: %s", strings.Join(s.Feedback, "; "))
		return NodeReason
	default:
		s.BudgetExceeded = true
		s.record("Critique found issues with no revisions left: %s", strings.Join(s.Feedback, "; "))
		return NodeRespond
	}
}

func respond(s *State) *domain.ComplianceResult {
	d := s.Draft
	if s.BudgetExceeded {
		s.record("Iteration budget exceeded after %d reasoning passes; returning the last draft (%s, %d citations)",
			s.Passes, verdictWord(d.IsCompliant), len(d.Citations))
	} else {
		s.record("Finalized compliance result: %s with %d citations", verdictWord(d.IsCompliant), len(d.Citations))
	}

	citations := d.Citations
	if citations == nil || s.Degraded() {
		citations = []domain.Citation{}
	}
	return &domain.ComplianceResult{
		Answer:         d.Answer,
		IsCompliant:    d.IsCompliant,
		Citations:      citations,
		ReasoningSteps: append([]string(nil), s.Steps...),
	}
}

func (w *Workflow) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.GenerationTimeout)
	defer cancel()
	return w.generator.Generate(ctx, prompt)
}

func (w *Workflow) timed(ctx context.Context, s *State, node Node, fn func(context.Context, *State) error) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "Workflow."+string(node), telemetry.SpanAttributes{
		RunID: s.RunID, Node: string(node),
	})
	defer span.End()

	err := fn(ctx, s)
	metrics.WorkflowNodeDuration.WithLabelValues(string(node)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.SetError(err)
	}
	return err
}

func (w *Workflow) fail(s *State, node Node, err error) error {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return err
	}
	return &RunError{Node: node, Iterations: s.Passes, Err: err}
}

func cancelled(err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeCancelled, domain.ErrRunCancelled.Message, err)
}
