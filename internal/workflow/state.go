package workflow

import (
	"fmt"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/geometry"
	"github.com/cloo-solutions/plancheck/internal/service"
)

// Node names a workflow state.
type Node string

const (
	NodeRetrieve        Node = "Retrieve"
	NodeAnalyzeGeometry Node = "AnalyzeGeometry"
	NodeReason          Node = "Reason"
	NodeCritique        Node = "Critique"
	NodeRespond         Node = "Respond"
)

// Draft is the structured output of one Reason pass.
type Draft struct {
	Answer      string
	IsCompliant bool
	Citations   []domain.Citation
	Note        string
}

// State is owned by a single run and never shared between runs.
type State struct {
	RunID    string
	Question string
	// Drawing is nil when the caller supplied no drawing.
	Drawing []domain.DrawingEntity

	Regulations  []service.RetrievedRegulation
	Unresolved   int
	RetrievalErr error

	Geometry *geometry.Report

	Draft          *Draft
	Feedback       []string
	Passes         int
	Revisions      int
	BudgetExceeded bool

	Steps []string
}

// HasDrawing reports whether drawing data was supplied.
func (s *State) HasDrawing() bool {
	return s.Drawing != nil
}

// Degraded reports whether the run continues without regulations because
// retrieval failed.
func (s *State) Degraded() bool {
	return s.RetrievalErr != nil
}

func (s *State) record(format string, args ...any) {
	s.Steps = append(s.Steps, fmt.Sprintf(format, args...))
}

// RunError reports a failed run together with the node that failed and the
// number of Reason passes that completed before it.
type RunError struct {
	Node       Node
	Iterations int
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("workflow: %s failed after %d reasoning passes: %v", e.Node, e.Iterations, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
