package domain

import "fmt"

// StepKind names a bootstrap stage.
type StepKind string

const (
	StepNotStarted      StepKind = "NOT_STARTED"
	StepCheckingAuth    StepKind = "CHECKING_AUTH"
	StepLoadingProfile  StepKind = "LOADING_PROFILE"
	StepLoadingOrder    StepKind = "LOADING_ORDER"
	StepLoadingArticles StepKind = "LOADING_ARTICLES"
	StepComplete        StepKind = "COMPLETE"
	StepFailed          StepKind = "FAILED"
)

// InitStep is the active bootstrap stage. For Kind == StepFailed, FailedAt
// and Message describe where and why the run stopped.
type InitStep struct {
	Kind     StepKind `json:"kind"`
	FailedAt StepKind `json:"failed_at,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Step returns a non-failed step of the given kind.
func Step(kind StepKind) InitStep {
	return InitStep{Kind: kind}
}

// FailedStep returns the terminal failure step.
func FailedStep(at StepKind, message string) InitStep {
	return InitStep{Kind: StepFailed, FailedAt: at, Message: message}
}

// String implements fmt.Stringer.
func (s InitStep) String() string {
	if s.Kind == StepFailed {
		return fmt.Sprintf("%s(%s: %s)", s.Kind, s.FailedAt, s.Message)
	}
	return string(s.Kind)
}

// Terminal reports whether no further transition is allowed in this run.
func (s InitStep) Terminal() bool {
	return s.Kind == StepComplete || s.Kind == StepFailed
}

// forwardEdges lists every allowed non-failure transition.
var forwardEdges = map[StepKind][]StepKind{
	StepNotStarted:      {StepCheckingAuth},
	StepCheckingAuth:    {StepLoadingProfile, StepComplete},
	StepLoadingProfile:  {StepLoadingOrder},
	StepLoadingOrder:    {StepLoadingArticles},
	StepLoadingArticles: {StepComplete},
}

// CanTransition reports whether moving from one step to the next follows a
// defined edge. Failed is reachable from any non-terminal step; Complete and
// Failed have no outgoing transitions.
func CanTransition(from, to InitStep) bool {
	if from.Terminal() {
		return false
	}
	if to.Kind == StepFailed {
		return true
	}
	for _, next := range forwardEdges[from.Kind] {
		if next == to.Kind {
			return true
		}
	}
	return false
}
