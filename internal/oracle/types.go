// Package oracle wraps the language model behind a small decision
// interface. Callers never see raw completions; they get a typed
// Decision or Reflection, and any model failure degrades into an
// error decision instead of propagating a crash into the loop.
package oracle

import (
	"context"
	"fmt"
)

// DecisionKind discriminates what the model chose to do with a turn.
type DecisionKind string

const (
	// DecisionRespond answers the user directly, no tools involved.
	DecisionRespond DecisionKind = "respond"
	// DecisionPlan proposes a multi-step tool plan for approval.
	DecisionPlan DecisionKind = "plan"
	// DecisionClarify asks the user a question before acting.
	DecisionClarify DecisionKind = "clarify"
	// DecisionError is the failure-safe fallback for model or parse
	// failures. The loop surfaces it and keeps running.
	DecisionError DecisionKind = "error"
)

// Step is one action in a plan.
type Step struct {
	Thought    string         `json:"thought"`
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args"`
	IsCritical bool           `json:"is_critical,omitempty"`
	Checkpoint string         `json:"checkpoint,omitempty"`
}

// Plan is an ordered sequence of steps with the model's overall intent.
type Plan struct {
	OverallThought string `json:"overall_thought,omitempty"`
	// Independent marks the steps as order-free, letting the executor
	// run them concurrently when none of them is critical or chained.
	Independent bool   `json:"independent,omitempty"`
	Steps       []Step `json:"steps"`
}

// Decision is the model's choice for a user turn.
type Decision struct {
	Kind DecisionKind
	// Text carries the answer (respond), the question (clarify), or
	// the failure description (error).
	Text string
	Plan *Plan
}

// ErrorDecision wraps a failure as a presentable decision.
func ErrorDecision(err error) Decision {
	return Decision{
		Kind: DecisionError,
		Text: fmt.Sprintf("I hit a problem deciding what to do: %v", err),
	}
}

// ReflectionKind discriminates the model's verdict after observing a
// tool result.
type ReflectionKind string

const (
	// ReflectContinue proposes the next action.
	ReflectContinue ReflectionKind = "continue"
	// ReflectFinish ends the task with a final summary.
	ReflectFinish ReflectionKind = "finish"
	// ReflectError is the failure-safe fallback, mirroring
	// DecisionError.
	ReflectError ReflectionKind = "error"
)

// Reflection is the model's verdict on how a task is going.
type Reflection struct {
	Kind    ReflectionKind
	Thought string
	// Next is set for continue verdicts.
	Next *Step
	// Summary is set for finish verdicts; for error it describes the
	// failure.
	Summary string
}

// ErrorReflection wraps a failure as a presentable reflection.
func ErrorReflection(err error) Reflection {
	return Reflection{
		Kind:    ReflectError,
		Summary: fmt.Sprintf("I could not evaluate the last result: %v", err),
	}
}

// Turn is a prior exchange handed to the model as context.
type Turn struct {
	Role    string
	Content string
}

// ThinkInput is everything the model sees when deciding a turn.
type ThinkInput struct {
	Input   string
	History []Turn
	// Recalled holds vector-store memories relevant to the input.
	Recalled []string
	// ToolCatalog is the rendered JSON schema of available tools.
	ToolCatalog string
}

// Observation is one executed action and its outcome.
type Observation struct {
	Tool    string
	Args    map[string]any
	Output  any
	Failure string
}

// ReflectInput is everything the model sees when judging progress.
type ReflectInput struct {
	Goal         string
	Observations []Observation
	ToolCatalog  string
}

// Oracle is the decision interface the agent loop consumes.
type Oracle interface {
	// Think maps a user turn to a decision. Implementations convert
	// their own failures into an error decision; a non-nil error
	// means the context was cancelled.
	Think(ctx context.Context, in ThinkInput) (Decision, error)
	// Reflect judges the latest observation. Same failure contract
	// as Think.
	Reflect(ctx context.Context, in ReflectInput) (Reflection, error)
	// ContinuesTask reports whether a new user message continues the
	// task described by goal rather than starting a fresh one.
	ContinuesTask(ctx context.Context, goal, input string) (bool, error)
}
