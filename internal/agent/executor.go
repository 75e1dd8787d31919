// Package agent holds the plan executor and the reflection loop that
// drive tool use: resolve placeholders, gate critical steps behind
// confirmation, execute, observe, and replan until the task finishes.
package agent

import (
	"context"
	"fmt"
	"strings"

	"shellmind/internal/logging"
	"shellmind/internal/oracle"
	"shellmind/internal/tools"
)

// Confirmer answers approval prompts. Implementations must treat
// empty input as a decline; destructive work only proceeds on an
// explicit yes.
type Confirmer interface {
	// ConfirmPlan approves or rejects a whole plan before any step
	// runs.
	ConfirmPlan(plan *oracle.Plan) (bool, error)
	// ConfirmStep approves or rejects one critical step with its
	// fully resolved arguments.
	ConfirmStep(step oracle.Step, args map[string]any) (bool, error)
}

// StepStatus describes how a step ended.
type StepStatus string

const (
	StepSuccess  StepStatus = "success"
	StepError    StepStatus = "error"
	StepDeclined StepStatus = "declined"
)

// StepResult records one executed (or declined) step.
type StepResult struct {
	Step   oracle.Step
	Args   map[string]any
	Status StepStatus
	Output any
	Err    error
	// CheckpointFailed is set when the step succeeded but its
	// post-condition looks unmet; the loop reflects on it.
	CheckpointFailed bool
}

// PlanOutcome is everything a plan run produced, kept even when the
// plan halted partway so reflection sees the partial transcript.
type PlanOutcome struct {
	Results []StepResult
	// Outputs is indexed by step number minus one and feeds
	// placeholder resolution.
	Outputs []any
	Halted  bool
}

// Executor runs approved plans against the tool registry.
type Executor struct {
	registry  *tools.Registry
	ec        *tools.ExecutionContext
	confirmer Confirmer
}

// NewExecutor wires an executor. The confirmer must not be nil; an
// executor that cannot ask is an executor that cannot run critical
// steps.
func NewExecutor(registry *tools.Registry, ec *tools.ExecutionContext, confirmer Confirmer) *Executor {
	return &Executor{
		registry:  registry,
		ec:        ec,
		confirmer: confirmer,
	}
}

// ExecutePlan runs a plan under the approval policy: one up-front
// confirmation for the whole plan, a second gate per critical step.
// The first failure halts execution; everything already produced is
// returned alongside the error.
func (e *Executor) ExecutePlan(ctx context.Context, plan *oracle.Plan) (*PlanOutcome, error) {
	timer := logging.StartTimer(logging.CategoryExecutor, "ExecutePlan")
	defer timer.Stop()

	approved, err := e.confirmer.ConfirmPlan(plan)
	if err != nil {
		return nil, fmt.Errorf("plan confirmation: %w", err)
	}
	logging.Audit().Confirmation("plan", plan.OverallThought, approved)
	if !approved {
		logging.Executor("Plan rejected by user (%d steps)", len(plan.Steps))
		return nil, ErrPlanRejected
	}

	if plan.Independent {
		batch, batchErr := NewBatch(plan.Steps)
		if batchErr == nil {
			return e.executeBatchPlan(ctx, batch)
		}
		logging.Executor("Independent plan falls back to sequential: %v", batchErr)
	}

	outcome := &PlanOutcome{}
	for i, step := range plan.Steps {
		logging.Executor("Step %d/%d: %s", i+1, len(plan.Steps), step.Tool)

		resolved := ResolvePlaceholders(step.Args, outcome.Outputs)
		expanded := expandStep(step.Tool, resolved)

		var collected []any
		for _, args := range expanded {
			result, err := e.executeStep(ctx, step, args)
			outcome.Results = append(outcome.Results, result)
			if err != nil {
				outcome.Halted = true
				return outcome, fmt.Errorf("step %d (%s): %w", i+1, step.Tool, err)
			}
			collected = append(collected, result.Output)
		}

		// Fan-out steps publish the collected list; plain steps
		// publish their single output.
		output := any(collected)
		if len(collected) == 1 {
			output = collected[0]
		}
		outcome.Outputs = append(outcome.Outputs, output)

		if step.Checkpoint != "" && checkpointFailed(output) {
			logging.Executor("Checkpoint unmet after step %d: %s", i+1, step.Checkpoint)
			outcome.Results[len(outcome.Results)-1].CheckpointFailed = true
			outcome.Halted = true
			return outcome, nil
		}
	}
	return outcome, nil
}

// executeBatchPlan runs an independence-marked plan concurrently and
// reshapes the batch results into a plan outcome.
func (e *Executor) executeBatchPlan(ctx context.Context, batch *Batch) (*PlanOutcome, error) {
	results, err := e.ExecuteBatch(ctx, batch)
	outcome := &PlanOutcome{Results: results}
	for _, r := range results {
		outcome.Outputs = append(outcome.Outputs, r.Output)
	}
	if err != nil {
		outcome.Halted = true
		return outcome, err
	}
	return outcome, nil
}

// ExecuteSingle runs one reflection-proposed step. The whole-plan
// approval already happened, so only the critical gate applies.
func (e *Executor) ExecuteSingle(ctx context.Context, step oracle.Step) (StepResult, error) {
	return e.executeStep(ctx, step, step.Args)
}

// executeStep runs one concrete invocation, gating critical work
// behind a per-step confirmation.
func (e *Executor) executeStep(ctx context.Context, step oracle.Step, args map[string]any) (StepResult, error) {
	result := StepResult{Step: step, Args: args}

	if step.IsCritical || tools.IsCritical(step.Tool, args) {
		approved, err := e.confirmer.ConfirmStep(step, args)
		if err != nil {
			result.Status = StepError
			result.Err = err
			return result, fmt.Errorf("step confirmation: %w", err)
		}
		logging.Audit().Confirmation(step.Tool, fmt.Sprint(args), approved)
		if !approved {
			result.Status = StepDeclined
			result.Err = ErrStepDeclined
			return result, ErrStepDeclined
		}
	}

	toolResult, err := e.registry.Execute(ctx, step.Tool, args)
	if err != nil {
		result.Status = StepError
		result.Err = err
		if toolResult != nil {
			result.Output = toolResult.Output
		}
		return result, err
	}

	result.Status = StepSuccess
	result.Output = toolResult.Output
	return result, nil
}

// expandStep fans a list argument out into one invocation per item.
// run_shell_command expands a command list; classify_image expands an
// image path list. Everything else runs once.
func expandStep(tool string, args map[string]any) []map[string]any {
	var key string
	switch tool {
	case tools.NameRunShellCommand:
		key = "command"
	case tools.NameClassifyImage:
		key = "image_path"
	default:
		return []map[string]any{args}
	}

	list, ok := args[key].([]any)
	if !ok {
		return []map[string]any{args}
	}

	expanded := make([]map[string]any, 0, len(list))
	for _, item := range list {
		clone := make(map[string]any, len(args))
		for k, v := range args {
			clone[k] = v
		}
		clone[key] = fmt.Sprint(item)
		expanded = append(expanded, clone)
	}
	return expanded
}

// checkpointFailed is the post-condition heuristic: empty output, or
// output text that reads like a failure.
func checkpointFailed(output any) bool {
	if output == nil {
		return true
	}
	s := strings.ToLower(fmt.Sprint(output))
	if strings.TrimSpace(s) == "" || s == "[]" {
		return true
	}
	return strings.Contains(s, "error") || strings.Contains(s, "not found")
}
