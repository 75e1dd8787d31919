package agent

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"shellmind/internal/logging"
	"shellmind/internal/oracle"
	"shellmind/internal/tools"
	"shellmind/internal/tools/shell"
)

// Batch is a set of mutually independent steps validated for
// concurrent execution.
type Batch struct {
	steps []oracle.Step
}

// NewBatch validates that steps can run concurrently. Rejected up
// front:
//   - placeholder references, which imply ordering between steps
//   - cd commands, which mutate the shared execution context
//   - critical steps, whose confirmation prompts cannot interleave
func NewBatch(steps []oracle.Step) (*Batch, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("batch: no steps")
	}
	for i, s := range steps {
		for _, v := range s.Args {
			if str, ok := v.(string); ok && strings.Contains(str, "<output_of_step_") {
				return nil, fmt.Errorf("batch: step %d references another step's output", i+1)
			}
		}
		if s.Tool == tools.NameRunShellCommand {
			if cmd, ok := s.Args["command"].(string); ok && shell.IsChangeDirectory(cmd) {
				return nil, fmt.Errorf("batch: step %d changes directory, which serializes the batch", i+1)
			}
		}
		if s.IsCritical || tools.IsCritical(s.Tool, s.Args) {
			return nil, fmt.Errorf("batch: step %d (%s) requires confirmation and cannot run concurrently", i+1, s.Tool)
		}
	}
	return &Batch{steps: steps}, nil
}

// Len reports the batch size.
func (b *Batch) Len() int {
	return len(b.steps)
}

// ExecuteBatch runs the batch concurrently. Results come back in step
// order; the first failure cancels the rest through the group
// context.
func (e *Executor) ExecuteBatch(ctx context.Context, batch *Batch) ([]StepResult, error) {
	timer := logging.StartTimer(logging.CategoryExecutor, "ExecuteBatch")
	defer timer.Stop()

	logging.Executor("Running %d independent steps concurrently", batch.Len())

	results := make([]StepResult, batch.Len())
	g, gctx := errgroup.WithContext(ctx)
	for i, step := range batch.steps {
		g.Go(func() error {
			result, err := e.executeStep(gctx, step, step.Args)
			results[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch: %w", err)
	}
	return results, nil
}
