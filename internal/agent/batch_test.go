package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellmind/internal/oracle"
	"shellmind/internal/tools"
)

func TestNewBatchRejectsPlaceholderReference(t *testing.T) {
	_, err := NewBatch([]oracle.Step{
		step("work", map[string]any{"item": "a"}),
		step("work", map[string]any{"item": "<output_of_step_1>"}),
	})
	assert.Error(t, err)
}

func TestNewBatchRejectsChangeDirectory(t *testing.T) {
	_, err := NewBatch([]oracle.Step{
		step(tools.NameRunShellCommand, map[string]any{"command": "cd /tmp"}),
		step(tools.NameRunShellCommand, map[string]any{"command": "ls"}),
	})
	assert.Error(t, err)
}

func TestNewBatchRejectsCriticalSteps(t *testing.T) {
	_, err := NewBatch([]oracle.Step{
		step(tools.NameRunShellCommand, map[string]any{"command": "rm -rf build"}),
	})
	assert.Error(t, err)
}

func TestNewBatchRejectsEmpty(t *testing.T) {
	_, err := NewBatch(nil)
	assert.Error(t, err)
}

func TestExecuteBatchRunsAllSteps(t *testing.T) {
	registry := tools.NewRegistry()
	var count atomic.Int32
	registry.MustRegister(&tools.Tool{
		Name: "work", Description: "d", Category: tools.CategoryGeneral,
		Execute: func(_ context.Context, args map[string]any) (any, error) {
			count.Add(1)
			return args["item"], nil
		},
	})
	ec, err := tools.NewExecutionContext(t.TempDir())
	require.NoError(t, err)
	exec := NewExecutor(registry, ec, approveAll())

	batch, err := NewBatch([]oracle.Step{
		step("work", map[string]any{"item": "a"}),
		step("work", map[string]any{"item": "b"}),
		step("work", map[string]any{"item": "c"}),
	})
	require.NoError(t, err)

	results, err := exec.ExecuteBatch(t.Context(), batch)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int32(3), count.Load())

	// Results keep step order regardless of completion order.
	assert.Equal(t, "a", results[0].Output)
	assert.Equal(t, "c", results[2].Output)
}

func TestExecuteBatchPropagatesFailure(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(&tools.Tool{
		Name: "work", Description: "d", Category: tools.CategoryGeneral,
		Execute: func(_ context.Context, args map[string]any) (any, error) {
			if args["item"] == "bad" {
				return nil, fmt.Errorf("refused %v", args["item"])
			}
			return args["item"], nil
		},
	})
	ec, err := tools.NewExecutionContext(t.TempDir())
	require.NoError(t, err)
	exec := NewExecutor(registry, ec, approveAll())

	batch, err := NewBatch([]oracle.Step{
		step("work", map[string]any{"item": "ok"}),
		step("work", map[string]any{"item": "bad"}),
	})
	require.NoError(t, err)

	_, err = exec.ExecuteBatch(t.Context(), batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}
