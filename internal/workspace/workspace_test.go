package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	saved map[string][]byte
}

func newMemPersister() *memPersister {
	return &memPersister{saved: make(map[string][]byte)}
}

func (p *memPersister) SaveWorkspace(sessionID string, state []byte) error {
	p.saved[sessionID] = append([]byte(nil), state...)
	return nil
}

func (p *memPersister) LoadWorkspace(sessionID string) ([]byte, error) {
	return p.saved[sessionID], nil
}

func TestWorkspaceLifecycle(t *testing.T) {
	w := New("s1", "tidy the downloads folder", nil)
	assert.Equal(t, StateInitialized, w.State())
	assert.False(t, w.Done())

	require.NoError(t, w.Transition(StateExecuting))
	require.NoError(t, w.Transition(StateWaitingForNextStep))
	require.NoError(t, w.Transition(StatePlanningNextAction))
	require.NoError(t, w.Transition(StateExecuting))
	require.NoError(t, w.Transition(StateCompleted))
	assert.True(t, w.Done())
}

func TestWorkspaceRejectsInvalidTransitions(t *testing.T) {
	w := New("s1", "goal", nil)

	// Cannot plan before executing.
	assert.Error(t, w.Transition(StatePlanningNextAction))

	require.NoError(t, w.Transition(StateExecuting))
	require.NoError(t, w.Transition(StateCompleted))

	// Terminal states admit nothing.
	assert.Error(t, w.Transition(StateExecuting))
	assert.Error(t, w.Transition(StateFailed))
}

func TestWorkspaceFailureIsTerminal(t *testing.T) {
	w := New("s1", "goal", nil)
	require.NoError(t, w.Transition(StateFailed))
	assert.True(t, w.Done())
	assert.Error(t, w.Transition(StateExecuting))
}

func TestWorkspaceRecordsSteps(t *testing.T) {
	w := New("s1", "goal", nil)

	require.NoError(t, w.RecordStep("run_shell_command", "listed 4 files", true))
	require.NoError(t, w.RecordStep("read_file", "file missing", false))

	steps := w.Steps()
	require.Len(t, steps, 2)
	assert.True(t, steps[0].Success)
	assert.False(t, steps[1].Success)
}

func TestWorkspacePersistsAndResumes(t *testing.T) {
	p := newMemPersister()

	w := New("s1", "archive old logs", p)
	require.NoError(t, w.Transition(StateExecuting))
	require.NoError(t, w.RecordStep("run_shell_command", "found 12 logs", true))
	require.NoError(t, w.AddNote("logs older than 30 days only"))

	resumed, err := Resume("s1", p)
	require.NoError(t, err)
	require.NotNil(t, resumed)

	assert.Equal(t, "archive old logs", resumed.Goal())
	assert.Equal(t, StateExecuting, resumed.State())
	require.Len(t, resumed.Steps(), 1)
	assert.Equal(t, "found 12 logs", resumed.Steps()[0].Summary)

	// A resumed workspace continues the lifecycle where it stopped.
	require.NoError(t, resumed.Transition(StateCompleted))
}

func TestResumeUnknownSession(t *testing.T) {
	w, err := Resume("never-seen", newMemPersister())
	require.NoError(t, err)
	assert.Nil(t, w)
}
