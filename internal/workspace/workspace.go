// Package workspace tracks one task's progress across loop
// iterations. The workspace is a scratchpad the agent appends step
// results and notes to; it serializes to JSON in the store so an
// interrupted task can be picked up where it stopped.
package workspace

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"shellmind/internal/logging"
)

// ProgressState is where a task stands in its lifecycle.
type ProgressState string

const (
	StateInitialized        ProgressState = "initialized"
	StateExecuting          ProgressState = "executing"
	StateWaitingForNextStep ProgressState = "waiting_for_next_step"
	StatePlanningNextAction ProgressState = "planning_next_action"
	StateCompleted          ProgressState = "completed"
	StateFailed             ProgressState = "failed"
)

// validTransitions encodes the lifecycle: forward through execution
// and planning, terminal at completed or failed.
var validTransitions = map[ProgressState][]ProgressState{
	StateInitialized:        {StateExecuting, StateFailed},
	StateExecuting:          {StateWaitingForNextStep, StatePlanningNextAction, StateCompleted, StateFailed},
	StateWaitingForNextStep: {StateExecuting, StatePlanningNextAction, StateCompleted, StateFailed},
	StatePlanningNextAction: {StateExecuting, StateCompleted, StateFailed},
	StateCompleted:          nil,
	StateFailed:             nil,
}

// StepNote is one recorded step outcome.
type StepNote struct {
	Tool    string    `json:"tool"`
	Summary string    `json:"summary"`
	Success bool      `json:"success"`
	At      time.Time `json:"at"`
}

// Persister saves and loads serialized workspace state.
// *store.LocalStore satisfies it.
type Persister interface {
	SaveWorkspace(sessionID string, state []byte) error
	LoadWorkspace(sessionID string) ([]byte, error)
}

// TaskWorkspace is the per-task scratchpad.
type TaskWorkspace struct {
	mu        sync.Mutex
	persister Persister

	state snapshot
}

type snapshot struct {
	SessionID string        `json:"session_id"`
	Goal      string        `json:"goal"`
	State     ProgressState `json:"state"`
	Steps     []StepNote    `json:"steps"`
	Notes     []string      `json:"notes"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// New creates a workspace for a task. The persister may be nil for
// throwaway tasks.
func New(sessionID, goal string, persister Persister) *TaskWorkspace {
	now := time.Now()
	return &TaskWorkspace{
		persister: persister,
		state: snapshot{
			SessionID: sessionID,
			Goal:      goal,
			State:     StateInitialized,
			StartedAt: now,
			UpdatedAt: now,
		},
	}
}

// Resume loads a persisted workspace for a session. Returns nil when
// the session has no saved state.
func Resume(sessionID string, persister Persister) (*TaskWorkspace, error) {
	data, err := persister.LoadWorkspace(sessionID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("workspace: corrupt saved state for %s: %w", sessionID, err)
	}

	logging.Session("Resumed workspace for %s in state %s (%d steps)", sessionID, snap.State, len(snap.Steps))
	return &TaskWorkspace{persister: persister, state: snap}, nil
}

// Goal returns the task description.
func (w *TaskWorkspace) Goal() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Goal
}

// State returns the current progress state.
func (w *TaskWorkspace) State() ProgressState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.State
}

// Transition moves the workspace to a new state, enforcing the
// lifecycle, and persists the result.
func (w *TaskWorkspace) Transition(to ProgressState) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	allowed := false
	for _, next := range validTransitions[w.state.State] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("workspace: invalid transition %s -> %s", w.state.State, to)
	}

	logging.SessionDebug("Workspace %s: %s -> %s", w.state.SessionID, w.state.State, to)
	w.state.State = to
	w.state.UpdatedAt = time.Now()
	return w.persistLocked()
}

// Done reports whether the task reached a terminal state.
func (w *TaskWorkspace) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.State == StateCompleted || w.state.State == StateFailed
}

// RecordStep appends a step outcome and persists.
func (w *TaskWorkspace) RecordStep(tool, summary string, success bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.Steps = append(w.state.Steps, StepNote{
		Tool:    tool,
		Summary: summary,
		Success: success,
		At:      time.Now(),
	})
	w.state.UpdatedAt = time.Now()
	return w.persistLocked()
}

// AddNote appends a free-form note and persists.
func (w *TaskWorkspace) AddNote(note string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.Notes = append(w.state.Notes, note)
	w.state.UpdatedAt = time.Now()
	return w.persistLocked()
}

// Steps returns a copy of the recorded step outcomes.
func (w *TaskWorkspace) Steps() []StepNote {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]StepNote, len(w.state.Steps))
	copy(out, w.state.Steps)
	return out
}

func (w *TaskWorkspace) persistLocked() error {
	if w.persister == nil {
		return nil
	}
	data, err := json.Marshal(w.state)
	if err != nil {
		return fmt.Errorf("workspace: serialize: %w", err)
	}
	if err := w.persister.SaveWorkspace(w.state.SessionID, data); err != nil {
		return fmt.Errorf("workspace: persist: %w", err)
	}
	return nil
}
