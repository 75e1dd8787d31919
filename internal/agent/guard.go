package agent

import (
	"encoding/json"
	"fmt"

	"shellmind/internal/logging"
)

// The repetition guard watches executed actions and aborts a loop
// that has stopped making progress: re-running an action that already
// succeeded, or drifting into endless information gathering.
type repetitionGuard struct {
	history []actionRecord

	// readOnly classifies a tool as pure information gathering.
	readOnly func(tool string) bool
}

type actionRecord struct {
	tool     string
	argsKey  string
	success  bool
	readOnly bool
}

const (
	// identicalWindow/identicalLimit: the same successful action
	// three times within the last four is a loop, not progress.
	identicalWindow = 4
	identicalLimit  = 3

	// gatherWindow/gatherLimit: four of the last five actions being
	// read-only means the agent is stalling instead of acting.
	gatherWindow = 5
	gatherLimit  = 4
)

func newRepetitionGuard(readOnly func(tool string) bool) *repetitionGuard {
	if readOnly == nil {
		readOnly = func(string) bool { return false }
	}
	return &repetitionGuard{readOnly: readOnly}
}

// record notes an executed action. args are canonicalized through
// JSON so key order never defeats the comparison.
func (g *repetitionGuard) record(tool string, args map[string]any, success bool) {
	key, err := json.Marshal(args)
	if err != nil {
		key = []byte(fmt.Sprint(args))
	}
	g.history = append(g.history, actionRecord{
		tool:     tool,
		argsKey:  tool + ":" + string(key),
		success:  success,
		readOnly: g.readOnly(tool),
	})
}

// check returns ErrRepetition once either threshold trips.
func (g *repetitionGuard) check() error {
	if g.tripsIdentical() {
		logging.Loop("Repetition guard: identical action repeated")
		return fmt.Errorf("%w: the same action keeps succeeding without advancing the task", ErrRepetition)
	}
	if g.tripsGathering() {
		logging.Loop("Repetition guard: stuck gathering information")
		return fmt.Errorf("%w: too many consecutive read-only actions", ErrRepetition)
	}
	return nil
}

func (g *repetitionGuard) tripsIdentical() bool {
	window := g.tail(identicalWindow)
	counts := make(map[string]int)
	for _, a := range window {
		if !a.success {
			continue
		}
		counts[a.argsKey]++
		if counts[a.argsKey] >= identicalLimit {
			return true
		}
	}
	return false
}

func (g *repetitionGuard) tripsGathering() bool {
	window := g.tail(gatherWindow)
	if len(window) < gatherWindow {
		return false
	}
	n := 0
	for _, a := range window {
		if a.readOnly {
			n++
		}
	}
	return n >= gatherLimit
}

func (g *repetitionGuard) tail(n int) []actionRecord {
	if len(g.history) <= n {
		return g.history
	}
	return g.history[len(g.history)-n:]
}
