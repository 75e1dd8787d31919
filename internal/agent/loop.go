package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shellmind/internal/logging"
	"shellmind/internal/memory"
	"shellmind/internal/oracle"
	"shellmind/internal/store"
	"shellmind/internal/tools"
)

// Recaller surfaces long-term memories relevant to a prompt.
// *store.LocalStore satisfies it.
type Recaller interface {
	Search(ctx context.Context, query string, opts store.SearchOptions) ([]store.Memory, error)
}

// LoopConfig tunes the reflection loop.
type LoopConfig struct {
	// MaxReplans bounds how many times reflection may propose another
	// action before the loop gives up with ErrMaxReplans.
	MaxReplans int
	// RecallLimit and MinSimilarity shape memory injection into
	// think inputs.
	RecallLimit   int
	MinSimilarity float64
}

// Loop drives one user turn end to end: think, act, observe, reflect,
// and replan until the task finishes or a guard trips.
type Loop struct {
	oracle   oracle.Oracle
	executor *Executor
	registry *tools.Registry
	session  *memory.Manager
	recaller Recaller
	cfg      LoopConfig
	onStep   func(StepResult)
}

// NewLoop wires a reflection loop. session and recaller may be nil;
// the loop then runs without history or long-term recall.
func NewLoop(o oracle.Oracle, executor *Executor, registry *tools.Registry, session *memory.Manager, recaller Recaller, cfg LoopConfig) *Loop {
	if cfg.MaxReplans <= 0 {
		cfg.MaxReplans = 4
	}
	return &Loop{
		oracle:   o,
		executor: executor,
		registry: registry,
		session:  session,
		recaller: recaller,
		cfg:      cfg,
	}
}

// SetSession swaps the session window, used when the caller resets
// the conversation mid-run.
func (l *Loop) SetSession(session *memory.Manager) {
	l.session = session
}

// SetStepObserver registers a callback invoked after every executed
// step. The chat surface uses it to track task progress.
func (l *Loop) SetStepObserver(fn func(StepResult)) {
	l.onStep = fn
}

func (l *Loop) notifyStep(r StepResult) {
	if l.onStep != nil {
		l.onStep(r)
	}
}

// Run handles one user input and returns the text to show.
// ErrMaxReplans and ErrRepetition come back alongside the partial
// transcript so the caller can still display what happened.
func (l *Loop) Run(ctx context.Context, input string) (string, error) {
	timer := logging.StartTimer(logging.CategoryLoop, "Run")
	defer timer.Stop()

	decision, err := l.oracle.Think(ctx, oracle.ThinkInput{
		Input:       input,
		History:     l.history(),
		Recalled:    l.recall(ctx, input),
		ToolCatalog: l.toolCatalog(),
	})
	if err != nil {
		return "", err
	}

	switch decision.Kind {
	case oracle.DecisionRespond, oracle.DecisionClarify, oracle.DecisionError:
		l.remember(ctx, input, decision.Text)
		return decision.Text, nil
	case oracle.DecisionPlan:
		return l.runPlan(ctx, input, decision.Plan)
	default:
		return "", fmt.Errorf("loop: unhandled decision kind %q", decision.Kind)
	}
}

// runPlan executes the approved plan, then reflects on observations
// until the oracle declares the task finished or a ceiling trips.
func (l *Loop) runPlan(ctx context.Context, goal string, plan *oracle.Plan) (string, error) {
	if l.session != nil {
		l.session.SetToolMode(ctx, true)
		defer l.session.SetToolMode(ctx, false)
	}

	guard := newRepetitionGuard(l.isReadOnly)
	var observations []oracle.Observation

	outcome, execErr := l.executor.ExecutePlan(ctx, plan)
	if errors.Is(execErr, ErrPlanRejected) {
		l.remember(ctx, goal, "Plan aborted by user.")
		return "Plan aborted.", nil
	}
	if execErr != nil && outcome == nil {
		return "", execErr
	}
	if outcome != nil {
		for _, r := range outcome.Results {
			observations = append(observations, observe(r))
			guard.record(r.Step.Tool, r.Args, r.Status == StepSuccess)
			l.notifyStep(r)
		}
	}
	if errors.Is(execErr, ErrStepDeclined) {
		l.remember(ctx, goal, foldTurn(plan.OverallThought, observations, "Critical step declined; plan halted."))
		return renderTranscript(observations), nil
	}

	replans := 0
	for {
		if err := guard.check(); err != nil {
			l.remember(ctx, goal, foldTurn(plan.OverallThought, observations, "Stopped: repetitive actions detected."))
			return renderTranscript(observations), err
		}

		reflection, err := l.oracle.Reflect(ctx, oracle.ReflectInput{
			Goal:         goal,
			Observations: observations,
			ToolCatalog:  l.toolCatalog(),
		})
		if err != nil {
			return renderTranscript(observations), err
		}

		switch reflection.Kind {
		case oracle.ReflectFinish, oracle.ReflectError:
			l.remember(ctx, goal, foldTurn(plan.OverallThought, observations, reflection.Summary))
			return reflection.Summary, nil
		case oracle.ReflectContinue:
			replans++
			if replans > l.cfg.MaxReplans {
				logging.Loop("Replan ceiling %d reached", l.cfg.MaxReplans)
				l.remember(ctx, goal, foldTurn(plan.OverallThought, observations, "Stopped: replan limit reached."))
				return renderTranscript(observations), fmt.Errorf("%w (after %d replans)", ErrMaxReplans, l.cfg.MaxReplans)
			}

			logging.LoopDebug("Replan %d/%d: %s", replans, l.cfg.MaxReplans, reflection.Next.Tool)
			result, stepErr := l.executor.ExecuteSingle(ctx, *reflection.Next)
			observations = append(observations, observe(result))
			guard.record(result.Step.Tool, result.Args, result.Status == StepSuccess)
			l.notifyStep(result)

			if errors.Is(stepErr, ErrStepDeclined) {
				l.remember(ctx, goal, foldTurn(plan.OverallThought, observations, "Critical step declined; stopping."))
				return renderTranscript(observations), nil
			}
		default:
			return renderTranscript(observations), fmt.Errorf("loop: unhandled reflection kind %q", reflection.Kind)
		}
	}
}

// ContinuesTask asks the oracle whether a new input belongs to the
// task already in progress.
func (l *Loop) ContinuesTask(ctx context.Context, goal, input string) (bool, error) {
	return l.oracle.ContinuesTask(ctx, goal, input)
}

func (l *Loop) history() []oracle.Turn {
	if l.session == nil {
		return nil
	}
	msgs := l.session.Recent(0)
	turns := make([]oracle.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = oracle.Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}

func (l *Loop) recall(ctx context.Context, query string) []string {
	if l.recaller == nil {
		return nil
	}
	memories, err := l.recaller.Search(ctx, query, store.SearchOptions{
		Limit:         l.cfg.RecallLimit,
		MinSimilarity: l.cfg.MinSimilarity,
	})
	if err != nil {
		logging.LoopDebug("Memory recall failed, continuing without: %v", err)
		return nil
	}
	out := make([]string, len(memories))
	for i, m := range memories {
		out[i] = m.Content
	}
	if len(out) > 0 {
		logging.Loop("Injecting %d recalled memories", len(out))
	}
	return out
}

func (l *Loop) remember(ctx context.Context, userText, assistantText string) {
	if l.session == nil {
		return
	}
	if err := l.session.AddExchange(ctx, userText, assistantText); err != nil {
		logging.LoopDebug("Failed to record exchange: %v", err)
	}
}

// foldTurn renders a completed tool turn as a single assistant
// message: the plan thought, each action with its observation, then
// the closing summary. Keeping the whole turn in one message
// preserves the user/assistant alternation of the session window.
func foldTurn(thought string, observations []oracle.Observation, summary string) string {
	if len(observations) == 0 {
		return summary
	}
	var sb strings.Builder
	if thought != "" {
		fmt.Fprintf(&sb, "Thought: %s\n", thought)
	}
	for _, obs := range observations {
		fmt.Fprintf(&sb, "Action: %s\n", obs.Tool)
		if obs.Failure != "" {
			fmt.Fprintf(&sb, "Observation: failed: %s\n", obs.Failure)
		} else {
			fmt.Fprintf(&sb, "Observation: %s\n", truncateText(fmt.Sprint(obs.Output), 500))
		}
	}
	sb.WriteString(summary)
	return sb.String()
}

func (l *Loop) isReadOnly(tool string) bool {
	if l.registry == nil {
		return false
	}
	t := l.registry.Get(tool)
	return t != nil && t.ReadOnly
}

// toolCatalog renders the registry as JSON for the prompts.
func (l *Loop) toolCatalog() string {
	if l.registry == nil {
		return ""
	}
	type entry struct {
		Name        string           `json:"name"`
		Description string           `json:"description"`
		Parameters  tools.ToolSchema `json:"parameters"`
	}
	var catalog []entry
	for _, name := range l.registry.Names() {
		t := l.registry.Get(name)
		if t == nil {
			continue
		}
		catalog = append(catalog, entry{Name: t.Name, Description: t.Description, Parameters: t.Schema})
	}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func observe(r StepResult) oracle.Observation {
	obs := oracle.Observation{
		Tool:   r.Step.Tool,
		Args:   r.Args,
		Output: r.Output,
	}
	if r.Err != nil {
		obs.Failure = r.Err.Error()
	} else if r.CheckpointFailed {
		obs.Failure = fmt.Sprintf("checkpoint unmet: %s", r.Step.Checkpoint)
	}
	return obs
}

// renderTranscript turns observations into a readable partial result
// for the user when the loop stops early.
func renderTranscript(observations []oracle.Observation) string {
	if len(observations) == 0 {
		return "No actions were executed."
	}
	var sb strings.Builder
	for i, obs := range observations {
		fmt.Fprintf(&sb, "%d. %s", i+1, obs.Tool)
		if obs.Failure != "" {
			fmt.Fprintf(&sb, " failed: %s", obs.Failure)
		} else {
			fmt.Fprintf(&sb, ": %s", truncateText(fmt.Sprint(obs.Output), 200))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncateText(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
