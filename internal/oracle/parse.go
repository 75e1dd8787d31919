package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"shellmind/internal/tools"
)

// extractJSON strips markdown code fences and surrounding prose so
// the payload can be unmarshalled. Models wrap JSON in fences often
// enough that this is load-bearing.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	// Fall back to the outermost object when prose surrounds it.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

type decisionWire struct {
	Text    string `json:"text"`
	Clarify string `json:"clarify"`
	Plan    *Plan  `json:"plan"`
}

// parseDecision validates the model's turn response. Exactly one of
// text, clarify, or plan must be present, and every plan step must
// name a registered tool shape.
func parseDecision(raw string) (Decision, error) {
	var wire decisionWire
	if err := json.Unmarshal([]byte(extractJSON(raw)), &wire); err != nil {
		return Decision{}, fmt.Errorf("oracle: unparseable decision: %w", err)
	}

	set := 0
	if wire.Text != "" {
		set++
	}
	if wire.Clarify != "" {
		set++
	}
	if wire.Plan != nil {
		set++
	}
	if set != 1 {
		return Decision{}, fmt.Errorf("oracle: decision must contain exactly one of text, clarify, plan (got %d)", set)
	}

	switch {
	case wire.Text != "":
		return Decision{Kind: DecisionRespond, Text: wire.Text}, nil
	case wire.Clarify != "":
		return Decision{Kind: DecisionClarify, Text: wire.Clarify}, nil
	default:
		if err := validatePlan(wire.Plan); err != nil {
			return Decision{}, err
		}
		return Decision{Kind: DecisionPlan, Plan: wire.Plan}, nil
	}
}

func validatePlan(p *Plan) error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("oracle: plan has no steps")
	}
	for i, s := range p.Steps {
		if s.Tool == "" {
			return fmt.Errorf("oracle: plan step %d names no tool", i+1)
		}
		if !tools.IsKnownName(s.Tool) {
			return fmt.Errorf("oracle: plan step %d uses unknown tool %q", i+1, s.Tool)
		}
	}
	return nil
}

type reflectionWire struct {
	Status   string `json:"status"`
	Thought  string `json:"thought"`
	NextStep *Step  `json:"next_step"`
	Summary  string `json:"summary"`
}

// parseReflection validates the model's progress verdict.
func parseReflection(raw string) (Reflection, error) {
	var wire reflectionWire
	if err := json.Unmarshal([]byte(extractJSON(raw)), &wire); err != nil {
		return Reflection{}, fmt.Errorf("oracle: unparseable reflection: %w", err)
	}

	switch wire.Status {
	case "continue":
		if wire.NextStep == nil || wire.NextStep.Tool == "" {
			return Reflection{}, fmt.Errorf("oracle: continue verdict without a next step")
		}
		if !tools.IsKnownName(wire.NextStep.Tool) {
			return Reflection{}, fmt.Errorf("oracle: next step uses unknown tool %q", wire.NextStep.Tool)
		}
		return Reflection{Kind: ReflectContinue, Thought: wire.Thought, Next: wire.NextStep}, nil
	case "finish":
		if wire.Summary == "" {
			return Reflection{}, fmt.Errorf("oracle: finish verdict without a summary")
		}
		return Reflection{Kind: ReflectFinish, Thought: wire.Thought, Summary: wire.Summary}, nil
	case "error":
		return Reflection{Kind: ReflectError, Thought: wire.Thought, Summary: wire.Summary}, nil
	default:
		return Reflection{}, fmt.Errorf("oracle: unknown reflection status %q", wire.Status)
	}
}

type continuationWire struct {
	Continues *bool `json:"continues"`
}

func parseContinuation(raw string) (bool, error) {
	var wire continuationWire
	if err := json.Unmarshal([]byte(extractJSON(raw)), &wire); err != nil {
		return false, fmt.Errorf("oracle: unparseable continuation verdict: %w", err)
	}
	if wire.Continues == nil {
		return false, fmt.Errorf("oracle: continuation verdict missing 'continues'")
	}
	return *wire.Continues, nil
}
