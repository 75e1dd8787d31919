package oracle

import (
	"fmt"
	"strings"
)

const thinkSystemPrompt = `You are an expert autonomous agent running in a command-line shell.
Analyze the user's request and the conversation history, then decide on
exactly one of the following. Reply with a single JSON object and nothing else.

1. Direct answer, when no tool is needed:
   {"text": "your answer"}

2. Clarifying question, when the request is ambiguous:
   {"clarify": "your question"}

3. Tool plan, when actions are required:
   {"plan": {"overall_thought": "what you intend",
             "independent": false,
             "steps": [{"thought": "why this step",
                        "tool": "tool_name",
                        "args": {...},
                        "is_critical": false,
                        "checkpoint": "optional condition to verify"}]}}

A later step may reference an earlier step's output with the placeholder
<output_of_step_N>, optionally followed by ['key'] accessors.
Mark a step is_critical when it modifies files or system state.
Set "independent": true only when the steps share no outputs and can
run in any order.`

const reflectSystemPrompt = `You evaluate an agent's progress on a task after each action.
Reply with a single JSON object and nothing else:

{"status": "continue", "thought": "why", "next_step": {"thought": "...", "tool": "...", "args": {...}}}
{"status": "finish", "summary": "what was accomplished"}
{"status": "error", "summary": "why the task cannot proceed"}

Choose finish once the goal is met. Choose error when the observations show
the task cannot succeed. Never propose an action identical to one that
already succeeded.`

const continuationSystemPrompt = `You classify whether a new user message continues the task in
progress or starts something new. Reply with a single JSON object:
{"continues": true} or {"continues": false}`

func buildThinkPrompt(in ThinkInput) string {
	var sb strings.Builder

	if len(in.Recalled) > 0 {
		sb.WriteString("Relevant memories from earlier sessions:\n")
		for _, m := range in.Recalled {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
		sb.WriteString("\n")
	}

	if len(in.History) > 0 {
		sb.WriteString("Conversation history:\n")
		for _, t := range in.History {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
		sb.WriteString("\n")
	}

	if in.ToolCatalog != "" {
		fmt.Fprintf(&sb, "Available tools:\n%s\n\n", in.ToolCatalog)
	}

	fmt.Fprintf(&sb, "User request: %s", in.Input)
	return sb.String()
}

func buildReflectPrompt(in ReflectInput) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Task: %s\n\n", in.Goal)

	sb.WriteString("Actions taken so far:\n")
	for i, obs := range in.Observations {
		fmt.Fprintf(&sb, "%d. %s(%v)\n", i+1, obs.Tool, obs.Args)
		if obs.Failure != "" {
			fmt.Fprintf(&sb, "   failed: %s\n", obs.Failure)
		} else {
			fmt.Fprintf(&sb, "   result: %v\n", obs.Output)
		}
	}

	if in.ToolCatalog != "" {
		fmt.Fprintf(&sb, "\nAvailable tools:\n%s\n", in.ToolCatalog)
	}
	return sb.String()
}

func buildContinuationPrompt(goal, input string) string {
	return fmt.Sprintf("Task in progress: %s\n\nNew user message: %s", goal, input)
}
