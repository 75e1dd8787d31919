package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"shellmind/internal/oracle"
	"shellmind/internal/tools"
	"shellmind/internal/ux"
)

// activityIndicator is paused while a prompt is on screen so spinner
// frames never interleave with the question.
type activityIndicator interface {
	Start()
	Stop()
}

// terminalConfirmer prompts on the terminal. Only an explicit yes
// approves; pressing enter declines.
type terminalConfirmer struct {
	in      *bufio.Reader
	out     io.Writer
	spinner activityIndicator
}

func newTerminalConfirmer(in io.Reader, out io.Writer) *terminalConfirmer {
	return &terminalConfirmer{in: bufio.NewReader(in), out: out}
}

// SetSpinner attaches the current turn's spinner. May be nil.
func (c *terminalConfirmer) SetSpinner(s activityIndicator) {
	c.spinner = s
}

// pause stops the spinner for the duration of a prompt and returns
// the resume func.
func (c *terminalConfirmer) pause() func() {
	if c.spinner == nil {
		return func() {}
	}
	c.spinner.Stop()
	return c.spinner.Start
}

func (c *terminalConfirmer) ConfirmPlan(plan *oracle.Plan) (bool, error) {
	defer c.pause()()
	fmt.Fprintln(c.out, ux.PlanStyle.Render("The agent proposes a plan:"))
	if plan.OverallThought != "" {
		fmt.Fprintln(c.out, ux.MutedStyle.Render("  "+plan.OverallThought))
	}
	for i, step := range plan.Steps {
		line := fmt.Sprintf("  Step %d: %s (%s)", i+1, step.Thought, step.Tool)
		if step.IsCritical || tools.IsCritical(step.Tool, step.Args) {
			line += " " + ux.CriticalTagStyle.Render("[CRITICAL]")
		}
		fmt.Fprintln(c.out, ux.PlanStyle.Render(line))
	}
	return c.ask("Execute this plan? (yes/no): ")
}

func (c *terminalConfirmer) ConfirmStep(step oracle.Step, args map[string]any) (bool, error) {
	defer c.pause()()
	fmt.Fprintln(c.out, ux.CriticalTagStyle.Render(
		fmt.Sprintf("Critical step: %s(%v)", step.Tool, args)))
	return c.ask("Confirm execution? (yes/no): ")
}

func (c *terminalConfirmer) ask(prompt string) (bool, error) {
	fmt.Fprint(c.out, ux.PromptStyle.Render(prompt))
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
