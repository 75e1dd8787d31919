// Package ux provides terminal presentation: the activity spinner and
// the lipgloss styles the interactive session renders with.
package ux

import "github.com/charmbracelet/lipgloss"

var (
	// PromptStyle renders the input prompt.
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BC34A")).
			Bold(true)

	// AnswerStyle renders final answers from the agent.
	AnswerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B388FF"))

	// PlanStyle renders proposed plans awaiting approval.
	PlanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC107"))

	// ActionStyle renders tool invocations as they run.
	ActionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4FC3F7"))

	// SuccessStyle renders step results.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BC34A"))

	// ErrorStyle renders failures and declines.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e53935"))

	// CriticalTagStyle marks steps that need confirmation.
	CriticalTagStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e53935")).
				Bold(true)

	// MutedStyle renders secondary information.
	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9E9E9E"))
)
