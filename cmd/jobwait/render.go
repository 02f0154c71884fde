package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"jobwait/internal/engine"
)

var (
	colorSuccess = lipgloss.Color("#2ECC40")
	colorError   = lipgloss.Color("#F45756")
	colorWarning = lipgloss.Color("#FF841C")
	colorInfo    = lipgloss.Color("#337AB7")

	bold  = lipgloss.NewStyle().Bold(true)
	faint = lipgloss.NewStyle().Faint(true)
)

// outcomeStyle picks the color and icon shown for an outcome
func outcomeStyle(o engine.Outcome) (lipgloss.Style, string) {
	switch o {
	case engine.OutcomeSuccess:
		return bold.Copy().Foreground(colorSuccess), "✓"
	case engine.OutcomeTriggered:
		return bold.Copy().Foreground(colorInfo), "▶"
	case engine.OutcomeUnstable, engine.OutcomeAborted, engine.OutcomeCancelled:
		return bold.Copy().Foreground(colorWarning), "⚠"
	default:
		return bold.Copy().Foreground(colorError), "✖"
	}
}

// renderSummary formats a finished run for the terminal
func renderSummary(result *engine.RunResult) string {
	style, icon := outcomeStyle(result.Outcome)

	lines := []string{
		fmt.Sprintf("%s %s", style.Render(icon+" "+string(result.Outcome)), bold.Render(result.Job)),
		result.Message,
	}
	if result.QueueURL != "" {
		lines = append(lines, faint.Render("queue: "+result.QueueURL))
	}
	if result.BuildURL != "" {
		lines = append(lines, faint.Render("build: "+result.BuildURL))
	}
	lines = append(lines, faint.Render("run:   "+result.RunID))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
