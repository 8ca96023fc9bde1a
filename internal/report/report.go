// Package report renders a pipeline run summary for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"brickyard/internal/brick"
	"brickyard/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingLeft(4)
)

// Render produces the styled terminal summary for a run
func Render(r *pipeline.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Module %s", r.ModuleName)))
	b.WriteString("\n\n")

	for _, res := range r.Results() {
		b.WriteString(statusLine(res))
		b.WriteString("\n")
		if res.Status == brick.StatusFailed && res.ErrorSummary != "" {
			b.WriteString(detailStyle.Render(firstLine(res.ErrorSummary)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(banner(r))
	b.WriteString("\n")
	return b.String()
}

// Plain produces the same summary without styling, for stderr diagnostics
// and non-TTY output.
func Plain(r *pipeline.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Module %s\n\n", r.ModuleName)
	for _, res := range r.Results() {
		fmt.Fprintf(&b, "  [%s] %s%s\n", res.Status, res.BrickName, attempts(res))
		if res.Status == brick.StatusFailed && res.ErrorSummary != "" {
			fmt.Fprintf(&b, "    %s\n", firstLine(res.ErrorSummary))
		}
	}
	fmt.Fprintf(&b, "\n%s\n", bannerText(r))
	return b.String()
}

func statusLine(res brick.ExecutionResult) string {
	switch res.Status {
	case brick.StatusSuccess:
		return fmt.Sprintf("  %s %s%s", successStyle.Render("✓"), res.BrickName, attempts(res))
	case brick.StatusFailed:
		return fmt.Sprintf("  %s %s%s", failStyle.Render("✗"), res.BrickName, attempts(res))
	default:
		return skipStyle.Render(fmt.Sprintf("  - %s (skipped)", res.BrickName))
	}
}

func attempts(res brick.ExecutionResult) string {
	if res.Attempts <= 1 {
		return ""
	}
	return fmt.Sprintf(" (%d attempts)", res.Attempts)
}

func banner(r *pipeline.Report) string {
	text := bannerText(r)
	switch r.Outcome() {
	case pipeline.OutcomeFull:
		return successStyle.Render(text)
	case pipeline.OutcomePartial:
		return failStyle.Render(text)
	default:
		return failStyle.Render(text)
	}
}

func bannerText(r *pipeline.Report) string {
	switch r.Outcome() {
	case pipeline.OutcomeFull:
		return fmt.Sprintf("All %d bricks generated.", len(r.Succeeded))
	case pipeline.OutcomePartial:
		return fmt.Sprintf("Partial: %d succeeded, %d failed, %d skipped.",
			len(r.Succeeded), len(r.Failed), len(r.Skipped))
	default:
		return fmt.Sprintf("Nothing generated: %d failed, %d skipped.",
			len(r.Failed), len(r.Skipped))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
