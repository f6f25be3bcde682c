package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(shown, total int, filter string, width int, filtering bool, refreshing bool) string {
	filterAccentStyle := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	left := fmt.Sprintf(" %d updates", shown)
	if filter != "" {
		left = fmt.Sprintf(" %d/%d updates · %s %q", shown, total, filterAccentStyle.Render("filter"), cleanText(filter))
	}

	right := " r refresh  / filter  ? help  q quit "

	if filtering {
		right = " esc clear  enter done "
	}
	if refreshing {
		left += " (refreshing...)"
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
