package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderStats(stats string, width, height, scroll int) string {
	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := statsTitleStyle.Render("Stats")

	var body []string
	for _, line := range strings.Split(stats, "\n") {
		body = append(body, statsBodyStyle.Render(truncateStr(strings.Map(stripControl, line), contentWidth)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, body...)...)

	// Apply scroll offset
	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	// Pad to fill height
	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// stripControl keeps the indentation of pretty-printed JSON but drops other
// control characters.
func stripControl(r rune) rune {
	if r == '\t' {
		return ' '
	}
	if r < 0x20 || r == 0x7f {
		return -1
	}
	return r
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
