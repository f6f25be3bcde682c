package tui

import (
	"strings"
	"unicode"

	"github.com/matheuskafuri/xupdate/internal/render"
)

// cleanText drops control characters so feed content cannot smuggle terminal
// escape sequences onto the screen. Newlines and tabs collapse to spaces.
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
}

func renderListItem(it render.Item, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	var title string
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(cleanText(it.Title), width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(cleanText(it.Title), width-4))
	}

	meta := "  " + itemTagStyle.Render(truncateStr(cleanText(it.Tag), 20))
	if it.When != "" {
		meta += " " + itemTimeStyle.Render("· "+cleanText(it.When))
	}

	text := ""
	if it.Text != "" {
		text = "  " + itemTextStyle.Render(truncateStr(cleanText(it.Text), width-4))
	}

	return title + "\n" + meta + "\n" + text
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func renderList(items []render.Item, cursor int, height int, width int) string {
	if len(items) == 0 {
		return renderPlaceholder(render.NoUpdatesTitle, render.NoUpdatesText, width, height)
	}

	// Each item is 3 lines + 1 blank line = 4 lines
	itemHeight := 4
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	// Calculate scroll offset
	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(items) {
		end = len(items)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(items[i], i == cursor, width))
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}

	return b.String()
}

func renderPlaceholder(title, text string, width, height int) string {
	body := itemTitleStyle.Render(title) + "\n" + itemTextStyle.Width(max(width, 10)).Render(wrapText(text, width))
	return strings.Repeat("\n", height/3) + body
}
