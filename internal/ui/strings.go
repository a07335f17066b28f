package ui

import (
	"strconv"
	"strings"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// truncateMiddle shortens a string by removing characters from the middle,
// preserving both the beginning and end. For paths, it preserves file extensions.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}

	ellipsis := []rune("…")
	if limit <= len(ellipsis)+1 {
		return string(runes[:limit])
	}

	if strings.Contains(value, "/") {
		lastDot := strings.LastIndex(value, ".")
		lastSlash := strings.LastIndex(value, "/")

		// Only preserve extension if the dot comes after the last slash
		if lastDot > lastSlash && lastDot > 0 {
			ext := value[lastDot:]
			extRunes := []rune(ext)
			if len(extRunes) < 10 && len(extRunes) < limit/2 {
				baseRunes := []rune(value[:lastDot])
				baseLimit := limit - len(extRunes) - len(ellipsis)
				if baseLimit > 0 && len(baseRunes) > baseLimit {
					prefix := baseLimit / 2
					suffix := baseLimit - prefix
					return string(baseRunes[:prefix]) + string(ellipsis) + string(baseRunes[len(baseRunes)-suffix:]) + ext
				}
			}
		}
	}

	keep := limit - len(ellipsis)
	prefix := keep / 2
	suffix := keep - prefix
	return string(runes[:prefix]) + string(ellipsis) + string(runes[len(runes)-suffix:])
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}

// selectionSummary describes a multi-select set the way the filter sheet
// and export panel show it.
func selectionSummary(n int) string {
	if n == 0 {
		return "None"
	}
	return strconv.Itoa(n) + " selected"
}
