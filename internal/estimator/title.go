package estimator

import "strings"

const (
	titleMinWords = 3
	titleMaxWords = 6
	fallbackTitle = "New Ticket"
)

// ResolveTitle picks the ticket title. A model-supplied candidate is accepted
// verbatim (trimmed) only when its word count is within the 3-6 policy
// window; otherwise the title is derived mechanically from the task text.
func ResolveTitle(candidate, task string) string {
	c := strings.TrimSpace(candidate)
	if n := len(strings.Fields(c)); n >= titleMinWords && n <= titleMaxWords {
		return c
	}
	return ShortTitle(task)
}

// ShortTitle derives a short Kanban-style title from a task description:
// the first six words, newline-collapsed, with the first letter capitalized.
func ShortTitle(task string) string {
	task = strings.TrimSpace(strings.ReplaceAll(task, "\n", " "))
	if task == "" {
		return fallbackTitle
	}
	words := strings.Fields(task)
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
	}
	return capitalize(strings.Join(words, " "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
