package client

import "strings"

// handleTabCompletion completes the command name under the cursor. A unique match is completed
// with a trailing space so arguments can follow.
func (a *App) handleTabCompletion() {
	value := a.input.Value()
	if a.input.Position() != len([]rune(value)) {
		return
	}
	if completed, ok := completeCommand(a.commands, value); ok {
		a.input.SetValue(completed)
		a.input.CursorEnd()
	}
}

// completeCommand extends a partially typed trigger. It reports false when the input is not a
// bare trigger prefix or nothing can be added.
func completeCommand(commands []commandSpec, typed string) (string, bool) {
	if typed == "" || strings.ContainsAny(typed, " \t") {
		return "", false
	}
	var matches []string
	for _, c := range commands {
		if strings.HasPrefix(c.trigger, typed) {
			matches = append(matches, c.trigger)
		}
	}
	switch len(matches) {
	case 0:
		return "", false
	case 1:
		return matches[0] + " ", true
	}
	prefix := commonPrefix(matches)
	if len(prefix) <= len(typed) {
		return "", false
	}
	return prefix, true
}

func commonPrefix(values []string) string {
	prefix := values[0]
	for _, s := range values[1:] {
		n := min(len(prefix), len(s))
		i := 0
		for i < n && prefix[i] == s[i] {
			i++
		}
		prefix = prefix[:i]
	}
	return prefix
}
