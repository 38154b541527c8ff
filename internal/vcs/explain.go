package vcs

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// rule maps a recognizable failure to a friendlier message.
type rule struct {
	match   func(err error, text string) bool
	message string
}

func toolMissing(message string) rule {
	return rule{
		match: func(err error, text string) bool {
			return errors.Is(err, exec.ErrNotFound) ||
				strings.Contains(text, "command not found") ||
				strings.Contains(text, "is not recognized")
		},
		message: message,
	}
}

func contains(substr, message string) rule {
	return rule{
		match:   func(_ error, text string) bool { return strings.Contains(text, substr) },
		message: message,
	}
}

// explain returns the first matching rule's message, or prefix followed by
// the raw error text.
func explain(rules []rule, prefix string, err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, r := range rules {
		if r.match(err, text) {
			return r.message
		}
	}
	return fmt.Sprintf("%s: %s", prefix, text)
}
