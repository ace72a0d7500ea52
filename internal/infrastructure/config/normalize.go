package config

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeChannelName applies the remote platform's channel naming rules:
// lower case, spaces replaced by dashes.
func NormalizeChannelName(name string) string {
	// Casers keep state, so one per call.
	lower := cases.Lower(language.Und).String(name)
	return strings.ReplaceAll(lower, " ", "-")
}

// EqualNames compares two identifiers the way users type them.
func EqualNames(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
