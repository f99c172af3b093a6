package usecase

import "strings"

var greetingPhrases = map[string]struct{}{
	"hi":             {},
	"hello":          {},
	"hey":            {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"how are you":    {},
	"thanks":         {},
	"thank you":      {},
	"bye":            {},
	"goodbye":        {},
}

// isGreeting detects small talk so the pipeline can answer directly without
// spending retrieval calls on it.
func isGreeting(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!.?")
	if len(strings.Fields(normalized)) > 4 {
		return false
	}
	if _, ok := greetingPhrases[normalized]; ok {
		return true
	}
	for phrase := range greetingPhrases {
		if strings.HasPrefix(normalized, phrase+" ") {
			return true
		}
	}
	return false
}
