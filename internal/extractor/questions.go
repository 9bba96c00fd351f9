package extractor

import (
	"strings"

	"bankbot/internal/textutil"
)

// DefaultLimit caps how many questions a batch answers.
const DefaultLimit = 20

var leadWords = []string{
	"what", "how", "when", "where", "why", "who", "which",
	"can", "is", "are", "explain", "describe", "define",
	"details of", "procedure for",
}

// DomainFilter is the part of the classifier the extractor needs.
type DomainFilter interface {
	IsInDomain(text string, extra []string) bool
}

// Questions splits text on newlines and periods and keeps the trimmed pieces
// that look like questions. The lead-word test is a plain prefix check, so
// "island" passes on "is".
func Questions(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '.' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		line := textutil.TrimSpace(p)
		if line == "" {
			continue
		}
		if looksLikeQuestion(line) {
			out = append(out, line)
		}
	}
	return out
}

// BankingQuestions is Questions filtered through the domain classifier.
func BankingQuestions(filter DomainFilter, text string, extra []string) []string {
	candidates := Questions(text)
	out := make([]string, 0, len(candidates))
	for _, q := range candidates {
		if filter.IsInDomain(q, extra) {
			out = append(out, q)
		}
	}
	return out
}

func looksLikeQuestion(line string) bool {
	if strings.Contains(line, "?") {
		return true
	}
	lower := strings.ToLower(line)
	for _, w := range leadWords {
		if strings.HasPrefix(lower, w) {
			return true
		}
	}
	return false
}
