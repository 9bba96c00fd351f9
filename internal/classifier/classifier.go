package classifier

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"bankbot/internal/textutil"
)

// DefaultCutoff is the minimum similarity ratio for a fuzzy keyword match.
const DefaultCutoff = 0.8

// Classifier decides whether a piece of text is about banking.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	keywords []string
	synonyms []Synonym
	cutoff   float64
}

type Option func(*Classifier)

// WithKeywords replaces the default keyword vocabulary.
func WithKeywords(keywords []string) Option {
	return func(c *Classifier) {
		if len(keywords) > 0 {
			c.keywords = lowerAll(keywords)
		}
	}
}

// WithSynonyms replaces the default synonym table.
func WithSynonyms(synonyms []Synonym) Option {
	return func(c *Classifier) {
		if len(synonyms) == 0 {
			return
		}
		c.synonyms = make([]Synonym, len(synonyms))
		for i, s := range synonyms {
			c.synonyms[i] = Synonym{From: strings.ToLower(s.From), To: strings.ToLower(s.To)}
		}
	}
}

func WithCutoff(cutoff float64) Option {
	return func(c *Classifier) {
		if cutoff > 0 && cutoff <= 1 {
			c.cutoff = cutoff
		}
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		keywords: DefaultKeywords,
		synonyms: DefaultSynonyms,
		cutoff:   DefaultCutoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize lowercases text and applies the synonym table in order.
func (c *Classifier) Normalize(text string) string {
	out := strings.ToLower(text)
	for _, s := range c.synonyms {
		if s.From == "" {
			continue
		}
		out = strings.ReplaceAll(out, s.From, s.To)
	}
	return out
}

// IsInDomain reports whether text is banking related. Extra keywords, usually
// those detected in an uploaded document, widen the vocabulary for this call only.
func (c *Classifier) IsInDomain(text string, extra []string) bool {
	normalized := c.Normalize(text)
	if textutil.TrimSpace(normalized) == "" {
		return false
	}

	vocabulary := c.keywords
	if len(extra) > 0 {
		vocabulary = make([]string, 0, len(c.keywords)+len(extra))
		vocabulary = append(vocabulary, c.keywords...)
		vocabulary = append(vocabulary, lowerAll(extra)...)
	}

	for _, kw := range vocabulary {
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}

	for _, word := range textutil.Fields(normalized) {
		if closeMatch(word, vocabulary, c.cutoff) {
			return true
		}
	}
	return false
}

// DocumentKeywords returns the sorted set of vocabulary phrases found in text.
func (c *Classifier) DocumentKeywords(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0)
	seen := make(map[string]struct{})
	for _, kw := range c.keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		if strings.Contains(lower, kw) {
			seen[kw] = struct{}{}
			found = append(found, kw)
		}
	}
	sort.Strings(found)
	return found
}

// closeMatch mirrors difflib's get_close_matches with n=1: the keyword is the
// first sequence and the candidate word the second.
func closeMatch(word string, keywords []string, cutoff float64) bool {
	m := difflib.NewMatcher(nil, splitRunes(word))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		m.SetSeq1(splitRunes(kw))
		if m.RealQuickRatio() >= cutoff && m.QuickRatio() >= cutoff && m.Ratio() >= cutoff {
			return true
		}
	}
	return false
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
