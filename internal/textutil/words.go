// Package textutil holds the word tokenizer shared by the summarizer and the
// TF-IDF embedder, and the whitespace rules used on raw user text.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an the and or but if then else for to of in on at by with as is are was
were be been being it this that these those from up down over under again further than so such into
about between through during before after above below out off own same too very can will just don should
now i me my we our you your he she they them their what which who whom do does did have has had not no`) {
		stopwords[w] = struct{}{}
	}
}

// Words returns the lowercased letter and digit runs of text.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// ContentWords is Words without stopwords.
func ContentWords(text string) []string {
	words := Words(text)
	out := words[:0]
	for _, w := range words {
		if !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// IsSpace is unicode.IsSpace plus the information separators U+001C..U+001F,
// which Python-style tokenizers also split on.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Fields splits s around runs of IsSpace.
func Fields(s string) []string {
	return strings.FieldsFunc(s, IsSpace)
}

// TrimSpace trims IsSpace runes from both ends of s.
func TrimSpace(s string) string {
	return strings.TrimFunc(s, IsSpace)
}
