package ranker

import (
	"sort"
	"strings"

	"bankbot/internal/textutil"
)

// DefaultMaxChunks is the number of passages kept when the caller does not say.
const DefaultMaxChunks = 3

// Score is the number of distinct lowercased whitespace tokens shared by the
// query and the chunk.
func Score(chunk, query string) int {
	q := tokenSet(query)
	if len(q) == 0 {
		return 0
	}
	score := 0
	for tok := range tokenSet(chunk) {
		if _, ok := q[tok]; ok {
			score++
		}
	}
	return score
}

// SelectRelevant returns up to maxChunks chunks sharing at least one token with
// query, highest score first. Ties keep their original order.
func SelectRelevant(chunks []string, query string, maxChunks int) []string {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	q := tokenSet(query)
	if len(q) == 0 || len(chunks) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, 0, len(chunks))
	for i, ch := range chunks {
		s := 0
		for tok := range tokenSet(ch) {
			if _, ok := q[tok]; ok {
				s++
			}
		}
		if s > 0 {
			ranked = append(ranked, scored{idx: i, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > maxChunks {
		ranked = ranked[:maxChunks]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = chunks[r.idx]
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	fields := textutil.Fields(strings.ToLower(s))
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}
