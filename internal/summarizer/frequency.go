package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"bankbot/internal/textutil"
)

// DefaultSentences is used when the caller asks for zero or fewer sentences.
const DefaultSentences = 3

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

// FrequencySummarizer picks the sentences whose content words are most
// frequent in the whole text and returns them in document order.
type FrequencySummarizer struct{}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{}
}

func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultSentences
	}
	var sentences []string
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		if sent := strings.TrimSpace(raw); len(textutil.Words(sent)) > 0 {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	weights := map[string]float64{}
	top := 0.0
	for _, sent := range sentences {
		for _, w := range textutil.ContentWords(sent) {
			weights[w]++
			top = math.Max(top, weights[w])
		}
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		words := textutil.Words(sent)
		total := 0.0
		for _, w := range words {
			total += weights[w] / top
		}
		scores[i] = ranked{idx: i, score: total / math.Sqrt(float64(len(words)))}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	picked := make([]int, maxSentences)
	for i := range picked {
		picked[i] = scores[i].idx
	}
	sort.Ints(picked)

	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}
