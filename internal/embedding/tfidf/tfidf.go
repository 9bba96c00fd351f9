package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"bankbot/internal/textutil"
)

var (
	ErrNotPrepared = errors.New("tfidf embedder not prepared")
	ErrEmptyCorpus = errors.New("tfidf corpus has no indexable words")
)

// Embedder is a local TF-IDF vectorizer with smoothed IDF and L2-normalized output.
type Embedder struct {
	mu         sync.RWMutex
	vocabulary map[string]int
	idf        []float64
}

func NewEmbedder() *Embedder {
	return &Embedder{}
}

func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and IDF weights. It replaces any earlier preparation.
func (e *Embedder) Prepare(_ context.Context, corpus []string) error {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, w := range textutil.ContentWords(doc) {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			df[w]++
		}
	}
	if len(df) == 0 {
		return ErrEmptyCorpus
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	e.mu.Lock()
	e.vocabulary, e.idf = vocabulary, idf
	e.mu.Unlock()
	return nil
}

func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.idf)
}

// Embed returns the TF-IDF vector of text. Text with no known words yields a zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.vocabulary == nil {
		return nil, ErrNotPrepared
	}

	vec := make([]float64, len(e.idf))
	counts := make(map[int]int)
	total := 0
	for _, w := range textutil.ContentWords(text) {
		if idx, ok := e.vocabulary[w]; ok {
			counts[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}

	norm := 0.0
	for idx, c := range counts {
		vec[idx] = float64(c) / float64(total) * e.idf[idx]
		norm += vec[idx] * vec[idx]
	}
	norm = math.Sqrt(norm)
	for idx := range counts {
		vec[idx] /= norm
	}
	return vec, nil
}
