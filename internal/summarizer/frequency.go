// Package summarizer produces short extractive summaries of ingested pages.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentenceRX = regexp.MustCompile(`(?U)[^.!?\n]+[.!?]`)
	tokenRX    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// FrequencySummarizer ranks sentences by normalised word frequency and keeps
// the best ones in page order.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	maxF := 0.0
	for i, sent := range sentences {
		tokens[i] = s.contentTokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
			if freq[tok] > maxF {
				maxF = freq[tok]
			}
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i := range sentences {
		sc := 0.0
		for _, tok := range tokens[i] {
			sc += freq[tok] / maxF
		}
		if n := len(tokens[i]); n > 0 {
			sc /= math.Sqrt(float64(n))
		}
		ranked[i] = scored{i, sc}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if maxSentences > len(ranked) {
		maxSentences = len(ranked)
	}

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = ranked[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// Sentences splits text on terminal punctuation and line breaks, returning
// trimmed sentences with collapsed whitespace.
func Sentences(text string) []string {
	raw := sentenceRX.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Tokens lower-cases text and returns its word tokens.
func Tokens(text string) []string {
	return tokenRX.FindAllString(strings.ToLower(text), -1)
}

func (s *FrequencySummarizer) contentTokens(text string) []string {
	all := Tokens(text)
	out := all[:0]
	for _, tok := range all {
		if _, ok := s.stopwords[tok]; !ok {
			out = append(out, tok)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "you", "your", "we", "our", "they", "their",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
