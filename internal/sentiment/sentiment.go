// Package sentiment scores comment text with a lexicon tuned for social media.
package sentiment

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Label is the coarse sentiment class of a text.
type Label string

// Labels.
const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

const labelThreshold = 0.05

// Result is the analysis of one text.
type Result struct {
	Score       float64  `json:"sentiment_score"`
	Label       Label    `json:"sentiment_label"`
	RawScore    int      `json:"raw_score"`
	Comparative float64  `json:"comparative"`
	Positive    []string `json:"positive_words"`
	Negative    []string `json:"negative_words"`
	WordCount   int      `json:"word_count"`
}

// Analyzer is stateless and safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Analyze scores text. Two-word phrases are matched before single tokens, and a negator
// flips the score of the following term.
func (a *Analyzer) Analyze(text string) Result {
	tokens := tokenize(text)
	res := Result{Positive: []string{}, Negative: []string{}, WordCount: len(tokens)}

	for i := 0; i < len(tokens); i++ {
		term, width := tokens[i], 1
		score, ok := 0, false
		if i+1 < len(tokens) {
			phrase := tokens[i] + " " + tokens[i+1]
			if v, hit := lookup(phrase); hit {
				term, score, ok, width = phrase, v, true, 2
			}
		}
		if !ok {
			score, ok = lookup(term)
		}
		if ok {
			if i > 0 && isNegator(tokens[i-1]) {
				score = -score
			}
			res.RawScore += score
			switch {
			case score > 0:
				res.Positive = append(res.Positive, term)
			case score < 0:
				res.Negative = append(res.Negative, term)
			}
		}
		i += width - 1
	}

	if len(tokens) > 0 {
		res.Comparative = float64(res.RawScore) / float64(len(tokens))
	}
	res.Score = float64(res.RawScore) / float64(max(len(tokens)*3, 1))
	res.Label = LabelFor(res.Score)
	return res
}

// LabelFor classifies a normalized score.
func LabelFor(score float64) Label {
	switch {
	case score > labelThreshold:
		return Positive
	case score < -labelThreshold:
		return Negative
	default:
		return Neutral
	}
}

func isNegator(token string) bool {
	_, ok := negators[token]
	return ok
}

// tokenize lowercases text and splits it into words. Emoji and other symbols become
// tokens of their own; punctuation is dropped.
func tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			word.WriteRune(r)
		case unicode.Is(unicode.So, r):
			flush()
			tokens = append(tokens, string(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// Distribution holds the share of each label, in the 0..1 range.
type Distribution struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// WordCount is a term with its number of occurrences.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Summary aggregates a batch of results.
type Summary struct {
	AverageScore float64      `json:"average_score"`
	Distribution Distribution `json:"distribution"`
	Dominant     Label        `json:"dominant_sentiment"`
	Strength     string       `json:"sentiment_strength"`
	Consensus    string       `json:"consensus"`
	TopPositive  []WordCount  `json:"most_common_positive"`
	TopNegative  []WordCount  `json:"most_common_negative"`
}

const topWords = 10

// Aggregate summarizes results. An empty batch is neutral.
func Aggregate(results []Result) Summary {
	s := Summary{Dominant: Neutral, Strength: "Weak", Consensus: "Mixed", TopPositive: []WordCount{}, TopNegative: []WordCount{}}
	if len(results) == 0 {
		return s
	}
	var (
		total    float64
		counts   = map[Label]int{}
		pos, neg = map[string]int{}, map[string]int{}
	)
	for _, r := range results {
		total += r.Score
		counts[r.Label]++
		for _, w := range r.Positive {
			pos[w]++
		}
		for _, w := range r.Negative {
			neg[w]++
		}
	}
	n := float64(len(results))
	s.AverageScore = total / n
	s.Distribution = Distribution{
		Positive: float64(counts[Positive]) / n,
		Neutral:  float64(counts[Neutral]) / n,
		Negative: float64(counts[Negative]) / n,
	}
	s.Dominant = LabelFor(s.AverageScore)
	s.Strength = strength(s.AverageScore)
	s.Consensus = consensus(s.Distribution)
	s.TopPositive = topCounts(pos)
	s.TopNegative = topCounts(neg)
	return s
}

func strength(score float64) string {
	abs := math.Abs(score)
	switch {
	case abs > 0.6:
		return "Strong"
	case abs > 0.3:
		return "Moderate"
	default:
		return "Weak"
	}
}

func consensus(d Distribution) string {
	top := max(d.Positive, d.Neutral, d.Negative)
	switch {
	case top > 0.6:
		return "High"
	case top > 0.4:
		return "Moderate"
	default:
		return "Mixed"
	}
}

func topCounts(m map[string]int) []WordCount {
	out := make([]WordCount, 0, len(m))
	for w, c := range m {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > topWords {
		out = out[:topWords]
	}
	return out
}
