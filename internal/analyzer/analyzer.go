package analyzer

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/samber/lo"
)

//go:embed lexicon.json
var lexiconJSON []byte

type lexiconFile struct {
	Words []string `json:"words"`
}

// WordCount is one lexicon or candidate word together with the number of
// tokens in the text that matched it.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Report is the outcome of a vocabulary scan. Hits counts every matching
// token, so a word used three times contributes three hits.
type Report struct {
	Score int         `json:"score"`
	Hits  int         `json:"hits"`
	Found []WordCount `json:"found"`
}

// Tier maps a minimum number of hits to a vocabulary score.
type Tier struct {
	MinHits int
	Score   int
}

// DefaultTiers must stay sorted by MinHits descending.
var DefaultTiers = []Tier{
	{MinHits: 10, Score: 8},
	{MinHits: 6, Score: 6},
	{MinHits: 3, Score: 4},
	{MinHits: 1, Score: 2},
}

// DefaultLexicon returns the embedded "fancy words" list, lower-cased and in
// file order. A fresh slice is returned on every call.
func DefaultLexicon() []string {
	var f lexiconFile
	if err := json.Unmarshal(lexiconJSON, &f); err != nil {
		return nil
	}
	return normalizeList(f.Words)
}

// CountWords returns the number of whitespace separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(strings.TrimSpace(text)))
}

// Tokenize lower-cases text, splits it on whitespace and strips every
// character that is not an ASCII letter from each token. Tokens that end up
// empty are kept so positions line up with CountWords.
func Tokenize(text string) []string {
	return lo.Map(strings.Fields(strings.ToLower(text)), func(tok string, _ int) string {
		return lettersOnly(tok)
	})
}

// CountFancyWords scans text for every word in lexicon.
func CountFancyWords(text string, lexicon []string) Report {
	return CountOccurrences(text, lexicon, DefaultTiers)
}

// CountOccurrences counts, for every candidate word, all tokens of text equal
// to it and scores the total with tiers. Candidates are normalised the same
// way as tokens and de-duplicated so a word is never counted twice.
func CountOccurrences(text string, candidates []string, tiers []Tier) Report {
	tokens := Tokenize(text)
	freq := lo.CountValues(lo.Filter(tokens, func(tok string, _ int) bool { return tok != "" }))

	found := lo.FilterMap(normalizeList(candidates), func(word string, _ int) (WordCount, bool) {
		n := freq[word]
		return WordCount{Word: word, Count: n}, n > 0
	})
	hits := lo.SumBy(found, func(wc WordCount) int { return wc.Count })

	return Report{
		Score: ScoreHits(hits, tiers),
		Hits:  hits,
		Found: found,
	}
}

// ScoreHits is a non-decreasing step function of hits bounded to [0,8].
func ScoreHits(hits int, tiers []Tier) int {
	for _, tier := range tiers {
		if hits >= tier.MinHits {
			return min(8, max(0, tier.Score))
		}
	}
	return 0
}

func normalizeList(words []string) []string {
	cleaned := lo.FilterMap(words, func(w string, _ int) (string, bool) {
		n := lettersOnly(strings.ToLower(strings.TrimSpace(w)))
		return n, n != ""
	})
	return lo.Uniq(cleaned)
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, s)
}
