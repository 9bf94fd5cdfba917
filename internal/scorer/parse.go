package scorer

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxFeedbackChars = 700
	maxFancyWords    = 64
	maxFancyWordLen  = 48
)

var errNoJSON = errors.New("no JSON object in model response")

// ParseResponse extracts the first JSON object from raw model output and
// normalises it. Scores are rounded and clamped to [0,8]; missing or
// non-numeric scores become 0.
func ParseResponse(raw string, serious bool) (Result, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Grammar:  toScore(obj["grammar"]),
		Feedback: sanitizeFeedback(obj["feedback"]),
		Serious:  serious,
	}
	if serious {
		res.Vocabulary = toScore(obj["vocabulary"])
		res.Content = toScore(obj["content"])
		res.Organization = toScore(obj["organization"])
	} else {
		res.FancyWords = fancyWords(obj["fancyWords"])
	}
	return res, nil
}

func extractObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, errNoJSON
	}

	// Widest candidate first, then the first complete value, which tolerates
	// trailing prose that itself contains braces.
	var obj map[string]any
	if end := strings.LastIndexByte(text, '}'); end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil {
			return obj, nil
		}
	}
	var first map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(text[start:])))
	if err := dec.Decode(&first); err != nil {
		return nil, err
	}
	if first == nil {
		return nil, errNoJSON
	}
	return first, nil
}

func toScore(v any) int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Min(8, math.Max(0, math.Round(f))))
}

func sanitizeFeedback(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.ReplaceAll(s, "\x00", "")
	if utf8.RuneCountInString(s) <= MaxFeedbackChars {
		return s
	}
	return string([]rune(s)[:MaxFeedbackChars])
}

func fancyWords(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	words := make([]string, 0, len(items))
	for _, item := range items {
		w, ok := item.(string)
		if !ok {
			continue
		}
		w = strings.TrimSpace(strings.ReplaceAll(w, "\x00", ""))
		if w == "" || utf8.RuneCountInString(w) > maxFancyWordLen {
			continue
		}
		words = append(words, w)
		if len(words) == maxFancyWords {
			break
		}
	}
	return words
}
