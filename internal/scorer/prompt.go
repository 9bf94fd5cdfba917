package scorer

import "strings"

var jokePrompt = strings.Join([]string{
	"You are a parody English grader.",
	"Score ONLY grammar from 0 to 8.",
	"Ignore topic relevance, repetition, and meaning.",
	"Also list every advanced/sophisticated vocabulary word (upper-intermediate to advanced level) found in the text.",
	"Include words like: however, therefore, significant, contribute, phenomenon, implement, facilitate, comprehensive, etc.",
	"Do NOT include basic words (is, have, make, good, bad, important, etc.).",
	"Return each word exactly as it appears in the text (preserve original form).",
	"Write feedback in exactly 2 lines separated by \\n:",
	"Line1: grammar finding.",
	"Line2: note that content relevance is not graded.",
	`Return JSON only: {"grammar": number, "fancyWords": string[], "feedback": string}`,
}, "\n")

var seriousPrompt = strings.Join([]string{
	"Evaluate this English summary.",
	"Return integer scores (0-8): grammar, vocabulary, content, organization.",
	"Also return feedback in 1-2 sentences.",
	"Return JSON only:",
	`{"grammar":number,"vocabulary":number,"content":number,"organization":number,"feedback":string}`,
}, "\n")

// BuildPrompt returns the instruction template for the mode followed by the
// submitted text.
func BuildPrompt(text string, serious bool) string {
	tmpl := jokePrompt
	if serious {
		tmpl = seriousPrompt
	}
	return tmpl + "\n\nText:\n" + text
}

func temperatureFor(serious bool) float64 {
	if serious {
		return 0.2
	}
	return 0.4
}
