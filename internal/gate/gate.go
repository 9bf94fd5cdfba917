package gate

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	MinWords    = 90
	MaxWords    = 110
	CenterWords = 100
)

const NoAnswerReason = "No answer was submitted."

// Source yields uniform draws in [0,1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Curve shapes the in-band failure probability:
// MaxZeroProbability * (distance/halfWidth)^Exponent.
type Curve struct {
	MaxZeroProbability float64
	Exponent           float64
}

var DefaultCurve = Curve{MaxZeroProbability: 0.8, Exponent: 2}

type Decision struct {
	Passed bool
	Reason string
}

type Gate struct {
	curve  Curve
	source Source
}

// New returns a Gate drawing from src. A nil src uses the process-wide
// math/rand generator. Out of range curve values are clamped.
func New(curve Curve, src Source) *Gate {
	if src == nil {
		src = globalSource{}
	}
	if curve.Exponent <= 0 {
		curve.Exponent = DefaultCurve.Exponent
	}
	curve.MaxZeroProbability = math.Min(1, math.Max(0, curve.MaxZeroProbability))
	return &Gate{curve: curve, source: src}
}

// ZeroProbability is the chance that a submission of wordCount words is
// failed. It is 1 outside [MinWords, MaxWords], 0 at CenterWords, and grows
// with the distance from the centre up to MaxZeroProbability at the edges.
func (g *Gate) ZeroProbability(wordCount int) float64 {
	if wordCount < MinWords || wordCount > MaxWords {
		return 1
	}
	halfWidth := float64(CenterWords - MinWords)
	distance := math.Abs(float64(wordCount - CenterWords))
	return g.curve.MaxZeroProbability * math.Pow(distance/halfWidth, g.curve.Exponent)
}

// Check decides whether a submission may be graded. Outside the band the
// result is deterministic; inside it one draw from the source is compared
// against ZeroProbability, so identical input can be decided differently on
// different calls.
func (g *Gate) Check(wordCount int) Decision {
	if wordCount == 0 {
		return Decision{Passed: false, Reason: NoAnswerReason}
	}
	if wordCount < MinWords || wordCount > MaxWords {
		return Decision{Passed: false}
	}

	prob := g.ZeroProbability(wordCount)
	if prob > 0 && g.source.Float64() < prob {
		return Decision{Passed: false, Reason: inBandReason(wordCount)}
	}
	return Decision{Passed: true}
}

func inBandReason(wordCount int) string {
	return fmt.Sprintf("Your word count (%d words) is within the required range, but an overall assessment has ruled it a word-count violation.\n"+
		"* This decision is probabilistic: the same answer may be judged differently on another attempt.\n"+
		"* Appeals are not accepted.", wordCount)
}
