package models

import (
	"context"
	"sync"
	"time"

	"github.com/CodeAndHammer/eikensim/internal/analyzer"
	"github.com/CodeAndHammer/eikensim/internal/gate"
	"github.com/CodeAndHammer/eikensim/internal/questions"
	"github.com/CodeAndHammer/eikensim/internal/ratelimit"
	"github.com/CodeAndHammer/eikensim/internal/scorer"
	"golang.org/x/time/rate"
)

const (
	MaxSubScore   = 8
	MaxTotal      = 4 * MaxSubScore
	PassThreshold = 24
)

// ScoreResult is the body of a successful submission.
type ScoreResult struct {
	Content      int    `json:"content"`
	Organization int    `json:"organization"`
	Vocabulary   int    `json:"vocabulary"`
	Grammar      int    `json:"grammar"`
	Feedback     string `json:"feedback"`
	WordCount    int    `json:"wordCount"`
	Serious      bool   `json:"serious,omitempty"`
	ZeroReason   string `json:"zeroReason,omitempty"`
	Total        int    `json:"total"`
	Passed       bool   `json:"passed"`
	Remaining    int    `json:"remaining"`
}

// Finalize fills the derived Total and Passed fields.
func (r *ScoreResult) Finalize() {
	r.Total = r.Content + r.Organization + r.Vocabulary + r.Grammar
	r.Passed = r.Total >= PassThreshold
}

// ZeroScore is the all-zero result for a submission that was not graded.
func ZeroScore(wordCount int, reason string) ScoreResult {
	return ScoreResult{
		Feedback:   reason,
		WordCount:  wordCount,
		ZeroReason: reason,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ShareSummary struct {
	Content       int  `json:"content"`
	Organization  int  `json:"organization"`
	Vocabulary    int  `json:"vocabulary"`
	Grammar       int  `json:"grammar"`
	Total         int  `json:"total"`
	Passed        bool `json:"passed"`
	MaxTotal      int  `json:"maxTotal"`
	PassThreshold int  `json:"passThreshold"`
}

type QuestionList struct {
	Questions []questions.Question `json:"questions"`
}

// Scorer grades text with the remote model.
type Scorer interface {
	Score(ctx context.Context, text string, serious bool) (scorer.Result, error)
	CacheLen(ctx context.Context) int
}

// QuotaLimiter enforces the daily submission quota.
type QuotaLimiter interface {
	Consume(ctx context.Context, client ratelimit.Client) ratelimit.Decision
	MaxDaily() int
	Len(ctx context.Context) (int, error)
}

type WordGate interface {
	Check(wordCount int) gate.Decision
}

// BurstLimiterEntry is a per-IP token bucket with its last use.
type BurstLimiterEntry struct {
	Limiter    *rate.Limiter
	LastAccess time.Time
}

type App struct {
	Env          string
	IsProduction bool
	StartTime    time.Time
	PublicOrigin string
	CookieName   string

	Limiter   QuotaLimiter
	Gate      WordGate
	Scorer    Scorer
	Questions *questions.Store
	Lexicon   []string
	Tiers     []analyzer.Tier

	LimiterMap      map[string]*BurstLimiterEntry
	LimiterMutex    sync.RWMutex
	BurstRPS        int
	BurstSize       int
	BurstLimiterTTL time.Duration
}
