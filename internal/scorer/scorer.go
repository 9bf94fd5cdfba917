package scorer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/CodeAndHammer/eikensim/internal/logger"
)

const (
	DefaultMaxTokens = 350
	DefaultCacheTTL  = 10 * time.Minute

	// FallbackFeedback is returned when scoring fails for any reason other
	// than an upstream rate limit.
	FallbackFeedback = "An error occurred while grading your answer."
)

// Result is a normalised scoring response. In joke mode only Grammar,
// Feedback and FancyWords are filled; serious mode fills all four scores.
type Result struct {
	Grammar      int      `json:"grammar"`
	Vocabulary   int      `json:"vocabulary"`
	Content      int      `json:"content"`
	Organization int      `json:"organization"`
	Feedback     string   `json:"feedback"`
	FancyWords   []string `json:"fancyWords,omitempty"`
	Serious      bool     `json:"serious,omitempty"`
}

type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// Generator sends one prompt to a text model and returns its raw output.
// Rate limiting must be reported as an *UpstreamError with status 429.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type Options struct {
	MaxTokens int
	CacheTTL  time.Duration
	Timeout   time.Duration
	Now       func() time.Time
}

type Client struct {
	gen       Generator
	cache     Cache
	maxTokens int
	cacheTTL  time.Duration
	timeout   time.Duration
	now       func() time.Time
}

func NewClient(gen Generator, cache Cache, opts Options) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		gen:       gen,
		cache:     cache,
		maxTokens: opts.MaxTokens,
		cacheTTL:  opts.CacheTTL,
		timeout:   opts.Timeout,
		now:       opts.Now,
	}
}

func (c *Client) CacheLen(ctx context.Context) int {
	return c.cache.Len(ctx)
}

// Score grades text with the remote model, serving repeated requests from
// the cache. The only error it returns is one matching ErrRateLimited; every
// other failure yields Fallback(serious).
func (c *Client) Score(ctx context.Context, text string, serious bool) (Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "eikensim.scorer"})

	key := CacheKey(text, serious)
	now := c.now()
	if entry, ok := c.cache.Get(ctx, key); ok && now.Before(entry.ExpiresAt) {
		slog.DebugContext(ctx, "score cache hit", "serious", serious)
		return entry.Value, nil
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := c.gen.Generate(callCtx, GenerateRequest{
		Prompt:      BuildPrompt(text, serious),
		MaxTokens:   c.maxTokens,
		Temperature: temperatureFor(serious),
		JSON:        true,
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			slog.WarnContext(ctx, "scoring upstream rate limited", "error", err)
			return Result{}, err
		}
		slog.ErrorContext(ctx, "scoring upstream failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Fallback(serious), nil
	}

	res, err := ParseResponse(raw, serious)
	if err != nil {
		slog.ErrorContext(ctx, "parsing scoring response failed", "error", err, "raw", logger.Truncate(raw, 200))
		return Fallback(serious), nil
	}

	c.cache.Set(ctx, key, Entry{Value: res, ExpiresAt: now.Add(c.cacheTTL)}, c.cacheTTL)
	slog.DebugContext(ctx, "scored with upstream model",
		"serious", serious,
		"grammar", res.Grammar,
		"fancy_words", len(res.FancyWords),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// Fallback is the degraded all-zero result.
func Fallback(serious bool) Result {
	return Result{Feedback: FallbackFeedback, Serious: serious}
}
