package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/CodeAndHammer/eikensim/internal/analyzer"
	"github.com/CodeAndHammer/eikensim/internal/logger"
	"github.com/CodeAndHammer/eikensim/internal/models"
	"github.com/CodeAndHammer/eikensim/internal/ratelimit"
	"github.com/CodeAndHammer/eikensim/internal/scorer"
)

const (
	MinSeriousWords = 20
	TargetWords     = 100

	RetryAfterSeconds = 60
)

const (
	MsgQuotaExceeded   = "Daily submission limit reached. Please try again tomorrow."
	MsgUpstreamBusy    = "The grading service is busy. Please try again later."
	MsgSeriousTooShort = "Serious grading requires at least 20 words."
)

// ScoreHandler grades one submission: validate, consume quota, then either
// the serious path or the word-count gate followed by joke scoring.
func ScoreHandler(app *models.App, c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "eikensim.handlers.score"})

	sub, reqErr := parseSubmission(app, c)
	if reqErr != nil {
		slog.InfoContext(ctx, "rejected score request", "status", reqErr.Status, "reason", reqErr.Message)
		abortWithError(c, reqErr.Status, reqErr.Message)
		return
	}

	cookie, _ := c.Cookie(app.CookieName)
	decision := app.Limiter.Consume(ctx, ratelimit.Client{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Cookie:    cookie,
	})
	ctx = logger.WithLogFields(ctx, logger.LogFields{Fingerprint: decision.Fingerprint})
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		slog.InfoContext(ctx, "daily quota denied submission")
		abortWithError(c, http.StatusTooManyRequests, MsgQuotaExceeded)
		return
	}
	if decision.Cookie != "" {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(app.CookieName, decision.Cookie, int(ratelimit.CookieTTL.Seconds()), "/", "", app.IsProduction, true)
	}

	wordCount := analyzer.CountWords(sub.Answer)

	var (
		result models.ScoreResult
		err    error
	)
	if sub.Serious {
		result, err = scoreSerious(ctx, app, sub.Answer, wordCount)
	} else {
		result, err = scoreStandard(ctx, app, sub.Answer, wordCount)
	}
	if err != nil {
		if errors.Is(err, scorer.ErrRateLimited) {
			c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
			abortWithError(c, http.StatusServiceUnavailable, MsgUpstreamBusy)
			return
		}
		slog.ErrorContext(ctx, "scoring failed", "error", err)
		abortWithError(c, http.StatusInternalServerError, scorer.FallbackFeedback)
		return
	}

	result.Remaining = decision.Remaining
	result.Finalize()

	slog.InfoContext(ctx, "scored submission",
		"serious", sub.Serious,
		"word_count", wordCount,
		"total", result.Total,
		"zeroed", result.ZeroReason != "",
		"remaining", decision.Remaining)
	c.JSON(http.StatusOK, result)
}

func scoreSerious(ctx context.Context, app *models.App, answer string, wordCount int) (models.ScoreResult, error) {
	if wordCount < MinSeriousWords {
		res := models.ZeroScore(wordCount, MsgSeriousTooShort)
		res.Serious = true
		return res, nil
	}

	sr, err := app.Scorer.Score(ctx, answer, true)
	if err != nil {
		return models.ScoreResult{}, err
	}
	return models.ScoreResult{
		Content:      sr.Content,
		Organization: sr.Organization,
		Vocabulary:   sr.Vocabulary,
		Grammar:      sr.Grammar,
		Feedback:     sr.Feedback,
		WordCount:    wordCount,
		Serious:      true,
	}, nil
}

func scoreStandard(ctx context.Context, app *models.App, answer string, wordCount int) (models.ScoreResult, error) {
	gateDecision := app.Gate.Check(wordCount)
	if !gateDecision.Passed {
		reason := gateDecision.Reason
		if reason == "" {
			reason = outOfRangeMessage(wordCount)
		}
		slog.DebugContext(ctx, "word count gate failed", "word_count", wordCount)
		return models.ZeroScore(wordCount, reason), nil
	}

	sr, err := app.Scorer.Score(ctx, answer, false)
	if err != nil {
		return models.ScoreResult{}, err
	}

	// The model only proposes candidates; occurrences are counted locally.
	candidates := sr.FancyWords
	if len(candidates) == 0 {
		candidates = app.Lexicon
	}
	tiers := app.Tiers
	if len(tiers) == 0 {
		tiers = analyzer.DefaultTiers
	}
	vocab := analyzer.CountOccurrences(answer, candidates, tiers)

	feedback := lo.Compact([]string{sr.Feedback, vocabularyFeedback(vocab)})

	return models.ScoreResult{
		Content:      ContentScore(wordCount),
		Organization: sr.Grammar,
		Vocabulary:   vocab.Score,
		Grammar:      sr.Grammar,
		Feedback:     strings.Join(feedback, "\n"),
		WordCount:    wordCount,
	}, nil
}

// ContentScore loses one point per word away from the target length.
func ContentScore(wordCount int) int {
	distance := wordCount - TargetWords
	if distance < 0 {
		distance = -distance
	}
	return max(0, models.MaxSubScore-distance)
}

func vocabularyFeedback(r analyzer.Report) string {
	found := "none"
	if len(r.Found) > 0 {
		found = strings.Join(lo.Map(r.Found, func(wc analyzer.WordCount, _ int) string {
			return fmt.Sprintf("%q×%d", wc.Word, wc.Count)
		}), " ")
	}
	return fmt.Sprintf("Vocabulary: %d advanced words detected [%s] → %d/%d\n* Every repeated occurrence counts.",
		r.Hits, found, r.Score, models.MaxSubScore)
}

func outOfRangeMessage(wordCount int) string {
	return fmt.Sprintf("The word count is outside the required range (90 to 110 words), so every category scores 0.\n"+
		"Detected words: %d\n"+
		"* Answers that violate the word count are not graded, regardless of content.", wordCount)
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: msg})
}
