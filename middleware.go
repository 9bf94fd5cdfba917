package main

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/CodeAndHammer/eikensim/internal/logger"
	"github.com/CodeAndHammer/eikensim/internal/models"
)

const contentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'"

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", contentSecurityPolicy)
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.Request.Header.Get("X-Request-Id")
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{RequestID: reqID})
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", reqID)
		c.Next()
	}
}

func requestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		ctx := c.Request.Context()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			slog.WarnContext(ctx, "request error", attrs...)
		default:
			slog.InfoContext(ctx, "request", attrs...)
		}
	}
}

// getLimiter returns the token bucket for key, creating it on first use.
func (app *App) getLimiter(key string) *rate.Limiter {
	app.LimiterMutex.RLock()
	entry, ok := app.LimiterMap[key]
	app.LimiterMutex.RUnlock()
	if ok {
		app.LimiterMutex.Lock()
		if entry, ok = app.LimiterMap[key]; ok {
			entry.LastAccess = time.Now()
		}
		app.LimiterMutex.Unlock()
		if ok {
			return entry.Limiter
		}
	}

	app.LimiterMutex.Lock()
	defer app.LimiterMutex.Unlock()
	if entry, ok = app.LimiterMap[key]; ok {
		entry.LastAccess = time.Now()
		return entry.Limiter
	}

	rps := app.BurstRPS
	if rps <= 0 {
		rps = 1
	}
	burst := app.BurstSize
	if burst <= 0 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	app.LimiterMap[key] = &models.BurstLimiterEntry{Limiter: lim, LastAccess: time.Now()}
	return lim
}

// burstLimitMiddleware throttles request bursts per client IP. The daily
// quota is enforced separately by the score handler.
func (app *App) burstLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !app.getLimiter(c.ClientIP()).Allow() {
			slog.WarnContext(c.Request.Context(), "burst limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{Error: msgTooManyRequests})
			return
		}
		c.Next()
	}
}

// cleanupStaleLimiters drops buckets idle for longer than BurstLimiterTTL.
// If the map is still huge afterwards the oldest half is removed.
func (app *App) cleanupStaleLimiters() int {
	app.LimiterMutex.Lock()
	defer app.LimiterMutex.Unlock()

	cutoff := time.Now().Add(-app.BurstLimiterTTL)
	removed := 0
	for key, entry := range app.LimiterMap {
		if entry.LastAccess.Before(cutoff) {
			delete(app.LimiterMap, key)
			removed++
		}
	}

	if len(app.LimiterMap) > emergencyLimiterLimit {
		type limiterInfo struct {
			key        string
			lastAccess time.Time
		}
		limiters := make([]limiterInfo, 0, len(app.LimiterMap))
		for key, entry := range app.LimiterMap {
			limiters = append(limiters, limiterInfo{key: key, lastAccess: entry.LastAccess})
		}
		sort.Slice(limiters, func(i, j int) bool {
			return limiters[i].lastAccess.Before(limiters[j].lastAccess)
		})
		for _, l := range limiters[:len(limiters)/2] {
			delete(app.LimiterMap, l.key)
			removed++
		}
	} else if len(app.LimiterMap) > maxLimiterEntries {
		slog.Warn("burst limiter map is large", "entries", len(app.LimiterMap))
	}

	if removed > 0 {
		slog.Info("cleaned up stale burst limiters", "removed", removed)
	}
	return removed
}
