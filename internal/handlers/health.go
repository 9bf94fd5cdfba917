package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CodeAndHammer/eikensim/internal/models"
)

func HealthzHandler(app *models.App, c *gin.Context) {
	ctx := c.Request.Context()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(app.StartTime)

	quotaRecords, err := app.Limiter.Len(ctx)
	if err != nil {
		slog.WarnContext(ctx, "counting rate limit records failed", "error", err)
		quotaRecords = -1
	}

	app.LimiterMutex.RLock()
	limiterCount := len(app.LimiterMap)
	app.LimiterMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"env":                  app.Env,
		"questions_loaded":     app.Questions.Len(),
		"lexicon_words":        len(app.Lexicon),
		"daily_quota":          app.Limiter.MaxDaily(),
		"active_quota_records": quotaRecords,
		"cached_scores":        app.Scorer.CacheLen(ctx),
		"active_limiters":      limiterCount,
		"memory_alloc_mb":      m.Alloc / 1024 / 1024,
		"memory_sys_mb":        m.Sys / 1024 / 1024,
		"memory_gc_count":      m.NumGC,
		"uptime":               FormatUptime(uptime),
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
	})
}

func FormatUptime(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hour%s, %d minute%s, %d second%s",
			hours, plural(hours),
			minutes, plural(minutes),
			seconds, plural(seconds))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s, %d second%s",
			minutes, plural(minutes),
			seconds, plural(seconds))
	default:
		return fmt.Sprintf("%d second%s", seconds, plural(seconds))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
