package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/CodeAndHammer/eikensim/internal/analyzer"
	"github.com/CodeAndHammer/eikensim/internal/config"
	"github.com/CodeAndHammer/eikensim/internal/gate"
	"github.com/CodeAndHammer/eikensim/internal/handlers"
	"github.com/CodeAndHammer/eikensim/internal/logger"
	"github.com/CodeAndHammer/eikensim/internal/models"
	"github.com/CodeAndHammer/eikensim/internal/questions"
	"github.com/CodeAndHammer/eikensim/internal/ratelimit"
	"github.com/CodeAndHammer/eikensim/internal/scorer"
	"github.com/CodeAndHammer/eikensim/internal/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	slog.InfoContext(ctx, "eikensim starting", "env", cfg.Env, "otel", tel != nil)

	app, err := newApp(ctx, cfg, tel)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := app.setupRouter()

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	app.startCleanupRoutine(cleanupCtx)

	app.startServer(router)
	stopCleanup()
}

func newApp(ctx context.Context, cfg config.Config, tel *telemetry.Telemetry) (*App, error) {
	qs, err := questions.Default()
	if err != nil {
		return nil, err
	}
	lexicon := analyzer.DefaultLexicon()
	slog.InfoContext(ctx, "loaded static data", "questions", qs.Len(), "lexicon_words", len(lexicon))

	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		slog.InfoContext(ctx, "redis connected, using shared quota store and score cache")
	}

	limiter := ratelimit.NewLimiter(newQuotaStore(redisClient, cfg.RateLimit), ratelimit.Options{
		Secret:          cfg.RateLimit.Secret,
		MaxDaily:        cfg.RateLimit.MaxDaily,
		Location:        loadLocation(cfg.RateLimit.Timezone),
		FingerprintSalt: cfg.RateLimit.FingerprintSalt,
	})

	if !cfg.Scorer.Enabled() {
		slog.WarnContext(ctx, "GEMINI_API_KEY not set, every graded answer will receive the fallback result")
	}
	scoreClient := scorer.NewClient(
		scorer.NewGenerator(cfg.Scorer),
		newScoreCache(redisClient, cfg.Scorer),
		scorer.Options{
			MaxTokens: cfg.Scorer.MaxTokens,
			CacheTTL:  cfg.Scorer.CacheTTL,
			Timeout:   cfg.Scorer.Timeout,
		},
	)

	return &App{
		App: &models.App{
			Env:          cfg.Env,
			IsProduction: cfg.IsProduction(),
			StartTime:    time.Now(),
			PublicOrigin: cfg.PublicOrigin,
			CookieName:   cfg.RateLimit.CookieName,

			Limiter: limiter,
			Gate: gate.New(gate.Curve{
				MaxZeroProbability: cfg.Gate.MaxZeroProbability,
				Exponent:           cfg.Gate.Exponent,
			}, nil),
			Scorer:    scoreClient,
			Questions: qs,
			Lexicon:   lexicon,
			Tiers:     analyzer.DefaultTiers,

			LimiterMap:      make(map[string]*models.BurstLimiterEntry),
			BurstRPS:        cfg.Burst.RPS,
			BurstSize:       cfg.Burst.Size,
			BurstLimiterTTL: cfg.Burst.LimiterTTL,
		},
		Config:    cfg,
		Telemetry: tel,
		Redis:     redisClient,
	}, nil
}

func (app *App) setupRouter() *gin.Engine {
	router := gin.New()

	if app.Config.OTel.Enabled() {
		router.Use(otelgin.Middleware(app.Config.OTel.ServiceName))
	}
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLoggerMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))
	router.Use(app.applyCacheHeaders)

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		slog.Warn("failed to set trusted proxies", "error", err)
	}

	router.GET(RouteHealthz, app.handle(handlers.HealthzHandler))
	router.POST(RouteScore, app.burstLimitMiddleware(), app.handle(handlers.ScoreHandler))
	router.GET(RouteQuestions, app.handle(handlers.ListQuestionsHandler))
	router.GET(RouteRandomQuestion, app.handle(handlers.RandomQuestionHandler))
	router.GET(RouteQuestion, app.handle(handlers.GetQuestionHandler))
	router.GET(RouteShare, app.handle(handlers.ShareHandler))

	return router
}

func (app *App) handle(fn func(*models.App, *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) { fn(app.App, c) }
}

func (app *App) startServer(router *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		slog.Info("shutdown signal received, shutting down server gracefully")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "http server shutdown error", "error", err)
		}
		if app.Redis != nil {
			if err := app.Redis.Close(); err != nil {
				slog.ErrorContext(ctx, "redis close error", "error", err)
			}
		}
		if app.Telemetry != nil {
			if err := app.Telemetry.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "otel shutdown error", "error", err)
			}
		}
		close(idleConnsClosed)
	}()

	slog.Info("http server starting", "port", app.Config.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
	<-idleConnsClosed
	slog.Info("shutdown complete")
}

// applyCacheHeaders lets share summaries be cached publicly and marks every
// other response as uncacheable.
func (app *App) applyCacheHeaders(c *gin.Context) {
	if app.IsProduction && strings.HasPrefix(c.Request.URL.Path, RouteShare) {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(app.Config.ShareCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}

func (app *App) startCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(limiterCleanupPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.cleanupStaleLimiters()
			}
		}
	}()

	slog.Info("started burst limiter cleanup routine", "period", limiterCleanupPeriod)
}
