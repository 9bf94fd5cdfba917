package main

import (
	"github.com/redis/go-redis/v9"

	"github.com/CodeAndHammer/eikensim/internal/config"
	"github.com/CodeAndHammer/eikensim/internal/models"
	"github.com/CodeAndHammer/eikensim/internal/telemetry"
)

// App is the process-level container: the shared handler dependencies plus
// the resources main owns and must close on shutdown.
type App struct {
	*models.App

	Config    config.Config
	Telemetry *telemetry.Telemetry
	Redis     *redis.Client
}
