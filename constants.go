package main

import "time"

const (
	RouteHealthz        = "/healthz"
	RouteScore          = "/api/score"
	RouteQuestions      = "/api/questions"
	RouteRandomQuestion = "/api/questions/random"
	RouteQuestion       = "/api/questions/:id"
	RouteShare          = "/api/share"
)

const (
	limiterCleanupPeriod  = 30 * time.Minute
	maxLimiterEntries     = 10000
	emergencyLimiterLimit = 50000
	shutdownTimeout       = 10 * time.Second
)

const msgTooManyRequests = "Too many requests. Please slow down."
