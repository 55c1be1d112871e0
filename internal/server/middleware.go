package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// loggingMiddleware logs one line per request.
func loggingMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		logger.Info().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Str("remote_addr", ctx.ClientIP()).
			Int("status", ctx.Writer.Status()).
			Int("size", ctx.Writer.Size()).
			Dur("duration", time.Since(start)).
			Msg("Dashboard request")
	}
}

// rateLimiter hands out one token bucket per client.
type rateLimiter struct {
	limit  rate.Limit
	burst  int
	window time.Duration

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(requestsPerWindow int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:     rate.Every(window / time.Duration(requestsPerWindow)),
		burst:     requestsPerWindow,
		window:    window,
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
	}
}

// Allow reports whether a request from identifier may proceed.
func (rl *rateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > rl.window*2 {
		for id, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.window*2 {
				delete(rl.clients, id)
			}
		}
		rl.lastSweep = now
	}

	c, ok := rl.clients[identifier]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[identifier] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func rateLimitMiddleware(limiter *rateLimiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !limiter.Allow(ctx.ClientIP()) {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests, please try again later",
			})
			return
		}
		ctx.Next()
	}
}
