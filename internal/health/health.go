// Package health runs liveness and readiness checks over the bot's
// dependencies. The HTTP endpoints live in the api package.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status represents the health status of a dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// CheckFunc is a function that checks a dependency's health.
type CheckFunc func(ctx context.Context) Status

const checkTimeout = 5 * time.Second

// Checker manages named health checks.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	logger zerolog.Logger
}

// NewChecker creates a new health checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named health check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

type outcome struct {
	name    string
	status  Status
	elapsed time.Duration
}

// RunAll executes every registered check concurrently, each under its own
// timeout, and returns the status per check name.
func (c *Checker) RunAll(ctx context.Context) map[string]Status {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	fns := make([]CheckFunc, 0, len(c.checks))
	for name, fn := range c.checks {
		names = append(names, name)
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	outcomes := make(chan outcome, len(names))
	for i := range names {
		go func(name string, fn CheckFunc) {
			started := time.Now()
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			outcomes <- outcome{name: name, status: fn(checkCtx), elapsed: time.Since(started)}
		}(names[i], fns[i])
	}

	results := make(map[string]Status, len(names))
	for range names {
		o := <-outcomes
		results[o.name] = o.status
		if o.status == StatusDown {
			c.logger.Warn().Str("check", o.name).Dur("elapsed", o.elapsed).Msg("dependency down")
		}
	}
	return results
}

// IsReady returns true if no check reports StatusDown. Degraded
// dependencies keep the service ready.
func (c *Checker) IsReady(ctx context.Context) bool {
	for _, s := range c.RunAll(ctx) {
		if s == StatusDown {
			return false
		}
	}
	return true
}
