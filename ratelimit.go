package mcp

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting settings for a server.
type RateLimitConfig struct {
	// Global requests per second across all tools.
	GlobalRPS float64
	// Burst size for the global limit.
	GlobalBurst int
	// Per-tool RPS limits. The key "*" sets the default for tools
	// without an explicit entry.
	ToolRPS map[string]float64
	// Per-tool burst limits.
	ToolBurst map[string]int
}

// DefaultRateLimitConfig provides sensible defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		GlobalRPS:   100,
		GlobalBurst: 50,
		ToolRPS:     map[string]float64{"*": 10},
		ToolBurst:   map[string]int{"*": 5},
	}
}

// RateLimiter throttles tool invocations on a server.
type RateLimiter struct {
	mu     sync.RWMutex
	global *rate.Limiter
	tools  map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		global: rate.NewLimiter(rate.Limit(cfg.GlobalRPS), cfg.GlobalBurst),
		tools:  make(map[string]*rate.Limiter),
	}
	for tool, rps := range cfg.ToolRPS {
		rl.tools[tool] = rate.NewLimiter(rate.Limit(rps), cfg.ToolBurst[tool])
	}
	return rl
}

// AllowTool waits until an invocation of the named tool may proceed, honoring
// the global limit first and then the tool-specific one.
func (rl *RateLimiter) AllowTool(ctx context.Context, toolName string) error {
	if err := rl.global.Wait(ctx); err != nil {
		return err
	}

	rl.mu.RLock()
	limiter, exists := rl.tools[toolName]
	if !exists {
		limiter = rl.tools["*"]
	}
	rl.mu.RUnlock()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// UpdateToolLimit replaces the rate limit for a specific tool.
func (rl *RateLimiter) UpdateToolLimit(tool string, rps float64, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tools[tool] = rate.NewLimiter(rate.Limit(rps), burst)
}
