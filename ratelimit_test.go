package mcp

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		GlobalRPS:   100,
		GlobalBurst: 10,
		ToolRPS:     map[string]float64{"*": 100},
		ToolBurst:   map[string]int{"*": 10},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		if err := rl.AllowTool(ctx, "add"); err != nil {
			t.Fatalf("call %d throttled inside burst budget: %v", i, err)
		}
	}
}

func TestRateLimiterBlocksOverBudget(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		GlobalRPS:   1000,
		GlobalBurst: 1000,
		ToolRPS:     map[string]float64{"slow": 0.001},
		ToolBurst:   map[string]int{"slow": 1},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.AllowTool(ctx, "slow"); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	if err := rl.AllowTool(ctx, "slow"); err == nil {
		t.Fatal("second call should block until context deadline")
	}
}

func TestRateLimiterFallsBackToDefault(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		GlobalRPS:   1000,
		GlobalBurst: 1000,
		ToolRPS:     map[string]float64{"*": 0.001},
		ToolBurst:   map[string]int{"*": 1},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.AllowTool(ctx, "unlisted"); err != nil {
		t.Fatalf("first call should pass on default limit: %v", err)
	}
	if err := rl.AllowTool(ctx, "unlisted"); err == nil {
		t.Fatal("second call should hit the default tool limit")
	}
}

func TestRateLimiterUpdateToolLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		GlobalRPS:   1000,
		GlobalBurst: 1000,
		ToolRPS:     map[string]float64{"tight": 0.001},
		ToolBurst:   map[string]int{"tight": 1},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rl.AllowTool(ctx, "tight"); err != nil {
		t.Fatal(err)
	}
	rl.UpdateToolLimit("tight", 1000, 100)
	for i := 0; i < 5; i++ {
		if err := rl.AllowTool(ctx, "tight"); err != nil {
			t.Fatalf("call %d after raising limit: %v", i, err)
		}
	}
}
