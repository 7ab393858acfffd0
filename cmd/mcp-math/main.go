// Command mcp-math is an MCP server exposing basic arithmetic tools. By
// default it serves one session over stdio; with -http it serves the SSE
// binding instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/modelctl/mcp"
)

// MathResult is the structured payload every math tool returns.
type MathResult struct {
	Operation string  `json:"operation"`
	Result    float64 `json:"result"`
	Details   string  `json:"details"`
}

func newRegistry() *mcp.Registry {
	reg := mcp.NewRegistry()

	numberSchema := func(aDesc, bDesc string) map[string]any {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number", "description": aDesc},
				"b": map[string]any{"type": "number", "description": bDesc},
			},
			"required": []string{"a", "b"},
		}
	}

	reg.MustRegister(mcp.Tool{
		Name:        "add",
		Description: "Add two numbers together",
		InputSchema: numberSchema("First number", "Second number"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		a, b := args["a"].(float64), args["b"].(float64)
		result := a + b
		return MathResult{
			Operation: "addition",
			Result:    result,
			Details:   fmt.Sprintf("%s + %s = %s", formatFloat(a), formatFloat(b), formatFloat(result)),
		}, nil
	})

	reg.MustRegister(mcp.Tool{
		Name:        "subtract",
		Description: "Subtract second number from first",
		InputSchema: numberSchema("First number (minuend)", "Second number (subtrahend)"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		a, b := args["a"].(float64), args["b"].(float64)
		result := a - b
		return MathResult{
			Operation: "subtraction",
			Result:    result,
			Details:   fmt.Sprintf("%s - %s = %s", formatFloat(a), formatFloat(b), formatFloat(result)),
		}, nil
	})

	return reg
}

// formatFloat renders a float with an explicit decimal point, so whole
// numbers read "8.0" rather than "8" in the details string.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func main() {
	httpAddr := flag.String("http", "", "serve the SSE binding on this address instead of stdio (e.g. :8000)")
	flag.Parse()

	// stdout is the protocol channel; all logging goes to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := mcp.NewServer("mcp-math", "1.0.0", newRegistry(), mcp.WithLogger(log))

	if *httpAddr != "" {
		log.Info("serving SSE", "addr", *httpAddr)
		if err := http.ListenAndServe(*httpAddr, mcp.NewSSEHandler(srv)); err != nil {
			log.Error("serve failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := srv.ServeStdio(context.Background()); err != nil {
		log.Error("serve failed", "err", err)
		os.Exit(1)
	}
}
