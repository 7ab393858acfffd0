package mcp_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/modelctl/mcp"
)

// statusRegistry builds a registry whose "status" tool reports the owning
// server's name, so merged-namespace tests can tell servers apart.
func statusRegistry(owner string, extra ...string) *mcp.Registry {
	reg := mcp.NewRegistry()
	reg.MustRegister(mcp.Tool{Name: "status", Description: "Report " + owner + " status"},
		func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"owner": owner}, nil
		})
	for _, name := range extra {
		name := name
		reg.MustRegister(mcp.Tool{Name: name}, func(ctx context.Context, args map[string]any) (any, error) {
			return name, nil
		})
	}
	return reg
}

func startSSEServer(t *testing.T, name string, reg *mcp.Registry) *httptest.Server {
	t.Helper()
	srv := mcp.NewServer(name, "1.0.0", reg)
	ts := httptest.NewServer(mcp.NewSSEHandler(srv))
	t.Cleanup(ts.Close)
	return ts
}

func sseURL(ts *httptest.Server) string { return ts.URL + "/sse" }

func TestMultiClientMergeLastWins(t *testing.T) {
	math := startSSEServer(t, "math", statusRegistry("math", "add"))
	weather := startSSEServer(t, "weather", statusRegistry("weather", "forecast"))

	mc := mcp.NewMultiClient(map[string]mcp.ServerConfig{
		"math":    {URL: sseURL(math)},
		"weather": {URL: sseURL(weather)},
	})
	if err := mc.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer mc.Close()

	tools, err := mc.Tools()
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for name := range tools {
		names = append(names, name)
	}
	if len(names) != 3 {
		t.Fatalf("got tools %v, want status, add, forecast", names)
	}

	// "weather" iterates after "math", so its "status" wins.
	status := tools["status"]
	if status.ServerID != "weather" {
		t.Errorf("got status owner %q, want %q", status.ServerID, "weather")
	}
	out, err := status.Call(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != `{"owner":"weather"}` {
		t.Errorf("got %s, want weather-owned status", out)
	}

	if tools["add"].ServerID != "math" || tools["forecast"].ServerID != "weather" {
		t.Errorf("non-colliding tools mapped to wrong servers: %+v", tools)
	}
}

func TestMultiClientCollisionPolicies(t *testing.T) {
	math := startSSEServer(t, "math", statusRegistry("math"))
	weather := startSSEServer(t, "weather", statusRegistry("weather"))
	configs := map[string]mcp.ServerConfig{
		"math":    {URL: sseURL(math)},
		"weather": {URL: sseURL(weather)},
	}

	t.Run("first wins", func(t *testing.T) {
		mc := mcp.NewMultiClient(configs, mcp.WithCollisionPolicy(mcp.CollisionFirstWins))
		if err := mc.Connect(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer mc.Close()

		tools, err := mc.Tools()
		if err != nil {
			t.Fatal(err)
		}
		if tools["status"].ServerID != "math" {
			t.Errorf("got owner %q, want %q", tools["status"].ServerID, "math")
		}
	})

	t.Run("error", func(t *testing.T) {
		mc := mcp.NewMultiClient(configs, mcp.WithCollisionPolicy(mcp.CollisionError))
		if err := mc.Connect(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer mc.Close()

		_, err := mc.Tools()
		if err == nil || !strings.Contains(err.Error(), `"status"`) {
			t.Fatalf("got %v, want collision error naming the tool", err)
		}
	})
}

func TestMultiClientPartialConnectRollback(t *testing.T) {
	good := startSSEServer(t, "good", statusRegistry("good"))

	// A server that refuses connections: grab an address, then close it.
	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	mc := mcp.NewMultiClient(map[string]mcp.ServerConfig{
		"good":  {URL: sseURL(good)},
		"bad":   {URL: deadURL + "/sse"},
		"worse": {Command: "/nonexistent/mcp-server-binary"},
	})

	err := mc.Connect(context.Background())
	var partial *mcp.PartialConnectError
	if !errors.As(err, &partial) {
		t.Fatalf("got %v, want PartialConnectError", err)
	}
	// Every failed server is reported, not just the first one observed.
	if diff := cmp.Diff([]string{"bad", "worse"}, partial.FailedIDs()); diff != "" {
		t.Errorf("failed ids mismatch (-want +got):\n%s", diff)
	}
	var transport *mcp.TransportError
	if !errors.As(partial.Failed["bad"], &transport) {
		t.Errorf("got %v, want TransportError for the bad server", partial.Failed["bad"])
	}

	// Full rollback: no session survives, connected or not.
	if _, ok := mc.Client("good"); ok {
		t.Error("good server session left open after failed connect")
	}
	if _, err := mc.Tools(); err == nil {
		t.Error("Tools() should fail on a rolled-back client")
	}
}

func TestMultiClientStdioKindInference(t *testing.T) {
	// A command that cannot be started surfaces as TransportError inside
	// PartialConnectError, proving the stdio path was selected.
	mc := mcp.NewMultiClient(map[string]mcp.ServerConfig{
		"local": {Command: "/nonexistent/mcp-server-binary"},
	})
	err := mc.Connect(context.Background())
	var partial *mcp.PartialConnectError
	if !errors.As(err, &partial) {
		t.Fatalf("got %v, want PartialConnectError", err)
	}
	var transport *mcp.TransportError
	if !errors.As(partial.Failed["local"], &transport) {
		t.Fatalf("got %v, want TransportError", partial.Failed["local"])
	}
}

func TestMultiClientClose(t *testing.T) {
	math := startSSEServer(t, "math", statusRegistry("math"))
	mc := mcp.NewMultiClient(map[string]mcp.ServerConfig{"math": {URL: sseURL(math)}})
	if err := mc.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := mc.Close(); err != nil {
		t.Fatal(err)
	}
	// Idempotent: a second close has nothing left to do.
	if err := mc.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := mc.Tools(); err == nil {
		t.Error("Tools() should fail after close")
	}
}
