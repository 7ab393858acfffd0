// Command mcp-instances is a stdio MCP server exposing Scaleway instance
// management tools. It needs SCW_SECRET_KEY in the environment; the key is
// read here once and passed down as explicit configuration.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/modelctl/mcp"
	"github.com/modelctl/mcp/internal/scaleway"
)

func newRegistry(client *scaleway.Client) *mcp.Registry {
	zones := asAnySlice(scaleway.Zones)
	actions := asAnySlice(scaleway.Actions)

	reg := mcp.NewRegistry()

	reg.MustRegister(mcp.Tool{
		Name:        "list_instances",
		Description: "List instances in a specific Scaleway availability zone",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"zone": map[string]any{
					"type":        "string",
					"description": "Availability zone (e.g., fr-par-1, nl-ams-1, pl-waw-1, ...)",
					"enum":        zones,
				},
				"per_page": map[string]any{
					"type":        "integer",
					"description": "Number of items per page (max 100)",
					"default":     50,
				},
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number",
					"default":     1,
				},
				"project": map[string]any{
					"type":        "string",
					"description": "Filter by project ID (optional)",
				},
				"state": map[string]any{
					"type":        "string",
					"description": "Instance state filter",
					"default":     "running",
					"enum":        []any{"running", "stopped", "stopped in place"},
				},
			},
			"required": []string{"zone"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		p := scaleway.ListInstancesParams{
			Zone:    stringArg(args, "zone"),
			PerPage: intArg(args, "per_page"),
			Page:    intArg(args, "page"),
			Project: stringArg(args, "project"),
			State:   stringArg(args, "state"),
		}
		return client.ListInstances(ctx, p)
	})

	reg.MustRegister(mcp.Tool{
		Name:        "get_instance",
		Description: "Get details of a specific Scaleway instance",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"zone": map[string]any{
					"type":        "string",
					"description": "Availability zone (e.g., fr-par-1, nl-ams-1, pl-waw-1, ...)",
					"enum":        zones,
				},
				"server_id": map[string]any{
					"type":        "string",
					"description": "UUID of the instance you want to get details for",
				},
			},
			"required": []string{"zone", "server_id"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return client.GetInstance(ctx, stringArg(args, "zone"), stringArg(args, "server_id"))
	})

	reg.MustRegister(mcp.Tool{
		Name:        "perform_action",
		Description: "Perform an action on a Scaleway instance (poweron, poweroff, reboot, etc.)",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"zone": map[string]any{
					"type":        "string",
					"description": "Availability zone (e.g., fr-par-1, nl-ams-1, pl-waw-1, ...)",
					"enum":        zones,
				},
				"server_id": map[string]any{
					"type":        "string",
					"description": "UUID of the instance you want to perform an action on",
				},
				"action": map[string]any{
					"type":        "string",
					"description": "Action to perform on the instance (e.g. poweron, poweroff, reboot, ...)",
					"default":     "poweron",
					"enum":        actions,
				},
				"name": map[string]any{
					"type":        "string",
					"description": "Name of the backup (only for backup action)",
				},
				"volumes": map[string]any{
					"type":                 "object",
					"description":          "For each volume UUID, the snapshot parameters (only for backup action)",
					"additionalProperties": map[string]any{},
				},
				"disable_ipv6": map[string]any{
					"type":        "boolean",
					"description": "Disable IPv6 on the instance (only for enable_routed_ip action)",
				},
			},
			"required": []string{"zone", "server_id", "action"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		p := scaleway.ActionParams{
			Zone:     stringArg(args, "zone"),
			ServerID: stringArg(args, "server_id"),
			Action:   stringArg(args, "action"),
			Name:     stringArg(args, "name"),
		}
		if v, ok := args["volumes"].(map[string]any); ok {
			p.Volumes = v
		}
		if v, ok := args["disable_ipv6"].(bool); ok {
			p.DisableIPv6 = &v
		}
		return client.PerformAction(ctx, p)
	})

	return reg
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	// Validated numeric arguments always arrive as float64.
	f, _ := args[key].(float64)
	return int(f)
}

func asAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	token := os.Getenv("SCW_SECRET_KEY")
	client, err := scaleway.New(scaleway.DefaultBaseURL, token, nil)
	if err != nil {
		log.Error("SCW_SECRET_KEY environment variable is required")
		os.Exit(1)
	}

	srv := mcp.NewServer("mcp-scaleway", "1.0.0", newRegistry(client),
		mcp.WithLogger(log),
		mcp.WithRateLimiting(mcp.DefaultRateLimitConfig()))
	if err := srv.ServeStdio(context.Background()); err != nil {
		log.Error("serve failed", "err", err)
		os.Exit(1)
	}
}
