// Command mcpcall connects to the MCP servers named in a YAML config file,
// merges their tool catalogs, and lists or invokes tools from the command
// line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modelctl/mcp"
)

// Config is the mcpcall configuration file.
type Config struct {
	// Servers maps server ids to connection settings. Ids iterate in
	// sorted order; later ids win tool-name collisions by default.
	Servers map[string]mcp.ServerConfig `yaml:"servers"`
	// Collision is "last", "first", or "error". Default "last".
	Collision string `yaml:"collision,omitempty"`
	// CallTimeout bounds each tool call, e.g. "30s". Empty means no limit.
	CallTimeout string `yaml:"call_timeout,omitempty"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("%s: no servers configured", path)
	}
	return &cfg, nil
}

func (c *Config) callTimeout() (time.Duration, error) {
	if c.CallTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid call_timeout %q: %w", c.CallTimeout, err)
	}
	return d, nil
}

func (c *Config) collisionPolicy() (mcp.CollisionPolicy, error) {
	switch c.Collision {
	case "", "last":
		return mcp.CollisionLastWins, nil
	case "first":
		return mcp.CollisionFirstWins, nil
	case "error":
		return mcp.CollisionError, nil
	default:
		return 0, fmt.Errorf("unknown collision policy %q (valid: last, first, error)", c.Collision)
	}
}

func connect(ctx context.Context, cfg *Config) (*mcp.MultiClient, error) {
	policy, err := cfg.collisionPolicy()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.callTimeout()
	if err != nil {
		return nil, err
	}
	opts := []mcp.MultiOption{
		mcp.WithCollisionPolicy(policy),
		mcp.WithClientInfo(mcp.Implementation{Name: "mcpcall", Version: "1.0.0"}),
	}
	if timeout > 0 {
		opts = append(opts, mcp.WithSessionOptions(mcp.WithCallTimeout(timeout)))
	}

	mc := mcp.NewMultiClient(cfg.Servers, opts...)
	if err := mc.Connect(ctx); err != nil {
		return nil, err
	}
	return mc, nil
}

func main() {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           "mcpcall",
		Short:         "Invoke tools on MCP servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid log level %q", logLevel)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "mcpcall.yaml", "path to server config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the merged tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			mc, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer mc.Close()

			tools, err := mc.Tools()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(tools))
			for name := range tools {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				t := tools[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s %s\n", name, t.ServerID, t.Descriptor().Description)
			}
			return nil
		},
	}

	var argsJSON string
	callCmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool and print its result payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var toolArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			mc, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer mc.Close()

			tools, err := mc.Tools()
			if err != nil {
				return err
			}
			tool, ok := tools[args[0]]
			if !ok {
				return fmt.Errorf("no server advertises tool %q", args[0])
			}

			out, err := tool.Call(cmd.Context(), toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	callCmd.Flags().StringVar(&argsJSON, "args", "", "tool arguments as a JSON object")

	root.AddCommand(toolsCmd, callCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "mcpcall:", err)
		os.Exit(1)
	}
}
