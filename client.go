package mcp

import (
	"context"
	"fmt"
)

// Client wraps one session and presents the remote catalog as invocable
// tools. The catalog is cached at connect time and never auto-refreshes;
// reconnect to observe a changed remote catalog.
type Client struct {
	session *Session
	info    *InitializeResult
	tools   []Tool
}

// NewClient creates a client over t. Call Connect before using it.
func NewClient(t Transport, opts ...SessionOption) *Client {
	return &Client{session: NewSession(t, opts...)}
}

// Connect initializes the session and caches the advertised tool catalog.
func (c *Client) Connect(ctx context.Context, clientInfo Implementation) error {
	info, err := c.session.Initialize(ctx, clientInfo)
	if err != nil {
		return err
	}
	tools, err := c.session.ListTools(ctx)
	if err != nil {
		return err
	}
	c.info = info
	c.tools = tools
	return nil
}

// Session exposes the underlying session, e.g. to register notification
// handlers.
func (c *Client) Session() *Session { return c.session }

// ServerInfo returns the peer's identity from the handshake.
func (c *Client) ServerInfo() Implementation {
	if c.info == nil {
		return Implementation{}
	}
	return c.info.ServerInfo
}

// Tools returns the cached catalog as independently invocable tools, in the
// order the server advertises them.
func (c *Client) Tools() []ClientTool {
	out := make([]ClientTool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, ClientTool{session: c.session, tool: t})
	}
	return out
}

// Tool looks up a cached tool by name.
func (c *Client) Tool(name string) (ClientTool, bool) {
	for _, t := range c.tools {
		if t.Name == name {
			return ClientTool{session: c.session, tool: t}, true
		}
	}
	return ClientTool{}, false
}

// Close releases the session and its transport.
func (c *Client) Close() error { return c.session.Close() }

// ClientTool is one remote tool bound to the session it came from. Invoking
// it marshals arguments through the session and unwraps the structured text
// payload.
type ClientTool struct {
	session *Session
	tool    Tool
}

// Descriptor returns the advertised tool descriptor.
func (t ClientTool) Descriptor() Tool { return t.tool }

// Name returns the tool name.
func (t ClientTool) Name() string { return t.tool.Name }

// Call invokes the tool and returns the JSON text payload of the result.
func (t ClientTool) Call(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.session.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return "", err
	}
	text, err := unwrapText(result)
	if err != nil {
		return "", fmt.Errorf("mcp: tool %q: %w", t.tool.Name, err)
	}
	if result.IsError {
		return "", &RemoteToolError{Tool: t.tool.Name, Message: text}
	}
	return text, nil
}

func unwrapText(result *ToolResult) (string, error) {
	for _, c := range result.Content {
		if c.Type == "text" {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("result has no text content")
}
