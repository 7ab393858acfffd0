/*
Package mcp implements the Model Context Protocol (MCP): a request/response
protocol that lets an agent discover and invoke tools exposed by independent
tool servers.

# Server side

A server registers tools in a Registry and serves one session per transport:

	reg := mcp.NewRegistry()
	reg.MustRegister(mcp.Tool{
	    Name:        "add",
	    Description: "Add two numbers together",
	    InputSchema: map[string]any{
	        "type": "object",
	        "properties": map[string]any{
	            "a": map[string]any{"type": "number"},
	            "b": map[string]any{"type": "number"},
	        },
	        "required": []string{"a", "b"},
	    },
	}, func(ctx context.Context, args map[string]any) (any, error) {
	    return args["a"].(float64) + args["b"].(float64), nil
	})

	srv := mcp.NewServer("example", "1.0.0", reg)
	srv.ServeStdio(context.Background())

Arguments are validated against the tool's input schema before the handler
runs, with numeric fields normalized to float64, so handlers need no
defensive parsing. Handler errors come back to the caller as wire errors;
they never tear down the session.

# Client side

A Client wraps one session and exposes the remote catalog as invocable
tools. A MultiClient talks to several servers at once, over subprocess
pipes or SSE streams, and merges their catalogs into one namespace:

	mc := mcp.NewMultiClient(map[string]mcp.ServerConfig{
	    "math":    {Command: "mcp-math"},
	    "weather": {URL: "http://localhost:8000/sse"},
	})
	if err := mc.Connect(ctx); err != nil {
	    // PartialConnectError names every server that failed; nothing
	    // is left half-open.
	}
	defer mc.Close()

	tools, _ := mc.Tools()
	out, err := tools["add"].Call(ctx, map[string]any{"a": 3, "b": 5})

Connect is all-or-nothing, and closing the client closes every owned
session. Name collisions across servers resolve by the configured
CollisionPolicy, last-wins by default.
*/
package mcp
