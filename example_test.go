package mcp_test

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/modelctl/mcp"
)

func Example() {
	// Register a tool on the server side.
	reg := mcp.NewRegistry()
	err := reg.Register(mcp.Tool{
		Name:        "echo",
		Description: "Echo the input",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return args["message"], nil
	})
	if err != nil {
		log.Fatal(err)
	}

	server := mcp.NewServer("example", "1.0.0", reg)

	// Set up a connection (the example uses an in-memory pipe).
	clientConn, serverConn := net.Pipe()
	go server.Serve(context.Background(), serverConn)

	client := mcp.NewClient(clientConn)
	defer client.Close()

	ctx := context.Background()
	if err := client.Connect(ctx, mcp.Implementation{Name: "example-client", Version: "1.0.0"}); err != nil {
		log.Fatal(err)
	}

	tool, _ := client.Tool("echo")
	out, err := tool.Call(ctx, map[string]any{"message": "Hello, World!"})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(out)
	// Output: "Hello, World!"
}
