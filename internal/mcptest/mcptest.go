// Package mcptest provides test harnesses for MCP servers: an in-process
// server/client pair over an in-memory pipe, plus a transport wrapper that
// logs wire traffic.
package mcptest

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/modelctl/mcp"
)

// PipeServer is an in-process server/client pair over net.Pipe. The server
// side runs in a background goroutine until the pipe closes.
type PipeServer struct {
	Client *mcp.Client

	serverConn net.Conn
	done       chan struct{}
	serveErr   error
}

// StartPipeServer serves srv over one end of an in-memory pipe and returns a
// client bound to the other. Cleanup is registered on t.
func StartPipeServer(t *testing.T, srv *mcp.Server, opts ...mcp.SessionOption) *PipeServer {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	ps := &PipeServer{
		Client:     mcp.NewClient(clientConn, opts...),
		serverConn: serverConn,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(ps.done)
		ps.serveErr = srv.Serve(context.Background(), serverConn)
	}()

	t.Cleanup(func() { ps.Close() })
	return ps
}

// Close shuts down both ends and waits for the serve loop to exit.
func (ps *PipeServer) Close() {
	ps.Client.Close()
	ps.serverConn.Close()
	<-ps.done
}

// DebugTransport logs wire traffic while delegating to an inner transport.
type DebugTransport struct {
	RW  io.ReadWriteCloser
	Out io.Writer

	mu sync.Mutex
}

func (d *DebugTransport) Read(p []byte) (n int, err error) {
	n, err = d.RW.Read(p)
	if n > 0 {
		d.logf("<- %s", p[:n])
	}
	if err != nil {
		d.logf("<- read error: %v", err)
	}
	return
}

func (d *DebugTransport) Write(p []byte) (n int, err error) {
	d.logf("-> %s", p)
	return d.RW.Write(p)
}

func (d *DebugTransport) Close() error { return d.RW.Close() }

func (d *DebugTransport) logf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.Out, format+"\n", args...)
}
