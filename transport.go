package mcp

import (
	"io"
	"os"
)

// Transport is the duplex byte stream a session runs over. Both bindings,
// process pipe and event stream, satisfy the same contract; messages are
// newline-delimited JSON records either way.
type Transport interface {
	io.ReadWriteCloser
}

// StdioTransport binds a server session to the process's standard input and
// output. Standard error is not part of the protocol channel.
type StdioTransport struct {
	in  io.Reader
	out io.Writer
}

// NewStdioTransport creates a stdio transport.
func NewStdioTransport() *StdioTransport {
	return &StdioTransport{in: os.Stdin, out: os.Stdout}
}

func (t *StdioTransport) Read(p []byte) (n int, err error)  { return t.in.Read(p) }
func (t *StdioTransport) Write(p []byte) (n int, err error) { return t.out.Write(p) }
func (t *StdioTransport) Close() error                      { return nil }
