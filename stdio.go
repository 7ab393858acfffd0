package mcp

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// CommandTransport launches a tool server as a child process and binds its
// standard input and output as the two halves of the duplex stream. The
// child's stderr passes through to the parent's stderr. Closing the transport
// terminates the process.
type CommandTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	done   chan struct{}
}

// StartCommand starts the named command with args and returns a transport
// over its pipes. The context bounds startup only: once the process is
// running its lifetime belongs to the transport and ends at Close, however
// the caller's dial context is later released. A command that cannot be
// started fails with TransportError.
func StartCommand(ctx context.Context, command string, args ...string) (*CommandTransport, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "start " + command, Err: err}
	}
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &TransportError{Op: "stdin pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &TransportError{Op: "stdout pipe", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &TransportError{Op: "start " + command, Err: err}
	}

	t := &CommandTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		_ = cmd.Wait()
	}()
	return t, nil
}

func (t *CommandTransport) Read(p []byte) (int, error)  { return t.stdout.Read(p) }
func (t *CommandTransport) Write(p []byte) (int, error) { return t.stdin.Write(p) }

// Close shuts down the child process: closing stdin signals the server to
// exit, and a kill guarantees termination on every path.
func (t *CommandTransport) Close() error {
	err := t.stdin.Close()
	select {
	case <-t.done:
	default:
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		<-t.done
	}
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return &TransportError{Op: "close stdin", Err: err}
	}
	return nil
}
