package mcp

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modelctl/mcp/internal/jsonrpc"
)

// ErrSessionClosed resolves any call left pending when its session closes.
var ErrSessionClosed = errors.New("mcp: session closed")

// TransportError reports that a connection or child process could not be
// established, or dropped unexpectedly. Fatal to the affected session only.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mcp: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolStateError reports an operation invoked in the wrong session state.
// It indicates a programming error, not a recoverable condition.
type ProtocolStateError struct {
	Op    string
	State SessionState
}

func (e *ProtocolStateError) Error() string {
	return fmt.Sprintf("mcp: %s invalid in session state %s", e.Op, e.State)
}

func (e *ProtocolStateError) ErrorCode() int { return jsonrpc.CodeInvalidRequest }

// DuplicateToolError reports a second registration under an existing name.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("mcp: tool %q already registered", e.Name)
}

// UnknownToolError reports dispatch to a name no tool is registered under.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("mcp: unknown tool %q", e.Name)
}

func (e *UnknownToolError) ErrorCode() int { return jsonrpc.CodeInvalidParams }

// InvalidArgumentsError reports arguments that do not satisfy a tool's input
// schema. Missing lists absent required fields by name when that is the cause.
type InvalidArgumentsError struct {
	Tool    string
	Missing []string
	Err     error
}

func (e *InvalidArgumentsError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("mcp: tool %q: missing required arguments: %s", e.Tool, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("mcp: tool %q: invalid arguments: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }

func (e *InvalidArgumentsError) ErrorCode() int { return jsonrpc.CodeInvalidParams }

// RemoteToolError carries a failure reported by the tool handler itself,
// including downstream API failures. On the server side it wraps the handler
// error; on the client side it carries the peer-reported message.
type RemoteToolError struct {
	Tool    string
	Message string
	Err     error
}

func (e *RemoteToolError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("mcp: tool %q failed: %s", e.Tool, e.Message)
	}
	return fmt.Sprintf("mcp: tool call failed: %s", e.Message)
}

func (e *RemoteToolError) Unwrap() error { return e.Err }

func (e *RemoteToolError) ErrorCode() int { return jsonrpc.CodeServerError }

// PartialConnectError reports a multi-server connect in which one or more
// configured servers failed. The whole acquisition is rolled back before this
// error propagates; no sessions remain open.
type PartialConnectError struct {
	Failed map[string]error
}

func (e *PartialConnectError) Error() string {
	return fmt.Sprintf("mcp: connect failed for servers: %s", strings.Join(e.FailedIDs(), ", "))
}

// FailedIDs returns the failed server ids in sorted order.
func (e *PartialConnectError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
