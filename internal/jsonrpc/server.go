package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
)

// Method handles a JSON-RPC method call.
type Method func(ctx context.Context, params json.RawMessage) (any, error)

// Notification handles a one-way message.
type Notification func(ctx context.Context, params json.RawMessage) error

// Server dispatches JSON-RPC requests to registered methods. Registration
// happens before Serve; the maps are not mutated afterward.
type Server struct {
	methods       map[string]Method
	notifications map[string]Notification
}

// NewServer creates an empty server.
func NewServer() *Server {
	return &Server{
		methods:       make(map[string]Method),
		notifications: make(map[string]Notification),
	}
}

// Register adds a method handler.
func (s *Server) Register(name string, method Method) {
	s.methods[name] = method
}

// RegisterNotification adds a handler for a one-way message.
func (s *Server) RegisterNotification(name string, n Notification) {
	s.notifications[name] = n
}

// Serve reads requests from conn until EOF or ctx cancellation, invoking the
// matching handler for each. Handler errors become wire error objects, or are
// dropped for notifications; they never terminate the loop. Returns nil on
// clean EOF.
func (s *Server) Serve(ctx context.Context, conn *Conn) error {
	for {
		msg, err := conn.Read()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		if msg.IsNotification() {
			if n, ok := s.notifications[msg.Method]; ok {
				if err := n(ctx, msg.Params); err != nil {
					// One-way messages have no response to carry the error.
					slog.Debug("notification handler failed", "method", msg.Method, "err", err)
				}
			}
			continue
		}

		if msg.JSONRPC != Version {
			if err := conn.WriteError(msg.ID, CodeInvalidRequest, "invalid JSON-RPC version"); err != nil {
				return err
			}
			continue
		}

		method, ok := s.methods[msg.Method]
		if !ok {
			if err := conn.WriteError(msg.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", msg.Method)); err != nil {
				return err
			}
			continue
		}

		result, err := method(ctx, msg.Params)
		if err != nil {
			var rpcErr *Error
			if errors.As(err, &rpcErr) {
				if werr := conn.Write(&Message{JSONRPC: Version, ID: msg.ID, Error: rpcErr}); werr != nil {
					return werr
				}
				continue
			}
			code := CodeServerError
			var coder Coder
			if errors.As(err, &coder) {
				code = coder.ErrorCode()
			}
			if werr := conn.WriteError(msg.ID, code, err.Error()); werr != nil {
				return werr
			}
			continue
		}

		if err := conn.WriteResult(msg.ID, result); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}
