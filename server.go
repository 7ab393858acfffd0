package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelctl/mcp/internal/jsonrpc"
)

// Server composes a Registry with the protocol loop. It owns process
// lifetime for a tool server: accept one session per transport and serve
// until the channel closes.
type Server struct {
	name         string
	version      string
	instructions string
	registry     *Registry
	caps         Capabilities
	limiter      *RateLimiter
	dispatch     *Dispatcher
	log          *slog.Logger
}

// NewServer creates a server advertising the given registry.
func NewServer(name, version string, registry *Registry, opts ...Option) *Server {
	s := &Server{
		name:     name,
		version:  version,
		registry: registry,
		dispatch: NewDispatcher(),
		log:      slog.Default(),
		caps: Capabilities{
			Tools: &struct {
				ListChanged bool `json:"listChanged,omitempty"`
			}{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle registers a handler for client-initiated notifications such as
// MethodInitialized.
func (s *Server) Handle(method string, h NotificationHandler) {
	s.dispatch.Handle(method, h)
}

// Serve runs one session over t until the transport closes. Request-shape
// problems and handler failures become wire errors; only transport failures
// end the loop.
func (s *Server) Serve(ctx context.Context, t Transport) error {
	conn := jsonrpc.NewConn(t)
	state := &serverSession{server: s}

	srv := jsonrpc.NewServer()
	srv.Register(MethodInitialize, state.initialize)
	srv.Register(MethodListTools, state.listTools)
	srv.Register(MethodCallTool, state.callTool)
	srv.RegisterNotification(MethodInitialized, func(ctx context.Context, params json.RawMessage) error {
		return s.dispatch.Dispatch(MethodInitialized, params)
	})

	s.log.Info("serving session", "server", s.name, "tools", s.registry.Len())
	err := srv.Serve(ctx, conn)
	s.log.Info("session ended", "server", s.name, "err", err)
	return err
}

// ServeStdio serves one session over standard input and output.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, NewStdioTransport())
}

// serverSession is the per-connection protocol state.
type serverSession struct {
	server      *Server
	initialized bool
}

func (ss *serverSession) initialize(ctx context.Context, params json.RawMessage) (any, error) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "invalid initialize params"}
		}
	}
	ss.initialized = true
	ss.server.log.Debug("initialize", "client", p.ClientInfo.Name, "version", p.ClientInfo.Version)
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ss.server.caps,
		ServerInfo:      Implementation{Name: ss.server.name, Version: ss.server.version},
		Instructions:    ss.server.instructions,
	}, nil
}

func (ss *serverSession) listTools(ctx context.Context, params json.RawMessage) (any, error) {
	if !ss.initialized {
		return nil, &ProtocolStateError{Op: "list tools", State: Uninitialized}
	}
	return &ListToolsResult{Tools: ss.server.registry.List()}, nil
}

func (ss *serverSession) callTool(ctx context.Context, params json.RawMessage) (any, error) {
	if !ss.initialized {
		return nil, &ProtocolStateError{Op: "call tool", State: Uninitialized}
	}
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "invalid tools/call params"}
	}
	if ss.server.limiter != nil {
		if err := ss.server.limiter.AllowTool(ctx, p.Name); err != nil {
			return nil, err
		}
	}
	result, err := ss.server.registry.Dispatch(ctx, p.Name, p.Arguments)
	if err != nil {
		ss.server.log.Warn("tool call failed", "tool", p.Name, "err", err)
		return nil, err
	}
	ss.server.log.Debug("tool call ok", "tool", p.Name)
	return result, nil
}
