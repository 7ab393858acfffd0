package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/modelctl/mcp/internal/jsonrpc"
)

// SessionState tracks where a session is in its lifecycle.
type SessionState int32

const (
	Uninitialized SessionState = iota
	Initialized
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// Session is one protocol conversation over one transport. It owns the
// transport for its lifetime and is destroyed when the transport closes.
//
// A session does not pipeline: requests and responses are correlated strictly
// one at a time, so a second call issued before the first resolves waits for
// it. Concurrent distinct calls need distinct sessions.
type Session struct {
	conn      *jsonrpc.Conn
	transport Transport
	notify    *Dispatcher

	callTimeout time.Duration

	// callMu serializes requests: one outstanding at a time.
	callMu sync.Mutex

	mu        sync.Mutex
	state     SessionState
	nextID    int64
	pendingID int64
	pendingCh chan *jsonrpc.Message

	closeOnce sync.Once
	doneOnce  sync.Once
	done      chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCallTimeout bounds each CallTool round trip. A call that exceeds the
// timeout closes the session, exactly as if the remote end had dropped the
// transport, and resolves with ErrSessionClosed.
func WithCallTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.callTimeout = d }
}

// NewSession creates a session over t and starts its read loop. The session
// starts Uninitialized; call Initialize before anything else.
func NewSession(t Transport, opts ...SessionOption) *Session {
	s := &Session{
		conn:      jsonrpc.NewConn(t),
		transport: t,
		notify:    NewDispatcher(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.readLoop()
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle registers a handler for server-initiated notifications such as
// MethodToolListChanged.
func (s *Session) Handle(method string, h NotificationHandler) {
	s.notify.Handle(method, h)
}

// Initialize performs the capability handshake. Valid only once, from the
// Uninitialized state; on success the session becomes Initialized.
func (s *Session) Initialize(ctx context.Context, clientInfo Implementation) (*InitializeResult, error) {
	s.mu.Lock()
	if s.state != Uninitialized {
		state := s.state
		s.mu.Unlock()
		return nil, &ProtocolStateError{Op: "initialize", State: state}
	}
	s.mu.Unlock()

	params := &InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      clientInfo,
		Capabilities: ClientCapabilities{
			Sampling: &struct{}{},
		},
	}

	raw, err := s.roundTrip(ctx, MethodInitialize, params)
	if err != nil {
		return nil, err
	}
	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode initialize result: %w", err)
	}

	if err := s.conn.WriteNotification(MethodInitialized, nil); err != nil {
		return nil, &TransportError{Op: "initialized notification", Err: err}
	}

	s.mu.Lock()
	if s.state == Uninitialized {
		s.state = Initialized
	}
	s.mu.Unlock()
	return &result, nil
}

// ListTools returns the peer's tool catalog in the order it advertises.
// Valid only in the Initialized state.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	if err := s.requireInitialized("list tools"); err != nil {
		return nil, err
	}
	raw, err := s.roundTrip(ctx, MethodListTools, &ListToolsParams{})
	if err != nil {
		return nil, err
	}
	var result ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/list result: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes the named remote tool and waits for the correlated
// response. Peer-reported failures come back as RemoteToolError. Valid only
// in the Initialized state.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if err := s.requireInitialized("call tool"); err != nil {
		return nil, err
	}
	raw, err := s.roundTrip(ctx, MethodCallTool, &CallToolParams{Name: name, Arguments: args})
	if err != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &RemoteToolError{Tool: name, Message: rpcErr.Message, Err: rpcErr}
		}
		return nil, err
	}
	var result ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/call result: %w", err)
	}
	return &result, nil
}

// Close transitions the session to Closed and releases the transport.
// Idempotent. Any call pending at close time resolves with ErrSessionClosed.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = Closed
		s.mu.Unlock()
		err = s.transport.Close()
		s.markDone()
	})
	return err
}

func (s *Session) requireInitialized(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Initialized {
		return &ProtocolStateError{Op: op, State: s.state}
	}
	return nil
}

func (s *Session) roundTrip(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	select {
	case <-s.done:
		return nil, fmt.Errorf("mcp: %s: %w", method, ErrSessionClosed)
	default:
	}

	ch := make(chan *jsonrpc.Message, 1)
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pendingID = id
	s.pendingCh = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.pendingCh = nil
		s.mu.Unlock()
	}()

	if err := s.conn.WriteRequest(id, method, params); err != nil {
		select {
		case <-s.done:
			return nil, fmt.Errorf("mcp: %s: %w", method, ErrSessionClosed)
		default:
		}
		return nil, &TransportError{Op: "write " + method, Err: err}
	}

	var timeout <-chan time.Time
	if s.callTimeout > 0 {
		timer := time.NewTimer(s.callTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	case <-timeout:
		// A timed-out call leaves the channel with an unclaimed response in
		// flight; treat it like remote closure.
		s.Close()
		return nil, fmt.Errorf("mcp: %s: call timeout after %s: %w", method, s.callTimeout, ErrSessionClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, fmt.Errorf("mcp: %s: %w", method, ErrSessionClosed)
	}
}

func (s *Session) readLoop() {
	defer s.markDone()
	for {
		msg, err := s.conn.Read()
		if err != nil {
			return
		}
		switch {
		case msg.IsResponse():
			var id int64
			if err := json.Unmarshal(msg.ID, &id); err != nil {
				continue
			}
			s.mu.Lock()
			ch := s.pendingCh
			match := ch != nil && id == s.pendingID
			s.mu.Unlock()
			if match {
				ch <- msg
			}
		case msg.IsNotification():
			_ = s.notify.Dispatch(msg.Method, msg.Params)
		}
	}
}

// markDone releases every waiter exactly once, from whichever side observes
// closure first.
func (s *Session) markDone() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.state = Closed
		s.mu.Unlock()
	})
}
