// Package jsonrpc implements the JSON-RPC 2.0 framing used by the MCP
// protocol: one JSON record per message, newline-delimited over a
// byte-oriented transport.
package jsonrpc

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Version is the JSON-RPC protocol version.
const Version = "2.0"

// Standard error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

// Message is the superset of request, response, and notification shapes.
// Exactly one interpretation applies: a Method with an ID is a request, a
// Method without an ID is a notification, and an ID without a Method is a
// response.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsNotification reports whether m is a one-way message.
func (m *Message) IsNotification() bool { return m.Method != "" && len(m.ID) == 0 }

// IsResponse reports whether m answers an earlier request.
func (m *Message) IsResponse() bool { return m.Method == "" && len(m.ID) != 0 }

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: %s (code %d)", e.Message, e.Code)
}

// Coder is implemented by errors that carry their own wire error code.
// Errors returned by method handlers are inspected for this interface;
// everything else maps to CodeServerError.
type Coder interface {
	ErrorCode() int
}

// Conn frames newline-delimited JSON messages over an io.ReadWriteCloser.
// Writes are serialized; reads must come from a single goroutine.
type Conn struct {
	mu  sync.Mutex
	rwc io.ReadWriteCloser
	dec *json.Decoder
	enc *json.Encoder
}

// NewConn wraps rwc in a message-oriented connection.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		rwc: rwc,
		dec: json.NewDecoder(rwc),
		enc: json.NewEncoder(rwc),
	}
}

// Read decodes the next message from the stream.
func (c *Conn) Read() (*Message, error) {
	var msg Message
	if err := c.dec.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Write encodes one message followed by a newline.
func (c *Conn) Write(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(msg)
}

// WriteRequest sends a request with the given numeric id.
func (c *Conn) WriteRequest(id int64, method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	idBytes, _ := json.Marshal(id)
	return c.Write(&Message{JSONRPC: Version, ID: idBytes, Method: method, Params: raw})
}

// WriteNotification sends a one-way message.
func (c *Conn) WriteNotification(method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	return c.Write(&Message{JSONRPC: Version, Method: method, Params: raw})
}

// WriteResult answers the request identified by id with result.
func (c *Conn) WriteResult(id json.RawMessage, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return c.WriteError(id, CodeInternalError, fmt.Sprintf("marshal result: %v", err))
	}
	return c.Write(&Message{JSONRPC: Version, ID: id, Result: raw})
}

// WriteError answers the request identified by id with an error object.
func (c *Conn) WriteError(id json.RawMessage, code int, message string) error {
	return c.Write(&Message{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message}})
}

// Close closes the underlying transport.
func (c *Conn) Close() error { return c.rwc.Close() }

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return raw, nil
}
