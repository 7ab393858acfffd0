package mcp

import "encoding/json"

// Protocol version constants
const (
	ProtocolVersion = "2024-11-05"
)

// Wire method names.
const (
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
)

// Protocol types
type (
	InitializeParams struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ClientCapabilities `json:"capabilities"`
		ClientInfo      Implementation     `json:"clientInfo"`
	}

	InitializeResult struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    Capabilities   `json:"capabilities"`
		ServerInfo      Implementation `json:"serverInfo"`
		Instructions    string         `json:"instructions,omitempty"`
	}

	ListToolsParams struct {
		Cursor string `json:"cursor,omitempty"`
	}

	ListToolsResult struct {
		Tools      []Tool `json:"tools"`
		NextCursor string `json:"nextCursor,omitempty"`
	}

	CallToolParams struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments,omitempty"`
	}

	// Tool describes one callable operation: its name, what it does, and a
	// JSON Schema for its arguments. Immutable after registration.
	Tool struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		InputSchema map[string]any `json:"inputSchema"`
	}

	ToolResult struct {
		Content []Content `json:"content"`
		IsError bool      `json:"isError,omitempty"`
		Meta    any       `json:"_meta,omitempty"`
	}

	Content struct {
		Type     string `json:"type"`
		Text     string `json:"text,omitempty"`
		Data     []byte `json:"data,omitempty"`
		MimeType string `json:"mimeType,omitempty"`
	}

	Implementation struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	Capabilities struct {
		Experimental map[string]any `json:"experimental,omitempty"`
		Tools        *struct {
			ListChanged bool `json:"listChanged,omitempty"`
		} `json:"tools,omitempty"`
	}

	ClientCapabilities struct {
		Experimental map[string]any `json:"experimental,omitempty"`
		Sampling     *struct{}      `json:"sampling,omitempty"`
	}
)

// TextResult builds the single-part text result used for structured tool
// payloads: v serialized to JSON inside one text content part.
func TextResult(v any) (*ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &ToolResult{
		Content: []Content{{Type: "text", Text: string(data)}},
	}, nil
}
