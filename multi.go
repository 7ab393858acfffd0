package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ServerConfig declares how to reach one tool server. Exactly one of Command
// or URL must be set; the transport kind is inferred from whichever it is
// unless spelled out explicitly.
type ServerConfig struct {
	// Transport is "stdio" or "sse". Optional: a Command implies stdio,
	// a URL implies sse.
	Transport string   `yaml:"transport,omitempty" json:"transport,omitempty"`
	Command   string   `yaml:"command,omitempty" json:"command,omitempty"`
	Args      []string `yaml:"args,omitempty" json:"args,omitempty"`
	URL       string   `yaml:"url,omitempty" json:"url,omitempty"`
}

func (c ServerConfig) kind() (string, error) {
	switch c.Transport {
	case "stdio", "sse":
		return c.Transport, nil
	case "":
		if c.Command != "" {
			return "stdio", nil
		}
		if c.URL != "" {
			return "sse", nil
		}
		return "", fmt.Errorf("mcp: server config needs a command or a url")
	default:
		return "", fmt.Errorf("mcp: unknown transport %q", c.Transport)
	}
}

// CollisionPolicy decides what happens when two servers advertise the same
// tool name.
type CollisionPolicy int

const (
	// CollisionLastWins keeps the entry from the server later in id order.
	CollisionLastWins CollisionPolicy = iota
	// CollisionFirstWins keeps the entry from the server earlier in id order.
	CollisionFirstWins
	// CollisionError rejects the merge outright.
	CollisionError
)

// ServerTool is one entry of the merged namespace: a remote tool plus the id
// of the server that owns it.
type ServerTool struct {
	ServerID string
	ClientTool
}

// MultiClient talks to several tool servers at once and merges their
// catalogs into one flat namespace. Server ids iterate in sorted order;
// that order is the documented precedence for name collisions.
type MultiClient struct {
	ids        []string
	configs    map[string]ServerConfig
	policy     CollisionPolicy
	clientInfo Implementation
	httpClient *http.Client
	sessOpts   []SessionOption

	mu      sync.Mutex
	clients map[string]*Client
}

// MultiOption configures a MultiClient.
type MultiOption func(*MultiClient)

// WithCollisionPolicy sets the tool-name collision policy. The default is
// CollisionLastWins.
func WithCollisionPolicy(p CollisionPolicy) MultiOption {
	return func(m *MultiClient) { m.policy = p }
}

// WithClientInfo sets the identity sent in each handshake.
func WithClientInfo(info Implementation) MultiOption {
	return func(m *MultiClient) { m.clientInfo = info }
}

// WithHTTPClient sets the HTTP client used for sse transports.
func WithHTTPClient(c *http.Client) MultiOption {
	return func(m *MultiClient) { m.httpClient = c }
}

// WithSessionOptions applies options, such as WithCallTimeout, to every
// session the client opens.
func WithSessionOptions(opts ...SessionOption) MultiOption {
	return func(m *MultiClient) { m.sessOpts = opts }
}

// NewMultiClient creates a client for the given id→config set. The set is
// immutable for the client's lifetime.
func NewMultiClient(servers map[string]ServerConfig, opts ...MultiOption) *MultiClient {
	ids := make([]string, 0, len(servers))
	configs := make(map[string]ServerConfig, len(servers))
	for id, cfg := range servers {
		ids = append(ids, id)
		configs[id] = cfg
	}
	sort.Strings(ids)

	m := &MultiClient{
		ids:        ids,
		configs:    configs,
		clientInfo: Implementation{Name: "mcp-multi-client", Version: "1.0.0"},
		clients:    make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ServerIDs returns the configured ids in iteration order.
func (m *MultiClient) ServerIDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Connect opens every configured server concurrently and initializes each
// session. All-or-nothing: if any server fails, every session that did open
// is closed before PartialConnectError, naming the failed ids, propagates.
func (m *MultiClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.clients) > 0 {
		return fmt.Errorf("mcp: multi client already connected")
	}

	clients := make([]*Client, len(m.ids))
	errs := make([]error, len(m.ids))

	// Each goroutine records its own outcome in errs so every failure is
	// reported, not just the one g.Wait happens to return.
	var g errgroup.Group
	for i, id := range m.ids {
		i, id := i, id
		g.Go(func() error {
			client, err := m.dial(ctx, m.configs[id])
			if err != nil {
				errs[i] = err
				return fmt.Errorf("%s: %w", id, err)
			}
			clients[i] = client
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failed := make(map[string]error)
		for i, id := range m.ids {
			if errs[i] != nil {
				failed[id] = errs[i]
			}
		}
		for _, c := range clients {
			if c != nil {
				c.Close()
			}
		}
		return &PartialConnectError{Failed: failed}
	}

	for i, id := range m.ids {
		m.clients[id] = clients[i]
	}
	return nil
}

func (m *MultiClient) dial(ctx context.Context, cfg ServerConfig) (*Client, error) {
	kind, err := cfg.kind()
	if err != nil {
		return nil, err
	}

	var transport Transport
	switch kind {
	case "stdio":
		transport, err = StartCommand(ctx, cfg.Command, cfg.Args...)
	case "sse":
		transport, err = DialSSE(ctx, cfg.URL, m.httpClient)
	}
	if err != nil {
		return nil, err
	}

	client := NewClient(transport, m.sessOpts...)
	if err := client.Connect(ctx, m.clientInfo); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Client returns the adapter for one server id.
func (m *MultiClient) Client(id string) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	return c, ok
}

// Tools merges every server's cached catalog into one flat namespace.
// Collisions resolve per the configured policy; the result is rebuilt on
// each call from the cached catalogs.
func (m *MultiClient) Tools() (map[string]ServerTool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(map[string]ServerTool)
	for _, id := range m.ids {
		client, ok := m.clients[id]
		if !ok {
			return nil, fmt.Errorf("mcp: multi client not connected")
		}
		for _, tool := range client.Tools() {
			existing, collides := merged[tool.Name()]
			if collides {
				switch m.policy {
				case CollisionFirstWins:
					continue
				case CollisionError:
					return nil, fmt.Errorf("mcp: tool %q advertised by both %q and %q",
						tool.Name(), existing.ServerID, id)
				}
			}
			merged[tool.Name()] = ServerTool{ServerID: id, ClientTool: tool}
		}
	}
	return merged, nil
}

// Close closes every owned session, attempting all of them even when some
// fail, and even for sessions that never finished initializing.
func (m *MultiClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, id := range m.ids {
		if c, ok := m.clients[id]; ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", id, err))
			}
			delete(m.clients, id)
		}
	}
	return errors.Join(errs...)
}
