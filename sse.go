package mcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// SSEHandler exposes a Server over HTTP: a long-lived server-sent-event
// stream for server→client messages and a POST endpoint for client→server
// messages. Mount it anywhere; the stream lives at <mount>/sse and advertises
// the matching message endpoint as its first event.
type SSEHandler struct {
	server   *Server
	router   chi.Router
	sessions sync.Map // session id → *sseStream
	log      *slog.Logger
}

// NewSSEHandler creates an HTTP handler serving srv.
func NewSSEHandler(srv *Server) *SSEHandler {
	h := &SSEHandler{server: srv, log: srv.log}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/sse", h.handleSSE)
	r.Post("/message", h.handleMessage)
	h.router = r
	return h
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *SSEHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	stream := &sseStream{w: w, flusher: flusher}
	stream.pr, stream.pw = io.Pipe()
	h.sessions.Store(id, stream)
	defer h.sessions.Delete(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	endpoint := path.Join(path.Dir(r.URL.Path), "message") + "?sessionId=" + id
	stream.sendEvent("endpoint", []byte(endpoint))

	// Unblock the protocol loop when the client goes away.
	go func() {
		<-r.Context().Done()
		stream.pw.Close()
	}()

	h.log.Debug("sse session opened", "session", id)
	if err := h.server.Serve(r.Context(), stream); err != nil {
		h.log.Warn("sse session error", "session", id, "err", err)
	}
	h.log.Debug("sse session closed", "session", id)
}

func (h *SSEHandler) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	v, ok := h.sessions.Load(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	stream := v.(*sseStream)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if !bytes.HasSuffix(body, []byte("\n")) {
		body = append(body, '\n')
	}
	if _, err := stream.pw.Write(body); err != nil {
		http.Error(w, "session closed", http.StatusGone)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// sseStream adapts one SSE connection to the Transport contract on the
// server side: reads come from POSTed messages, writes become events.
type sseStream struct {
	pr      *io.PipeReader
	pw      *io.PipeWriter
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseStream) Read(p []byte) (int, error) { return s.pr.Read(p) }

func (s *sseStream) Write(p []byte) (int, error) {
	s.sendEvent("message", bytes.TrimRight(p, "\n"))
	return len(p), nil
}

func (s *sseStream) Close() error {
	s.pw.Close()
	return s.pr.Close()
}

func (s *sseStream) sendEvent(event string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.flusher.Flush()
}

// SSETransport is the client-side event-stream binding: a long-lived GET
// carries server→client messages, a separate POST channel carries
// client→server messages.
type SSETransport struct {
	client   *http.Client
	endpoint *url.URL
	resp     *http.Response
	cancel   context.CancelFunc

	pr *io.PipeReader
	pw *io.PipeWriter

	wmu  sync.Mutex
	wbuf bytes.Buffer

	closeOnce sync.Once
}

// DialSSE connects to the event stream at rawURL and waits for the server to
// advertise its message endpoint. Connection refusal, a non-200 status, or a
// malformed stream fail with TransportError. If client is nil,
// http.DefaultClient is used.
func DialSSE(ctx context.Context, rawURL string, client *http.Client) (*SSETransport, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, &TransportError{Op: "parse url", Err: err}
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "connect " + rawURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &TransportError{Op: "connect " + rawURL, Err: fmt.Errorf("status %s", resp.Status)}
	}

	t := &SSETransport{client: client, resp: resp, cancel: cancel}
	t.pr, t.pw = io.Pipe()

	endpointCh := make(chan string, 1)
	go t.readEvents(resp.Body, endpointCh)

	select {
	case ep, ok := <-endpointCh:
		if !ok {
			t.Close()
			return nil, &TransportError{Op: "handshake", Err: fmt.Errorf("stream closed before endpoint event")}
		}
		epURL, err := url.Parse(ep)
		if err != nil {
			t.Close()
			return nil, &TransportError{Op: "handshake", Err: fmt.Errorf("bad endpoint %q: %w", ep, err)}
		}
		t.endpoint = base.ResolveReference(epURL)
	case <-ctx.Done():
		t.Close()
		return nil, &TransportError{Op: "handshake", Err: ctx.Err()}
	}
	return t, nil
}

// readEvents parses the SSE stream, forwarding message events to the read
// pipe and the first endpoint event to endpointCh.
func (t *SSETransport) readEvents(body io.ReadCloser, endpointCh chan<- string) {
	defer close(endpointCh)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var event string
	var data bytes.Buffer
	flush := func() {
		defer func() { event = ""; data.Reset() }()
		switch event {
		case "endpoint":
			select {
			case endpointCh <- data.String():
			default:
			}
		case "message":
			msg := append(data.Bytes(), '\n')
			if _, err := t.pw.Write(msg); err != nil {
				return
			}
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	t.pw.CloseWithError(&TransportError{Op: "event stream", Err: err})
}

func (t *SSETransport) Read(p []byte) (int, error) { return t.pr.Read(p) }

// Write buffers until a complete newline-delimited message is present, then
// posts it to the advertised endpoint.
func (t *SSETransport) Write(p []byte) (int, error) {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	t.wbuf.Write(p)
	for {
		idx := bytes.IndexByte(t.wbuf.Bytes(), '\n')
		if idx < 0 {
			return len(p), nil
		}
		msg := make([]byte, idx+1)
		copy(msg, t.wbuf.Next(idx+1))
		if err := t.post(msg); err != nil {
			return 0, err
		}
	}
}

func (t *SSETransport) post(msg []byte) error {
	resp, err := t.client.Post(t.endpoint.String(), "application/json", bytes.NewReader(msg))
	if err != nil {
		return &TransportError{Op: "post message", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "post message", Err: fmt.Errorf("status %s", resp.Status)}
	}
	return nil
}

// Close tears down both channels. Safe to call multiple times.
func (t *SSETransport) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
		t.pw.CloseWithError(io.EOF)
		t.pr.Close()
	})
	return nil
}
