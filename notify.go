package mcp

import (
	"encoding/json"
	"fmt"
	"sync"
)

// NotificationHandler handles a one-way protocol message.
type NotificationHandler func(method string, params json.RawMessage) error

// Notification method names.
const (
	MethodInitialized     = "notifications/initialized"
	MethodToolListChanged = "notifications/tools/list_changed"
	MethodCancelled       = "notifications/cancelled"
)

// Dispatcher routes notifications to registered handlers. Sessions use one
// for server-initiated messages; servers use one for client-initiated
// messages such as MethodInitialized.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]NotificationHandler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]NotificationHandler)}
}

// Handle registers a handler for a notification method.
func (d *Dispatcher) Handle(method string, h NotificationHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = append(d.handlers[method], h)
}

// Dispatch delivers a notification to all handlers registered for its method.
// Unhandled methods are dropped silently.
func (d *Dispatcher) Dispatch(method string, params json.RawMessage) error {
	d.mu.RLock()
	handlers := d.handlers[method]
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h(method, params); err != nil {
			return fmt.Errorf("handler error: %w", err)
		}
	}
	return nil
}
