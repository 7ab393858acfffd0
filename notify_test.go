package mcp

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDispatcherRouting(t *testing.T) {
	d := NewDispatcher()

	var got []string
	d.Handle(MethodToolListChanged, func(method string, params json.RawMessage) error {
		got = append(got, "first:"+method)
		return nil
	})
	d.Handle(MethodToolListChanged, func(method string, params json.RawMessage) error {
		got = append(got, "second:"+method)
		return nil
	})

	if err := d.Dispatch(MethodToolListChanged, nil); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "first:"+MethodToolListChanged || got[1] != "second:"+MethodToolListChanged {
		t.Errorf("got %v, want both handlers in registration order", got)
	}

	// Unhandled methods are dropped silently.
	if err := d.Dispatch(MethodCancelled, nil); err != nil {
		t.Errorf("unhandled method: %v", err)
	}
}

func TestDispatcherHandlerError(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	d.Handle(MethodInitialized, func(method string, params json.RawMessage) error {
		return boom
	})

	err := d.Dispatch(MethodInitialized, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped handler error", err)
	}
}

func TestDispatcherParams(t *testing.T) {
	d := NewDispatcher()
	var level string
	d.Handle(MethodInitialized, func(method string, params json.RawMessage) error {
		var p struct {
			Level string `json:"level"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return err
		}
		level = p.Level
		return nil
	})

	if err := d.Dispatch(MethodInitialized, json.RawMessage(`{"level":"debug"}`)); err != nil {
		t.Fatal(err)
	}
	if level != "debug" {
		t.Errorf("got %q, want params delivered to handler", level)
	}
}
