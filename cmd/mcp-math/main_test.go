package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/modelctl/mcp"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3.0"},
		{3.5, "3.5"},
		{8, "8.0"},
		{-2, "-2.0"},
		{0, "0.0"},
		{0.25, "0.25"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func dispatchMath(t *testing.T, reg *mcp.Registry, tool string, args map[string]any) map[string]any {
	t.Helper()
	result, err := reg.Dispatch(context.Background(), tool, args)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].Text), &got); err != nil {
		t.Fatal(err)
	}
	return got
}

func TestMathTools(t *testing.T) {
	reg := newRegistry()

	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name)
	}
	if diff := cmp.Diff([]string{"add", "subtract"}, names); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}

	got := dispatchMath(t, reg, "add", map[string]any{"a": 3, "b": 5})
	want := map[string]any{"operation": "addition", "result": 8.0, "details": "3.0 + 5.0 = 8.0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("add mismatch (-want +got):\n%s", diff)
	}

	got = dispatchMath(t, reg, "subtract", map[string]any{"a": 10, "b": 4})
	want = map[string]any{"operation": "subtraction", "result": 6.0, "details": "10.0 - 4.0 = 6.0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subtract mismatch (-want +got):\n%s", diff)
	}
}

func TestMathToolsCoercion(t *testing.T) {
	reg := newRegistry()
	intForm := dispatchMath(t, reg, "add", map[string]any{"a": 3, "b": 5})
	floatForm := dispatchMath(t, reg, "add", map[string]any{"a": 3.0, "b": 5.0})
	if diff := cmp.Diff(intForm, floatForm); diff != "" {
		t.Errorf("integer and floating forms differ (-int +float):\n%s", diff)
	}
}

func TestMathToolsMissingArgument(t *testing.T) {
	reg := newRegistry()
	_, err := reg.Dispatch(context.Background(), "add", map[string]any{"a": 3})
	var invalid *mcp.InvalidArgumentsError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want InvalidArgumentsError", err)
	}
	if len(invalid.Missing) != 1 || invalid.Missing[0] != "b" {
		t.Errorf("got missing %v, want [b]", invalid.Missing)
	}
}
