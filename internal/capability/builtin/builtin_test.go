package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	res := Echo().Run(context.Background(), map[string]any{"message": "hello"})
	require.True(t, res.Success)
	assert.Equal(t, "Echo: hello", res.Output)
}

func TestCalculator(t *testing.T) {
	calc := Calculator()

	tests := []struct {
		name      string
		args      map[string]any
		want      float64
		wantError string
	}{
		{name: "add", args: map[string]any{"operation": "add", "a": 42.0, "b": 58.0}, want: 100},
		{name: "subtract", args: map[string]any{"operation": "subtract", "a": 10.0, "b": 4.0}, want: 6},
		{name: "multiply", args: map[string]any{"operation": "multiply", "a": 6.0, "b": 7.0}, want: 42},
		{name: "divide", args: map[string]any{"operation": "divide", "a": 9.0, "b": 2.0}, want: 4.5},
		{name: "divide by zero", args: map[string]any{"operation": "divide", "a": 1.0, "b": 0.0}, wantError: "division by zero"},
		{name: "unknown operation", args: map[string]any{"operation": "modulo", "a": 1.0, "b": 2.0}, wantError: "unknown operation: modulo"},
		{name: "integer args accepted", args: map[string]any{"operation": "add", "a": 42, "b": 58}, want: 100},
		{name: "non-numeric operand", args: map[string]any{"operation": "add", "a": "many", "b": 2.0}, wantError: "a and b must be numbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := calc.Run(context.Background(), tt.args)
			if tt.wantError != "" {
				require.False(t, res.Success)
				assert.Equal(t, tt.wantError, res.Error)
				return
			}
			require.True(t, res.Success, "error: %s", res.Error)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}

func TestDataAnalysis(t *testing.T) {
	da := DataAnalysis()
	data := []any{3.0, 1.0, 4.0, 1.0, 5.0}

	tests := []struct {
		op   string
		want float64
	}{
		{"sum", 14},
		{"average", 2.8},
		{"max", 5},
		{"min", 1},
		{"count", 5},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			res := da.Run(context.Background(), map[string]any{"operation": tt.op, "data": data})
			require.True(t, res.Success, "error: %s", res.Error)
			out := res.Output.(map[string]any)
			assert.InDelta(t, tt.want, out["result"], 1e-9)
			assert.Equal(t, 5, out["data_points"])
		})
	}

	t.Run("empty data", func(t *testing.T) {
		res := da.Run(context.Background(), map[string]any{"operation": "sum", "data": []any{}})
		require.False(t, res.Success)
		assert.Equal(t, "data array is empty", res.Error)
	})
}

func TestFileOperations(t *testing.T) {
	dir := t.TempDir()
	fo := FileOperations(dir)
	ctx := context.Background()

	res := fo.Run(ctx, map[string]any{"operation": "write", "path": "notes.txt", "content": "remember the milk"})
	require.True(t, res.Success, "error: %s", res.Error)

	res = fo.Run(ctx, map[string]any{"operation": "read", "path": "notes.txt"})
	require.True(t, res.Success, "error: %s", res.Error)
	out := res.Output.(map[string]any)
	assert.Equal(t, "remember the milk", out["content"])

	// Path traversal attempts resolve to the base name inside the sandbox.
	res = fo.Run(ctx, map[string]any{"operation": "read", "path": "../../notes.txt"})
	require.True(t, res.Success, "error: %s", res.Error)

	res = fo.Run(ctx, map[string]any{"operation": "list"})
	require.True(t, res.Success, "error: %s", res.Error)
	listing := res.Output.(map[string]any)
	assert.Equal(t, 1, listing["total"])

	res = fo.Run(ctx, map[string]any{"operation": "read", "path": "missing.txt"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "file not found")

	res = fo.Run(ctx, map[string]any{"operation": "write", "path": "x.txt"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "content is required")

	res = fo.Run(ctx, map[string]any{"operation": "shred", "path": "x.txt"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown operation")
}

func TestWebSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go concurrency", r.URL.Query().Get("q"))
		w.Write([]byte(`{
			"Heading": "Concurrency",
			"Abstract": "Concurrency is the composition of independently executing processes.",
			"AbstractURL": "https://example.org/concurrency",
			"RelatedTopics": [
				{"Text": "Goroutines", "FirstURL": "https://example.org/goroutines"},
				{"Text": "Channels", "FirstURL": "https://example.org/channels"}
			]
		}`))
	}))
	defer srv.Close()

	ws := &webSearchExecutor{client: srv.Client(), endpoint: srv.URL}

	res := ws.Run(context.Background(), map[string]any{"query": "go concurrency", "num_results": 2})
	require.True(t, res.Success, "error: %s", res.Error)
	out := res.Output.(map[string]any)
	assert.Equal(t, 2, out["total_results"])

	res = ws.Run(context.Background(), map[string]any{"query": ""})
	require.False(t, res.Success)
}
