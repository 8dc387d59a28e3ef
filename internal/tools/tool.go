// Package tools provides the model-invokable tools for answering
// questions about course materials, and the registry that dispatches
// tool calls by name.
package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Source is a citation produced by a tool execution. Text is the
// human-readable label, URL links to the cited lesson or course when one
// is recorded.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Tool is a capability the model can invoke during generation.
//
// Execute never returns a Go error: failures are reported as response
// text so the model can see them and recover. Tools that cite retrieved
// content track the citations of their most recent execution; each
// execution overwrites the previous set.
type Tool interface {
	// Name returns the wire name the model calls this tool by.
	Name() string

	// Attach declares the tool's schema on the Genkit registry and
	// returns the reference used when advertising it to the model.
	// The declared handler is never invoked; execution is dispatched
	// through Registry.Execute.
	Attach(g *genkit.Genkit) ai.ToolRef

	// Execute runs the tool with the model-supplied arguments and
	// returns the response text.
	Execute(ctx context.Context, args map[string]any) string

	// LastSources returns the citations from the most recent execution.
	LastSources() []Source

	// ClearSources drops the tracked citations.
	ClearSources()
}

// argString extracts a string argument, tolerating absence.
func argString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// argInt extracts an integer argument. JSON numbers arrive as float64.
func argInt(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
