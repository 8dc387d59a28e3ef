package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM provides deterministic model responses for testing.
//
// Two modes, scripted takes precedence:
//   - Scripted: a queue of responses consumed one per call, for testing
//     multi-call flows like sequential tool rounds.
//   - Pattern: user message content is matched against registered
//     substrings and the paired response is returned; first match wins,
//     the fallback covers the rest.
//
// Every call is recorded, including how many tools the request offered,
// so tests can assert call counts and that the final round carried none.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	script   []ScriptedResponse
	patterns []mockRule
	fallback string
	calls    []MockCall
}

// ScriptedResponse is one queued model response. A non-nil Err makes
// the call fail, simulating a transport failure.
type ScriptedResponse struct {
	Text         string
	ToolRequests []*ai.ToolRequest
	Err          error
}

type mockRule struct {
	pattern  string // substring match in user message, lowercased
	response string
	tools    []*ai.ToolRequest
}

// MockCall records a single call to the mock model.
type MockCall struct {
	UserMessage  string // last user message text
	Response     string // response text returned
	ToolsOffered int    // number of tool definitions in the request
	MessageCount int    // messages in the request
}

// NewMockLLM creates a mock model with the given fallback response.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// Script queues responses returned in order, one per call, before any
// pattern matching applies.
func (m *MockLLM) Script(responses ...ScriptedResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// AddResponse registers a pattern-response pair. When a user message
// contains the pattern (case-insensitive), the response is returned.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// AddToolResponse registers a pattern that triggers tool requests.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, textResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, mockRule{
		pattern:  strings.ToLower(pattern),
		response: textResponse,
		tools:    tools,
	})
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount returns the number of model calls made so far.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and any unconsumed script (registered
// patterns are kept).
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.script = nil
}

// RegisterModel registers the mock as a Genkit model named
// "mock/test-model" and returns the model.
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/test-model", &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

// ModelName returns the provider-qualified name the mock registers under.
func (*MockLLM) ModelName() string { return "mock/test-model" }

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	responseText := m.fallback
	var toolReqs []*ai.ToolRequest
	var scriptErr error

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		responseText = next.Text
		toolReqs = next.ToolRequests
		scriptErr = next.Err
	} else {
		lower := strings.ToLower(userText)
		for i := range m.patterns {
			if strings.Contains(lower, m.patterns[i].pattern) {
				responseText = m.patterns[i].response
				toolReqs = m.patterns[i].tools
				break
			}
		}
	}

	m.calls = append(m.calls, MockCall{
		UserMessage:  userText,
		Response:     responseText,
		ToolsOffered: len(req.Tools),
		MessageCount: len(req.Messages),
	})
	m.mu.Unlock()

	if scriptErr != nil {
		return nil, scriptErr
	}

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(responseText)},
		})
	}

	var parts []*ai.Part
	for _, tr := range toolReqs {
		parts = append(parts, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: tr,
		})
	}
	parts = append(parts, ai.NewTextPart(responseText))

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}
