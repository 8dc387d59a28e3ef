package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/testutil"
)

// recordingDispatcher implements ToolDispatcher with canned outputs and
// records every dispatch in order.
type recordingDispatcher struct {
	outputs map[string]string
	refs    []ai.ToolRef

	mu         sync.Mutex
	dispatches []dispatch
}

type dispatch struct {
	name string
	args map[string]any
}

func newRecordingDispatcher(g *genkit.Genkit, outputs map[string]string) *recordingDispatcher {
	d := &recordingDispatcher{outputs: outputs}
	for name := range outputs {
		d.refs = append(d.refs, genkit.DefineTool(g, name, "test tool",
			func(_ *ai.ToolContext, _ map[string]any) (string, error) {
				return "", nil
			}))
	}
	return d
}

func (d *recordingDispatcher) Refs() []ai.ToolRef {
	return d.refs
}

func (d *recordingDispatcher) Execute(_ context.Context, name string, args map[string]any) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatches = append(d.dispatches, dispatch{name: name, args: args})
	if out, ok := d.outputs[name]; ok {
		return out
	}
	return fmt.Sprintf("Tool '%s' not found", name)
}

func (d *recordingDispatcher) Dispatches() []dispatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]dispatch, len(d.dispatches))
	copy(cp, d.dispatches)
	return cp
}

func newTestEngine(t *testing.T, mock *testutil.MockLLM, maxRounds int) (*Engine, *genkit.Genkit) {
	t.Helper()
	g := genkit.Init(context.Background())
	mock.RegisterModel(g)

	engine, err := New(Config{
		Genkit:        g,
		ModelName:     mock.ModelName(),
		Temperature:   0,
		MaxTokens:     800,
		MaxToolRounds: maxRounds,
		Logger:        log.NewNop(),
	})
	require.NoError(t, err)
	return engine, g
}

func searchRequest(ref, query string) *ai.ToolRequest {
	return &ai.ToolRequest{
		Name:  "search_course_content",
		Ref:   ref,
		Input: map[string]any{"query": query},
	}
}

func TestEngine_DirectAnswerWithoutTools(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.Script(testutil.ScriptedResponse{Text: "Paris is the capital of France."})

	engine, g := newTestEngine(t, mock, 2)
	dispatcher := newRecordingDispatcher(g, map[string]string{"search_course_content": "unused"})

	answer, err := engine.Generate(context.Background(), Request{
		Query: "What is the capital of France?",
		Tools: dispatcher,
	})
	require.NoError(t, err)

	assert.Equal(t, "Paris is the capital of France.", answer)
	assert.Equal(t, 1, mock.CallCount())
	assert.Empty(t, dispatcher.Dispatches())
}

func TestEngine_NilToolsSkipsToolPlumbing(t *testing.T) {
	mock := testutil.NewMockLLM("plain answer")

	engine, _ := newTestEngine(t, mock, 2)

	answer, err := engine.Generate(context.Background(), Request{Query: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "plain answer", answer)
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Zero(t, calls[0].ToolsOffered)
}

func TestEngine_TwoRoundScenario(t *testing.T) {
	// Outline first, then a targeted search, then the terminal answer:
	// three model calls, two tool dispatches.
	mock := testutil.NewMockLLM("fallback")
	mock.Script(
		testutil.ScriptedResponse{ToolRequests: []*ai.ToolRequest{{
			Name:  "get_course_outline",
			Ref:   "call-1",
			Input: map[string]any{"course_name": "MCP"},
		}}},
		testutil.ScriptedResponse{ToolRequests: []*ai.ToolRequest{
			searchRequest("call-2", "lesson 4 details"),
		}},
		testutil.ScriptedResponse{Text: "Lesson 4 covers resource templates."},
	)

	engine, g := newTestEngine(t, mock, 2)
	dispatcher := newRecordingDispatcher(g, map[string]string{
		"get_course_outline":    "Course Title: MCP\nLesson 4: Resources",
		"search_course_content": "[MCP - Lesson 4]\nResource templates...",
	})

	answer, err := engine.Generate(context.Background(), Request{
		Query: "What does lesson 4 of the MCP course cover?",
		Tools: dispatcher,
	})
	require.NoError(t, err)

	assert.Equal(t, "Lesson 4 covers resource templates.", answer)
	assert.Equal(t, 3, mock.CallCount())

	dispatches := dispatcher.Dispatches()
	require.Len(t, dispatches, 2)
	assert.Equal(t, "get_course_outline", dispatches[0].name)
	assert.Equal(t, "search_course_content", dispatches[1].name)
	assert.Equal(t, "lesson 4 details", dispatches[1].args["query"])
}

func TestEngine_RoundBound(t *testing.T) {
	// A model that always wants tools is cut off after MaxToolRounds:
	// at most R+1 calls, and the final call offers no tools.
	const maxRounds = 2

	mock := testutil.NewMockLLM("fallback")
	mock.Script(
		testutil.ScriptedResponse{ToolRequests: []*ai.ToolRequest{searchRequest("c1", "first")}},
		testutil.ScriptedResponse{ToolRequests: []*ai.ToolRequest{searchRequest("c2", "second")}},
		// Final round carries no tools, so even a greedy mock can only
		// answer with text here.
		testutil.ScriptedResponse{Text: "Forced terminal answer."},
	)

	engine, g := newTestEngine(t, mock, maxRounds)
	dispatcher := newRecordingDispatcher(g, map[string]string{
		"search_course_content": "some content",
	})

	answer, err := engine.Generate(context.Background(), Request{
		Query: "keep searching",
		Tools: dispatcher,
	})
	require.NoError(t, err)

	assert.Equal(t, "Forced terminal answer.", answer)

	calls := mock.Calls()
	require.Len(t, calls, maxRounds+1)
	assert.Positive(t, calls[0].ToolsOffered)
	assert.Positive(t, calls[1].ToolsOffered)
	assert.Zero(t, calls[2].ToolsOffered, "final call must not offer tools")

	assert.Len(t, dispatcher.Dispatches(), maxRounds)
}

func TestEngine_MultipleToolCallsBundledInOneRound(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.Script(
		testutil.ScriptedResponse{ToolRequests: []*ai.ToolRequest{
			searchRequest("c1", "topic a"),
			searchRequest("c2", "topic b"),
		}},
		testutil.ScriptedResponse{Text: "Combined answer."},
	)

	engine, g := newTestEngine(t, mock, 2)
	dispatcher := newRecordingDispatcher(g, map[string]string{
		"search_course_content": "content",
	})

	answer, err := engine.Generate(context.Background(), Request{
		Query: "compare topic a and topic b",
		Tools: dispatcher,
	})
	require.NoError(t, err)
	assert.Equal(t, "Combined answer.", answer)

	// Both calls dispatched, in the order the model listed them.
	dispatches := dispatcher.Dispatches()
	require.Len(t, dispatches, 2)
	assert.Equal(t, "topic a", dispatches[0].args["query"])
	assert.Equal(t, "topic b", dispatches[1].args["query"])

	// The second model call saw both tool results in one extra pair of
	// messages: user query, model tool-use message, one tool message.
	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 3, calls[1].MessageCount)
}

func TestEngine_ToolFailureReachesModelAsText(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.Script(
		testutil.ScriptedResponse{ToolRequests: []*ai.ToolRequest{{
			Name:  "nonexistent_tool",
			Ref:   "c1",
			Input: map[string]any{"query": "x"},
		}}},
		testutil.ScriptedResponse{Text: "I could not find that tool."},
	)

	engine, g := newTestEngine(t, mock, 2)
	dispatcher := newRecordingDispatcher(g, map[string]string{
		"search_course_content": "content",
	})

	answer, err := engine.Generate(context.Background(), Request{
		Query: "use a strange tool",
		Tools: dispatcher,
	})
	require.NoError(t, err, "a failed tool must not abort generation")
	assert.Equal(t, "I could not find that tool.", answer)
	require.Len(t, dispatcher.Dispatches(), 1)
}

func TestEngine_HistoryAppendedToSystem(t *testing.T) {
	mock := testutil.NewMockLLM("answer")

	engine, _ := newTestEngine(t, mock, 2)

	_, err := engine.Generate(context.Background(), Request{
		Query:   "and what about lesson 2?",
		History: "User: What is MCP?\nAssistant: A protocol.",
	})
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "and what about lesson 2?", calls[0].UserMessage)
}

func TestEngine_TransportErrorPropagates(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.Script(testutil.ScriptedResponse{Err: errors.New("connection reset by peer")})

	engine, _ := newTestEngine(t, mock, 2)

	_, err := engine.Generate(context.Background(), Request{Query: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed")
}

func TestEngine_TransportErrorMidRoundsPropagates(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.Script(
		testutil.ScriptedResponse{ToolRequests: []*ai.ToolRequest{searchRequest("c1", "q")}},
		testutil.ScriptedResponse{Err: errors.New("boom")},
	)

	engine, g := newTestEngine(t, mock, 2)
	dispatcher := newRecordingDispatcher(g, map[string]string{
		"search_course_content": "content",
	})

	_, err := engine.Generate(context.Background(), Request{Query: "q", Tools: dispatcher})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool round 1")
}

func TestNew_Validation(t *testing.T) {
	g := genkit.Init(context.Background())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing genkit", Config{ModelName: "m", MaxToolRounds: 2, Logger: log.NewNop()}},
		{"missing model", Config{Genkit: g, MaxToolRounds: 2, Logger: log.NewNop()}},
		{"zero rounds", Config{Genkit: g, ModelName: "m", MaxToolRounds: 0, Logger: log.NewNop()}},
		{"missing logger", Config{Genkit: g, ModelName: "m", MaxToolRounds: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}
