// Package generate drives the model conversation for a single query,
// including bounded rounds of sequential tool calling.
package generate

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/coursechat/coursechat/internal/log"
)

// systemPrompt steers the model toward tool-grounded answers about
// course materials. It is static; per-query context (conversation
// history) is appended at call time.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to comprehensive tools for course information.

Available Tools:
1. **search_course_content**: For finding specific course content and detailed educational materials
2. **get_course_outline**: For retrieving complete course outlines including title, course link, and all lessons with their numbers and titles

Tool Usage Guidelines:
- **Sequential tool calling**: You can make multiple rounds of tool calls to gather comprehensive information
- **Strategic approach**: Use results from first tools to inform second round of searches when needed
- Use **search_course_content** for questions about specific course content and detailed educational materials
- Use **get_course_outline** for questions about course structure, lesson lists, or when users ask for a course outline/overview
- Synthesize tool results into accurate, fact-based responses
- If tools yield no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without using tools
- **Course content questions**: Use search_course_content tool first, then answer
- **Course outline questions**: Use get_course_outline tool first, then answer
- **Complex queries**: Use sequential tools strategically (e.g., get outline, then search specific content)
- **No meta-commentary**: Provide direct answers only, without reasoning process or tool explanations

For outline responses, always include:
- Course title
- Course link (if available)
- Complete list of lessons with lesson numbers and titles

All responses must be:
1. **Brief, concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

// ToolDispatcher is the registry surface the engine needs: which tools
// to advertise and how to run one. Dispatch results are text; a failed
// tool reports its failure in that text rather than through an error.
type ToolDispatcher interface {
	Refs() []ai.ToolRef
	Execute(ctx context.Context, name string, args map[string]any) string
}

// Config configures an Engine.
type Config struct {
	Genkit        *genkit.Genkit
	ModelName     string  // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Temperature   float32
	MaxTokens     int
	MaxToolRounds int // sequential tool rounds per query
	Logger        log.Logger
}

func (c *Config) validate() error {
	if c.Genkit == nil {
		return fmt.Errorf("genkit instance is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if c.MaxToolRounds < 1 {
		return fmt.Errorf("max tool rounds must be at least 1, got %d", c.MaxToolRounds)
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// Engine generates answers to course-material questions. For a query
// that needs retrieval, it runs up to MaxToolRounds rounds of tool
// calls; the call after the final round carries no tools, which forces
// a terminal answer. A query answered without tools costs exactly one
// model call; with tools, at most MaxToolRounds+1.
type Engine struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	maxTokens   int
	maxRounds   int
	logger      log.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRounds:   cfg.MaxToolRounds,
		logger:      cfg.Logger,
	}, nil
}

// Request is one generation request.
type Request struct {
	// Query is the user's question, already framed by the caller.
	Query string

	// History is the rendered prior conversation; empty for a fresh
	// session. It is appended to the system directive, not replayed as
	// messages.
	History string

	// Tools supplies the tool surface. Nil disables tool use entirely.
	Tools ToolDispatcher
}

// Generate runs the conversation for one query and returns the final
// answer text. Tool failures surface to the model as response text;
// only model transport failures return an error.
func (e *Engine) Generate(ctx context.Context, req Request) (string, error) {
	system := systemPrompt
	if req.History != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, req.History)
	}

	messages := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(req.Query)),
	}

	withTools := req.Tools != nil && len(req.Tools.Refs()) > 0

	resp, err := e.call(ctx, system, messages, req.Tools, withTools)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if req.Tools == nil || len(resp.ToolRequests()) == 0 {
		return resp.Text(), nil
	}

	// Sequential tool rounds. Each iteration dispatches every tool the
	// model requested, bundles the results into one tool message, and
	// calls the model again. Tools are withheld on the final round so
	// the model must produce a terminal answer.
	for round := 1; round <= e.maxRounds && len(resp.ToolRequests()) > 0; round++ {
		messages = append(messages, resp.Message)

		parts := make([]*ai.Part, 0, len(resp.ToolRequests()))
		for _, tr := range resp.ToolRequests() {
			e.logger.Debug("dispatching tool", "tool", tr.Name, "round", round)
			output := req.Tools.Execute(ctx, tr.Name, toolArgs(tr.Input))
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   tr.Name,
				Ref:    tr.Ref,
				Output: output,
			}))
		}
		messages = append(messages, ai.NewMessage(ai.RoleTool, nil, parts...))

		resp, err = e.call(ctx, system, messages, req.Tools, round < e.maxRounds)
		if err != nil {
			return "", fmt.Errorf("generation failed after tool round %d: %w", round, err)
		}
	}

	return resp.Text(), nil
}

// call issues one model call. Tool requests are returned to the caller
// rather than auto-executed; dispatch stays in this package so results
// can be bundled the way the round loop requires.
func (e *Engine) call(ctx context.Context, system string, messages []*ai.Message, tools ToolDispatcher, withTools bool) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(e.modelName),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(e.temperature),
			MaxOutputTokens: e.maxTokens,
		}),
	}
	if withTools && tools != nil {
		opts = append(opts,
			ai.WithTools(tools.Refs()...),
			ai.WithReturnToolRequests(true),
		)
	}
	return genkit.Generate(ctx, e.g, opts...)
}

// toolArgs normalizes a tool request input to the argument map tools
// consume. Model-sent inputs decode as map[string]any; anything else
// yields an empty map.
func toolArgs(input any) map[string]any {
	if m, ok := input.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
