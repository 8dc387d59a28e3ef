package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/store"
)

// SearchToolName is the wire name of the content search tool.
const SearchToolName = "search_course_content"

// ContentSearcher is the retrieval surface the search tool depends on.
type ContentSearcher interface {
	Search(ctx context.Context, query string, opts ...store.SearchOption) store.SearchResults
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, bool)
	CourseLink(ctx context.Context, title string) (string, bool)
}

// SearchInput is the wire schema of the search tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema_description:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title (partial matches work, e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// SearchTool performs semantic search over course content with optional
// course and lesson filtering. Safe for concurrent use.
type SearchTool struct {
	store  ContentSearcher
	logger log.Logger

	mu      sync.Mutex
	sources []Source
}

// NewSearchTool creates the content search tool.
func NewSearchTool(store ContentSearcher, logger log.Logger) *SearchTool {
	return &SearchTool{store: store, logger: logger}
}

// Name implements Tool.
func (*SearchTool) Name() string { return SearchToolName }

// Attach implements Tool.
func (t *SearchTool) Attach(g *genkit.Genkit) ai.ToolRef {
	return genkit.DefineTool(g, SearchToolName,
		"Search course materials with smart course name matching and lesson filtering. "+
			"Use for questions about specific course content or detailed educational materials.",
		func(ctx *ai.ToolContext, in SearchInput) (string, error) {
			// Execution is dispatched through the registry; this
			// handler only exists so the schema reaches the model.
			return t.run(ctx, in), nil
		})
}

// Execute implements Tool.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) string {
	var in SearchInput
	query, ok := argString(args, "query")
	if !ok {
		t.setSources(nil)
		return "Tool execution error: missing required parameter 'query'"
	}
	in.Query = query
	if name, ok := argString(args, "course_name"); ok && name != "" {
		in.CourseName = name
	}
	if n, ok := argInt(args, "lesson_number"); ok {
		in.LessonNumber = &n
	}
	return t.run(ctx, in)
}

func (t *SearchTool) run(ctx context.Context, in SearchInput) string {
	opts := []store.SearchOption{}
	if in.CourseName != "" {
		opts = append(opts, store.WithCourseName(in.CourseName))
	}
	if in.LessonNumber != nil {
		opts = append(opts, store.WithLessonNumber(*in.LessonNumber))
	}

	results := t.store.Search(ctx, in.Query, opts...)

	if results.Err != "" {
		t.setSources(nil)
		return results.Err
	}

	if results.IsEmpty() {
		t.setSources(nil)
		var filters strings.Builder
		if in.CourseName != "" {
			fmt.Fprintf(&filters, " in course '%s'", in.CourseName)
		}
		if in.LessonNumber != nil {
			fmt.Fprintf(&filters, " in lesson %d", *in.LessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filters.String())
	}

	return t.format(ctx, results)
}

// format renders the result blocks and records one citation per passage.
func (t *SearchTool) format(ctx context.Context, results store.SearchResults) string {
	var blocks []string
	sources := make([]Source, 0, len(results.Documents))

	for i, doc := range results.Documents {
		meta := results.Metadata[i]

		header := meta.CourseTitle
		src := Source{Text: meta.CourseTitle}
		if meta.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, *meta.LessonNumber)
			src.Text = header
			if link, ok := t.store.LessonLink(ctx, meta.CourseTitle, *meta.LessonNumber); ok {
				src.URL = link
			}
		} else if link, ok := t.store.CourseLink(ctx, meta.CourseTitle); ok {
			src.URL = link
		}

		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, doc))
		sources = append(sources, src)
	}

	t.setSources(sources)
	return strings.Join(blocks, "\n\n")
}

// LastSources implements Tool.
func (t *SearchTool) LastSources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Source, len(t.sources))
	copy(out, t.sources)
	return out
}

// ClearSources implements Tool.
func (t *SearchTool) ClearSources() { t.setSources(nil) }

func (t *SearchTool) setSources(s []Source) {
	t.mu.Lock()
	t.sources = s
	t.mu.Unlock()
}
