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

// OutlineToolName is the wire name of the course outline tool.
const OutlineToolName = "get_course_outline"

// CourseOutliner is the catalog surface the outline tool depends on.
type CourseOutliner interface {
	ResolveCourseName(ctx context.Context, name string) (string, bool)
	CourseMetadata(ctx context.Context, title string) (*store.Course, error)
}

// OutlineInput is the wire schema of the outline tool.
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title (partial matches work, e.g. 'MCP', 'Introduction')"`
}

// OutlineTool returns a course's full outline: title, link, and the
// numbered lesson list. Safe for concurrent use.
type OutlineTool struct {
	store  CourseOutliner
	logger log.Logger

	mu      sync.Mutex
	sources []Source
}

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(store CourseOutliner, logger log.Logger) *OutlineTool {
	return &OutlineTool{store: store, logger: logger}
}

// Name implements Tool.
func (*OutlineTool) Name() string { return OutlineToolName }

// Attach implements Tool.
func (t *OutlineTool) Attach(g *genkit.Genkit) ai.ToolRef {
	return genkit.DefineTool(g, OutlineToolName,
		"Get the complete outline of a course: title, course link, and the full numbered lesson list. "+
			"Use for questions about a course's structure or what lessons it contains.",
		func(ctx *ai.ToolContext, in OutlineInput) (string, error) {
			return t.run(ctx, in), nil
		})
}

// Execute implements Tool.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) string {
	name, ok := argString(args, "course_name")
	if !ok || name == "" {
		t.setSources(nil)
		return "Tool execution error: missing required parameter 'course_name'"
	}
	return t.run(ctx, OutlineInput{CourseName: name})
}

func (t *OutlineTool) run(ctx context.Context, in OutlineInput) string {
	title, ok := t.store.ResolveCourseName(ctx, in.CourseName)
	if !ok {
		t.setSources(nil)
		return fmt.Sprintf("No course found matching '%s'", in.CourseName)
	}

	course, err := t.store.CourseMetadata(ctx, title)
	if err != nil {
		t.logger.Warn("outline lookup failed", "course", title, "error", err)
		t.setSources(nil)
		return fmt.Sprintf("Failed to load outline for '%s'", title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course Title: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(course.Lessons))
	for _, lesson := range course.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	t.setSources([]Source{{Text: course.Title, URL: course.Link}})
	return strings.TrimRight(b.String(), "\n")
}

// LastSources implements Tool.
func (t *OutlineTool) LastSources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Source, len(t.sources))
	copy(out, t.sources)
	return out
}

// ClearSources implements Tool.
func (t *OutlineTool) ClearSources() { t.setSources(nil) }

func (t *OutlineTool) setSources(s []Source) {
	t.mu.Lock()
	t.sources = s
	t.mu.Unlock()
}
