package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/store"
)

// fakeOutliner implements CourseOutliner over an in-memory catalog.
type fakeOutliner struct {
	resolved map[string]string // fuzzy name -> exact title
	courses  map[string]*store.Course
	metaErr  error
}

func (f *fakeOutliner) ResolveCourseName(_ context.Context, name string) (string, bool) {
	title, ok := f.resolved[name]
	return title, ok
}

func (f *fakeOutliner) CourseMetadata(_ context.Context, title string) (*store.Course, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	c, ok := f.courses[title]
	if !ok {
		return nil, fmt.Errorf("course %q not found", title)
	}
	return c, nil
}

func TestOutlineTool_FullOutline(t *testing.T) {
	t.Parallel()

	outliner := &fakeOutliner{
		resolved: map[string]string{"MCP": "MCP: Build Rich-Context AI Apps"},
		courses: map[string]*store.Course{
			"MCP: Build Rich-Context AI Apps": {
				Title: "MCP: Build Rich-Context AI Apps",
				Link:  "https://example.com/mcp",
				Lessons: []store.Lesson{
					{Number: 0, Title: "Introduction"},
					{Number: 1, Title: "Why MCP"},
					{Number: 2, Title: "Architecture"},
				},
			},
		},
	}
	tool := NewOutlineTool(outliner, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"course_name": "MCP"})

	assert.Contains(t, out, "Course Title: MCP: Build Rich-Context AI Apps")
	assert.Contains(t, out, "Course Link: https://example.com/mcp")
	assert.Contains(t, out, "Lessons (3):")
	assert.Contains(t, out, "Lesson 0: Introduction")
	assert.Contains(t, out, "Lesson 1: Why MCP")
	assert.Contains(t, out, "Lesson 2: Architecture")

	sources := tool.LastSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "MCP: Build Rich-Context AI Apps", sources[0].Text)
	assert.Equal(t, "https://example.com/mcp", sources[0].URL)
}

func TestOutlineTool_UnresolvableCourse(t *testing.T) {
	t.Parallel()

	tool := NewOutlineTool(&fakeOutliner{resolved: map[string]string{}}, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"course_name": "Quantum Basket Weaving"})

	assert.Equal(t, "No course found matching 'Quantum Basket Weaving'", out)
	assert.Empty(t, tool.LastSources())
}

func TestOutlineTool_MetadataFailure(t *testing.T) {
	t.Parallel()

	outliner := &fakeOutliner{
		resolved: map[string]string{"AI": "AI Course"},
		metaErr:  fmt.Errorf("connection reset"),
	}
	tool := NewOutlineTool(outliner, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"course_name": "AI"})

	assert.Equal(t, "Failed to load outline for 'AI Course'", out)
	assert.Empty(t, tool.LastSources())
}

func TestOutlineTool_MissingCourseName(t *testing.T) {
	t.Parallel()

	tool := NewOutlineTool(&fakeOutliner{}, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{})

	assert.Contains(t, out, "missing required parameter 'course_name'")
}
