package tools

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	g := genkit.Init(context.Background())
	return NewRegistry(g, log.NewNop())
}

func registeredSearchTool(t *testing.T, r *Registry, searcher *fakeSearcher) *SearchTool {
	t.Helper()
	tool := NewSearchTool(searcher, log.NewNop())
	require.NoError(t, r.Register(tool))
	return tool
}

func TestRegistry_RegisterAndOrder(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	searchTool := NewSearchTool(&fakeSearcher{}, log.NewNop())
	outlineTool := NewOutlineTool(&fakeOutliner{}, log.NewNop())

	require.NoError(t, r.Register(searchTool))
	require.NoError(t, r.Register(outlineTool))

	assert.Equal(t, []string{SearchToolName, OutlineToolName}, r.Names())
	assert.Len(t, r.Refs(), 2)
}

func TestRegistry_DuplicateNameFails(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	require.NoError(t, r.Register(NewSearchTool(&fakeSearcher{}, log.NewNop())))

	err := r.Register(NewSearchTool(&fakeSearcher{}, log.NewNop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_ExecuteDispatches(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"Manager test content"},
			[]store.ResultMeta{{CourseTitle: "Manager Course", LessonNumber: intPtr(1)}},
		),
	}
	registeredSearchTool(t, r, searcher)

	out := r.Execute(context.Background(), SearchToolName, map[string]any{"query": "test"})

	assert.Contains(t, out, "Manager Course")
	assert.Contains(t, out, "Manager test content")
}

func TestRegistry_UnknownToolIsText(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	out := r.Execute(context.Background(), "nonexistent_tool", map[string]any{"query": "test"})

	assert.Equal(t, "Tool 'nonexistent_tool' not found", out)
}

func TestRegistry_SourceLifecycle(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"Source test content"},
			[]store.ResultMeta{{CourseTitle: "Source Course", LessonNumber: intPtr(1)}},
		),
		lessonLinks: map[string]map[int]string{
			"Source Course": {1: "https://example.com/source1"},
		},
	}
	registeredSearchTool(t, r, searcher)

	r.Execute(context.Background(), SearchToolName, map[string]any{"query": "test"})

	sources := r.CollectSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "Source Course - Lesson 1", sources[0].Text)
	assert.Equal(t, "https://example.com/source1", sources[0].URL)

	r.ClearSources()
	assert.Empty(t, r.CollectSources())

	// Clearing an already-empty registry stays empty.
	r.ClearSources()
	assert.Empty(t, r.CollectSources())
}

func TestRegistry_CollectSourcesAcrossTools(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"doc"},
			[]store.ResultMeta{{CourseTitle: "Course A", LessonNumber: intPtr(2)}},
		),
	}
	registeredSearchTool(t, r, searcher)

	outliner := &fakeOutliner{
		resolved: map[string]string{"B": "Course B"},
		courses: map[string]*store.Course{
			"Course B": {Title: "Course B", Link: "https://example.com/b"},
		},
	}
	require.NoError(t, r.Register(NewOutlineTool(outliner, log.NewNop())))

	r.Execute(context.Background(), SearchToolName, map[string]any{"query": "q"})
	r.Execute(context.Background(), OutlineToolName, map[string]any{"course_name": "B"})

	sources := r.CollectSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "Course A - Lesson 2", sources[0].Text)
	assert.Equal(t, "Course B", sources[1].Text)
}
