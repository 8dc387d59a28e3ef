package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/store"
)

// fakeSearcher implements ContentSearcher with canned results.
type fakeSearcher struct {
	results     store.SearchResults
	lessonLinks map[string]map[int]string
	courseLinks map[string]string

	gotQuery  string
	gotParams store.SearchParams
}

func (f *fakeSearcher) Search(_ context.Context, query string, opts ...store.SearchOption) store.SearchResults {
	f.gotQuery = query
	f.gotParams = store.NewSearchParams(5, opts...)
	return f.results
}

func (f *fakeSearcher) LessonLink(_ context.Context, title string, n int) (string, bool) {
	link, ok := f.lessonLinks[title][n]
	return link, ok && link != ""
}

func (f *fakeSearcher) CourseLink(_ context.Context, title string) (string, bool) {
	link, ok := f.courseLinks[title]
	return link, ok && link != ""
}

func intPtr(n int) *int { return &n }

func resultsWith(docs []string, meta []store.ResultMeta) store.SearchResults {
	dists := make([]float64, len(docs))
	for i := range dists {
		dists[i] = 0.1 * float64(i+1)
	}
	return store.SearchResults{Documents: docs, Metadata: meta, Distances: dists}
}

func TestSearchTool_BasicQuery(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"Anchoring is a cognitive bias"},
			[]store.ResultMeta{{CourseTitle: "AI Course", LessonNumber: intPtr(1)}},
		),
		lessonLinks: map[string]map[int]string{
			"AI Course": {1: "https://example.com/lesson1"},
		},
	}
	tool := NewSearchTool(searcher, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"query": "what is anchoring"})

	assert.Equal(t, "what is anchoring", searcher.gotQuery)
	assert.Contains(t, out, "[AI Course - Lesson 1]")
	assert.Contains(t, out, "Anchoring is a cognitive bias")

	sources := tool.LastSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "AI Course - Lesson 1", sources[0].Text)
	assert.Equal(t, "https://example.com/lesson1", sources[0].URL)
}

func TestSearchTool_FiltersForwarded(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"Lesson specific content"},
			[]store.ResultMeta{{CourseTitle: "MCP Course", LessonNumber: intPtr(3)}},
		),
	}
	tool := NewSearchTool(searcher, log.NewNop())

	tool.Execute(context.Background(), map[string]any{
		"query":         "servers",
		"course_name":   "MCP",
		"lesson_number": float64(3), // JSON numbers decode as float64
	})

	assert.Equal(t, "MCP", searcher.gotParams.CourseName)
	require.NotNil(t, searcher.gotParams.LessonNumber)
	assert.Equal(t, 3, *searcher.gotParams.LessonNumber)
}

func TestSearchTool_EmptyResultsNameFilters(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: store.SearchResults{}}
	tool := NewSearchTool(searcher, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{
		"query":         "test",
		"course_name":   "Nonexistent Course",
		"lesson_number": float64(99),
	})

	assert.Contains(t, out, "No relevant content found")
	assert.Contains(t, out, "in course 'Nonexistent Course'")
	assert.Contains(t, out, "in lesson 99")
	assert.Empty(t, tool.LastSources())
}

func TestSearchTool_EmptyResultsNoFilters(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: store.SearchResults{}}
	tool := NewSearchTool(searcher, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"query": "unknown topic"})

	assert.Equal(t, "No relevant content found.", out)
}

func TestSearchTool_ErrorReturnedVerbatim(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		results: store.SearchResults{Err: "Database connection failed"},
	}
	tool := NewSearchTool(searcher, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"query": "test query"})

	assert.Equal(t, "Database connection failed", out)
	assert.Empty(t, tool.LastSources())
}

func TestSearchTool_SourcesOverwrittenPerExecution(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"first"},
			[]store.ResultMeta{{CourseTitle: "Course A", LessonNumber: intPtr(1)}},
		),
	}
	tool := NewSearchTool(searcher, log.NewNop())

	tool.Execute(context.Background(), map[string]any{"query": "one"})
	require.Len(t, tool.LastSources(), 1)
	assert.Equal(t, "Course A - Lesson 1", tool.LastSources()[0].Text)

	searcher.results = resultsWith(
		[]string{"second", "third"},
		[]store.ResultMeta{
			{CourseTitle: "Course B", LessonNumber: intPtr(2)},
			{CourseTitle: "Course C", LessonNumber: intPtr(3)},
		},
	)
	tool.Execute(context.Background(), map[string]any{"query": "two"})

	sources := tool.LastSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "Course B - Lesson 2", sources[0].Text)
	assert.Equal(t, "Course C - Lesson 3", sources[1].Text)
}

func TestSearchTool_MissingLessonNumberMetadata(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"Content with incomplete metadata"},
			[]store.ResultMeta{{CourseTitle: "Test Course"}},
		),
		courseLinks: map[string]string{"Test Course": "https://example.com/course"},
	}
	tool := NewSearchTool(searcher, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"query": "test"})

	assert.Contains(t, out, "[Test Course]")

	sources := tool.LastSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "Test Course", sources[0].Text)
	assert.Equal(t, "https://example.com/course", sources[0].URL)
}

func TestSearchTool_MissingQuery(t *testing.T) {
	t.Parallel()

	tool := NewSearchTool(&fakeSearcher{}, log.NewNop())

	out := tool.Execute(context.Background(), map[string]any{"course_name": "AI"})

	assert.Contains(t, out, "missing required parameter 'query'")
	assert.Empty(t, tool.LastSources())
}

func TestSearchTool_ClearSources(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		results: resultsWith(
			[]string{"doc"},
			[]store.ResultMeta{{CourseTitle: "Course", LessonNumber: intPtr(1)}},
		),
	}
	tool := NewSearchTool(searcher, log.NewNop())

	tool.Execute(context.Background(), map[string]any{"query": "q"})
	require.NotEmpty(t, tool.LastSources())

	tool.ClearSources()
	assert.Empty(t, tool.LastSources())
	tool.ClearSources() // clearing twice is a no-op
	assert.Empty(t, tool.LastSources())
}
