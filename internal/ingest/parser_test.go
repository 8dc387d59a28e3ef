package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTranscript = `Course Title: Building RAG Applications
Course Link: https://example.com/rag
Course Instructor: Ada Lovelace

Lesson 0: Introduction
Lesson Link: https://example.com/rag/0
Welcome to the course. This lesson covers the basics.

Lesson 1: Vector Stores
Vector stores index embeddings. Similarity search ranks them.
`

func TestParseTranscript(t *testing.T) {
	t.Parallel()

	doc, err := ParseTranscript(strings.NewReader(sampleTranscript), "fallback")
	require.NoError(t, err)

	assert.Equal(t, "Building RAG Applications", doc.Course.Title)
	assert.Equal(t, "https://example.com/rag", doc.Course.Link)
	assert.Equal(t, "Ada Lovelace", doc.Course.Instructor)

	require.Len(t, doc.Course.Lessons, 2)
	assert.Equal(t, 0, doc.Course.Lessons[0].Number)
	assert.Equal(t, "Introduction", doc.Course.Lessons[0].Title)
	assert.Equal(t, "https://example.com/rag/0", doc.Course.Lessons[0].Link)
	assert.Equal(t, 1, doc.Course.Lessons[1].Number)
	assert.Equal(t, "Vector Stores", doc.Course.Lessons[1].Title)
	assert.Empty(t, doc.Course.Lessons[1].Link)

	require.Len(t, doc.Sections, 2)
	require.NotNil(t, doc.Sections[0].LessonNumber)
	assert.Equal(t, 0, *doc.Sections[0].LessonNumber)
	assert.Contains(t, doc.Sections[0].Content, "Welcome to the course.")
	require.NotNil(t, doc.Sections[1].LessonNumber)
	assert.Equal(t, 1, *doc.Sections[1].LessonNumber)
}

func TestParseTranscript_NoHeader(t *testing.T) {
	t.Parallel()

	doc, err := ParseTranscript(strings.NewReader("Just some text without structure.\n"), "my_course")
	require.NoError(t, err)

	assert.Equal(t, "my_course", doc.Course.Title)
	assert.Empty(t, doc.Course.Lessons)
	require.Len(t, doc.Sections, 1)
	assert.Nil(t, doc.Sections[0].LessonNumber)
	assert.Equal(t, "Just some text without structure.", doc.Sections[0].Content)
}

func TestParseTranscript_IntroBeforeFirstLesson(t *testing.T) {
	t.Parallel()

	input := `Course Title: Intro Course

This overview precedes any lesson.

Lesson 1: Start
Lesson one text.
`
	doc, err := ParseTranscript(strings.NewReader(input), "")
	require.NoError(t, err)

	require.Len(t, doc.Sections, 2)
	assert.Nil(t, doc.Sections[0].LessonNumber)
	assert.Equal(t, "This overview precedes any lesson.", doc.Sections[0].Content)
	require.NotNil(t, doc.Sections[1].LessonNumber)
	assert.Equal(t, 1, *doc.Sections[1].LessonNumber)
}

func TestParseTranscript_LessonLinkOnlyDirectlyAfterMarker(t *testing.T) {
	t.Parallel()

	input := `Course Title: X

Lesson 1: A
Some text first.
Lesson Link: https://example.com/late
`
	doc, err := ParseTranscript(strings.NewReader(input), "")
	require.NoError(t, err)

	require.Len(t, doc.Course.Lessons, 1)
	assert.Empty(t, doc.Course.Lessons[0].Link)
	assert.Contains(t, doc.Sections[0].Content, "Lesson Link: https://example.com/late")
}

func TestParseTranscript_NoTitleNoFallback(t *testing.T) {
	t.Parallel()

	_, err := ParseTranscript(strings.NewReader("text\n"), "")
	assert.Error(t, err)
}
