// Package ingest turns course transcript files into catalog entries and
// embeddable content chunks.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursechat/coursechat/internal/store"
)

// Section is a contiguous run of transcript text belonging to one
// lesson. LessonNumber is nil for text before the first lesson marker.
type Section struct {
	LessonNumber *int
	Content      string
}

// Document is one parsed transcript: catalog metadata plus the raw
// per-lesson text the chunker consumes.
type Document struct {
	Course   store.Course
	Sections []Section
}

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ParseTranscript reads a course transcript. The expected layout is a
// short header followed by lesson blocks:
//
//	Course Title: Building RAG Applications
//	Course Link: https://example.com/rag
//	Course Instructor: Ada Lovelace
//
//	Lesson 1: Introduction
//	Lesson Link: https://example.com/rag/1
//	<lesson text...>
//
// Header lines may appear in any order. A missing title falls back to
// fallbackTitle. Text before the first lesson marker becomes a section
// without a lesson number.
func ParseTranscript(r io.Reader, fallbackTitle string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{Course: store.Course{Title: fallbackTitle}}

	var (
		currentLesson *store.Lesson
		body          strings.Builder
		inHeader      = true
	)

	flush := func() {
		text := strings.TrimSpace(body.String())
		body.Reset()
		if text == "" {
			return
		}
		section := Section{Content: text}
		if currentLesson != nil {
			n := currentLesson.Number
			section.LessonNumber = &n
		}
		doc.Sections = append(doc.Sections, section)
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if inHeader {
			switch {
			case trimmed == "":
				continue
			case strings.HasPrefix(trimmed, "Course Title:"):
				doc.Course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
				continue
			case strings.HasPrefix(trimmed, "Course Link:"):
				doc.Course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
				continue
			case strings.HasPrefix(trimmed, "Course Instructor:"):
				doc.Course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
				continue
			default:
				inHeader = false
			}
		}

		if m := lessonMarker.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("invalid lesson number in %q: %w", trimmed, err)
			}
			doc.Course.Lessons = append(doc.Course.Lessons, store.Lesson{
				Number: number,
				Title:  strings.TrimSpace(m[2]),
			})
			currentLesson = &doc.Course.Lessons[len(doc.Course.Lessons)-1]
			continue
		}

		if currentLesson != nil && currentLesson.Link == "" && body.Len() == 0 &&
			strings.HasPrefix(trimmed, "Lesson Link:") {
			currentLesson.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			continue
		}

		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	flush()

	if doc.Course.Title == "" {
		return nil, fmt.Errorf("transcript has no course title and no fallback was given")
	}
	return doc, nil
}
