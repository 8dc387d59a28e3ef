package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/store"
)

// Indexer is the catalog surface the ingester writes to.
type Indexer interface {
	CourseTitles(ctx context.Context) ([]string, error)
	AddCourse(ctx context.Context, course store.Course) error
	AddChunks(ctx context.Context, chunks []store.Chunk) error
}

// Ingester parses transcripts and writes courses and chunks to the
// content store.
type Ingester struct {
	indexer      Indexer
	chunkSize    int
	chunkOverlap int
	logger       log.Logger
}

// New creates an Ingester. chunkSize and chunkOverlap are in
// characters; overlap must be smaller than size.
func New(indexer Indexer, chunkSize, chunkOverlap int, logger log.Logger) *Ingester {
	return &Ingester{
		indexer:      indexer,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// Chunks converts a parsed document into store chunks with a context
// prefix naming the course (and lesson, when known) so passages stay
// attributable after retrieval.
func (ing *Ingester) Chunks(doc *Document) []store.Chunk {
	var chunks []store.Chunk
	index := 0
	for _, section := range doc.Sections {
		for _, text := range ChunkText(section.Content, ing.chunkSize, ing.chunkOverlap) {
			var content string
			if section.LessonNumber != nil {
				content = fmt.Sprintf("Course %s Lesson %d content: %s",
					doc.Course.Title, *section.LessonNumber, text)
			} else {
				content = fmt.Sprintf("Course %s content: %s", doc.Course.Title, text)
			}
			chunks = append(chunks, store.Chunk{
				CourseTitle:  doc.Course.Title,
				LessonNumber: section.LessonNumber,
				ChunkIndex:   index,
				Content:      content,
			})
			index++
		}
	}
	return chunks
}

// AddCourseFile parses one transcript file and indexes its course and
// chunks. Returns the parsed course and the number of chunks stored.
func (ing *Ingester) AddCourseFile(ctx context.Context, path string) (store.Course, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.Course{}, 0, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc, err := ParseTranscript(f, fallback)
	if err != nil {
		return store.Course{}, 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := ing.indexer.AddCourse(ctx, doc.Course); err != nil {
		return store.Course{}, 0, err
	}
	chunks := ing.Chunks(doc)
	if err := ing.indexer.AddChunks(ctx, chunks); err != nil {
		return store.Course{}, 0, err
	}

	ing.logger.Info("indexed course",
		"title", doc.Course.Title,
		"lessons", len(doc.Course.Lessons),
		"chunks", len(chunks))
	return doc.Course, len(chunks), nil
}

// AddCourseFolder indexes every transcript in dir, skipping courses
// whose titles are already in the catalog. Returns the number of new
// courses and chunks added.
func (ing *Ingester) AddCourseFolder(ctx context.Context, dir string) (int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read docs folder: %w", err)
	}

	existing, err := ing.indexer.CourseTitles(ctx)
	if err != nil {
		return 0, 0, err
	}
	indexed := make(map[string]bool, len(existing))
	for _, title := range existing {
		indexed[title] = true
	}

	coursesAdded, chunksAdded := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !isTranscript(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		f, err := os.Open(path)
		if err != nil {
			ing.logger.Warn("skipping unreadable transcript", "path", path, "error", err)
			continue
		}
		fallback := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		doc, err := ParseTranscript(f, fallback)
		f.Close()
		if err != nil {
			ing.logger.Warn("skipping unparseable transcript", "path", path, "error", err)
			continue
		}

		if indexed[doc.Course.Title] {
			ing.logger.Debug("course already indexed", "title", doc.Course.Title)
			continue
		}

		if err := ing.indexer.AddCourse(ctx, doc.Course); err != nil {
			return coursesAdded, chunksAdded, err
		}
		chunks := ing.Chunks(doc)
		if err := ing.indexer.AddChunks(ctx, chunks); err != nil {
			return coursesAdded, chunksAdded, err
		}

		indexed[doc.Course.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)
		ing.logger.Info("indexed course",
			"title", doc.Course.Title,
			"lessons", len(doc.Course.Lessons),
			"chunks", len(chunks))
	}
	return coursesAdded, chunksAdded, nil
}

func isTranscript(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
