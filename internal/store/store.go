// Package store manages the course catalog and embedded content chunks
// with vector search over PostgreSQL + pgvector.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/coursechat/coursechat/internal/log"
)

// Querier is the subset of pgxpool.Pool the store depends on.
// Consumer-defined so tests can substitute a fake or a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// searchTimeout bounds a single vector search, embedding included.
const searchTimeout = 10 * time.Second

// Store provides catalog lookups and semantic content search.
// Safe for concurrent use.
type Store struct {
	db         Querier
	embedder   ai.Embedder
	maxResults int
	logger     log.Logger
}

// New creates a Store. maxResults caps the number of passages a search
// returns when no explicit limit is given.
func New(db Querier, embedder ai.Embedder, maxResults int, logger log.Logger) *Store {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Store{
		db:         db,
		embedder:   embedder,
		maxResults: maxResults,
		logger:     logger,
	}
}

// SearchOption configures a Search call.
type SearchOption func(*SearchParams)

// SearchParams is the resolved set of search filters. Exported so fakes
// implementing the search surface can inspect the options they receive.
type SearchParams struct {
	CourseName   string
	LessonNumber *int
	Limit        int
}

// NewSearchParams resolves a list of options against a default limit.
func NewSearchParams(defaultLimit int, opts ...SearchOption) SearchParams {
	p := SearchParams{Limit: defaultLimit}
	for _, opt := range opts {
		opt(&p)
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	return p
}

// WithCourseName restricts the search to one course. The name may be
// partial or misspelled; it is resolved against the catalog first.
func WithCourseName(name string) SearchOption {
	return func(p *SearchParams) { p.CourseName = name }
}

// WithLessonNumber restricts the search to one lesson.
func WithLessonNumber(n int) SearchOption {
	return func(p *SearchParams) { p.LessonNumber = &n }
}

// WithLimit overrides the configured result cap.
func WithLimit(n int) SearchOption {
	return func(p *SearchParams) { p.Limit = n }
}

// Search embeds the query and returns the closest content chunks, most
// similar first. An unresolvable course filter or a backend failure is
// reported in SearchResults.Err, never as a panic or Go error.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) SearchResults {
	params := NewSearchParams(s.maxResults, opts...)

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var courseTitle string
	if params.CourseName != "" {
		title, ok := s.ResolveCourseName(ctx, params.CourseName)
		if !ok {
			return SearchResults{Err: fmt.Sprintf("No course found matching '%s'", params.CourseName)}
		}
		courseTitle = title
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return SearchResults{Err: fmt.Sprintf("Search error: %v", err)}
	}

	sql := `SELECT content, course_title, lesson_number, chunk_index, embedding <=> $1 AS distance
	        FROM chunks`
	args := []any{vec}
	if courseTitle != "" {
		sql += ` WHERE course_title = $2`
		args = append(args, courseTitle)
		if params.LessonNumber != nil {
			sql += ` AND lesson_number = $3`
			args = append(args, *params.LessonNumber)
		}
	} else if params.LessonNumber != nil {
		sql += ` WHERE lesson_number = $2`
		args = append(args, *params.LessonNumber)
	}
	sql += fmt.Sprintf(` ORDER BY distance LIMIT %d`, params.Limit)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		s.logger.Error("content search failed", "error", err)
		return SearchResults{Err: fmt.Sprintf("Search error: %v", err)}
	}
	defer rows.Close()

	var out SearchResults
	for rows.Next() {
		var (
			content  string
			title    string
			lessonNo pgtype.Int4
			chunkIdx int
			distance float64
		)
		if err := rows.Scan(&content, &title, &lessonNo, &chunkIdx, &distance); err != nil {
			return SearchResults{Err: fmt.Sprintf("Search error: %v", err)}
		}
		meta := ResultMeta{CourseTitle: title, ChunkIndex: chunkIdx}
		if lessonNo.Valid {
			n := int(lessonNo.Int32)
			meta.LessonNumber = &n
		}
		out.Documents = append(out.Documents, content)
		out.Metadata = append(out.Metadata, meta)
		out.Distances = append(out.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return SearchResults{Err: fmt.Sprintf("Search error: %v", err)}
	}

	return out
}

// embed generates the embedding vector for a single text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// embedBatch generates embedding vectors for several texts in one request.
func (s *Store) embedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(t)}}
	}
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	vecs := make([]pgvector.Vector, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned for input %d", i)
		}
		vecs[i] = pgvector.NewVector(e.Embedding)
	}
	return vecs, nil
}
