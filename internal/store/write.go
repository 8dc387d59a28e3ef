package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// AddCourse upserts a course and its lessons. The title is embedded so
// later fuzzy name resolution can match it.
func (s *Store) AddCourse(ctx context.Context, course Course) error {
	if course.Title == "" {
		return fmt.Errorf("course title must not be empty")
	}

	titleVec, err := s.embed(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("failed to embed course title %q: %w", course.Title, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var courseID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO courses (title, instructor, link, title_embedding)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (title) DO UPDATE SET
		     instructor = EXCLUDED.instructor,
		     link = EXCLUDED.link,
		     title_embedding = EXCLUDED.title_embedding
		 RETURNING id`,
		course.Title, course.Instructor, course.Link, titleVec).Scan(&courseID)
	if err != nil {
		return fmt.Errorf("failed to upsert course %q: %w", course.Title, err)
	}

	for _, lesson := range course.Lessons {
		_, err := tx.Exec(ctx,
			`INSERT INTO lessons (course_id, lesson_number, title, link)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (course_id, lesson_number) DO UPDATE SET
			     title = EXCLUDED.title,
			     link = EXCLUDED.link`,
			courseID, lesson.Number, lesson.Title, lesson.Link)
		if err != nil {
			return fmt.Errorf("failed to upsert lesson %d of %q: %w", lesson.Number, course.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit course %q: %w", course.Title, err)
	}

	s.logger.Debug("added course", "title", course.Title, "lessons", len(course.Lessons))
	return nil
}

// AddChunks embeds and stores content chunks. All chunks must belong to
// courses already present in the catalog.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := s.embedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, c := range chunks {
		lessonNo := pgtype.Int4{}
		if c.LessonNumber != nil {
			lessonNo = pgtype.Int4{Int32: int32(*c.LessonNumber), Valid: true}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (course_id, course_title, lesson_number, chunk_index, content, embedding)
			 SELECT id, $1, $2, $3, $4, $5 FROM courses WHERE title = $1`,
			c.CourseTitle, lessonNo, c.ChunkIndex, c.Content, vecs[i])
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d of %q: %w", c.ChunkIndex, c.CourseTitle, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}

	s.logger.Debug("added chunks", "count", len(chunks))
	return nil
}
