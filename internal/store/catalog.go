package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ResolveCourseName maps a possibly partial or misspelled course name to
// the exact catalog title by embedding similarity over stored titles.
// Returns false when the catalog is empty or resolution fails.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, bool) {
	vec, err := s.embed(ctx, name)
	if err != nil {
		s.logger.Warn("course name resolution failed", "name", name, "error", err)
		return "", false
	}

	var title string
	err = s.db.QueryRow(ctx,
		`SELECT title FROM courses
		 WHERE title_embedding IS NOT NULL
		 ORDER BY title_embedding <=> $1
		 LIMIT 1`, vec).Scan(&title)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("course name resolution failed", "name", name, "error", err)
		}
		return "", false
	}
	return title, true
}

// CourseMetadata returns the full catalog entry for an exact course title.
func (s *Store) CourseMetadata(ctx context.Context, title string) (*Course, error) {
	var course Course
	var id int64
	err := s.db.QueryRow(ctx,
		`SELECT id, title, instructor, link FROM courses WHERE title = $1`,
		title).Scan(&id, &course.Title, &course.Instructor, &course.Link)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("course %q not found", title)
		}
		return nil, fmt.Errorf("failed to load course %q: %w", title, err)
	}

	lessons, err := s.courseLessons(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Lessons = lessons
	return &course, nil
}

// AllCoursesMetadata returns every catalog entry with its lessons.
func (s *Store) AllCoursesMetadata(ctx context.Context) ([]Course, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, instructor, link FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	type entry struct {
		id     int64
		course Course
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.course.Title, &e.course.Instructor, &e.course.Link); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	courses := make([]Course, 0, len(entries))
	for _, e := range entries {
		lessons, err := s.courseLessons(ctx, e.id)
		if err != nil {
			return nil, err
		}
		e.course.Lessons = lessons
		courses = append(courses, e.course)
	}
	return courses, nil
}

func (s *Store) courseLessons(ctx context.Context, courseID int64) ([]Lesson, error) {
	rows, err := s.db.Query(ctx,
		`SELECT lesson_number, title, link FROM lessons
		 WHERE course_id = $1 ORDER BY lesson_number`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lessons: %w", err)
	}
	defer rows.Close()

	var lessons []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.Number, &l.Title, &l.Link); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load lessons: %w", err)
	}
	return lessons, nil
}

// LessonLink returns the link for one lesson of a course, if recorded.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, bool) {
	var link pgtype.Text
	err := s.db.QueryRow(ctx,
		`SELECT l.link FROM lessons l
		 JOIN courses c ON c.id = l.course_id
		 WHERE c.title = $1 AND l.lesson_number = $2`,
		courseTitle, lessonNumber).Scan(&link)
	if err != nil || !link.Valid || link.String == "" {
		return "", false
	}
	return link.String, true
}

// CourseLink returns the landing-page link for a course, if recorded.
func (s *Store) CourseLink(ctx context.Context, title string) (string, bool) {
	var link pgtype.Text
	err := s.db.QueryRow(ctx,
		`SELECT link FROM courses WHERE title = $1`, title).Scan(&link)
	if err != nil || !link.Valid || link.String == "" {
		return "", false
	}
	return link.String, true
}

// CourseCount returns the number of courses in the catalog.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// CourseTitles returns all course titles, sorted.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list course titles: %w", err)
	}
	return titles, nil
}
