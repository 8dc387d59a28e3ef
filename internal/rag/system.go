// Package rag composes retrieval, tool dispatch, generation and session
// history into the query-answering transaction behind the API and CLI.
package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/coursechat/coursechat/internal/generate"
	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/tools"
)

// Generator produces the final answer for one query.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (string, error)
}

// SourceRegistry is the tool surface the orchestrator hands to the
// generator and drains sources from afterwards.
type SourceRegistry interface {
	generate.ToolDispatcher
	CollectSources() []tools.Source
	ClearSources()
}

// SessionStore is the conversation history surface the orchestrator uses.
type SessionStore interface {
	Create(ctx context.Context) (uuid.UUID, error)
	History(ctx context.Context, id uuid.UUID) (string, error)
	AddExchange(ctx context.Context, id uuid.UUID, userText, assistantText string) error
}

// Catalog answers course statistics questions.
type Catalog interface {
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
}

// Ingester adds course documents to the index.
type Ingester interface {
	AddCourseFolder(ctx context.Context, dir string) (int, int, error)
}

// System is the orchestrator. Tool source records are per-registry
// mutable state, so Query holds a lock for its full generate, collect
// and clear span; concurrent callers queue up.
type System struct {
	queryMu  sync.Mutex
	engine   Generator
	registry SourceRegistry
	sessions SessionStore
	catalog  Catalog
	ingester Ingester
	logger   log.Logger
}

// New wires an orchestrator from its collaborators.
func New(engine Generator, registry SourceRegistry, sessions SessionStore, catalog Catalog, ingester Ingester, logger log.Logger) *System {
	return &System{
		engine:   engine,
		registry: registry,
		sessions: sessions,
		catalog:  catalog,
		ingester: ingester,
		logger:   logger,
	}
}

// Analytics summarizes the indexed catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// Query answers one question. When sessionID is non-nil the prior
// conversation is supplied to the generator and the new exchange is
// appended afterwards. Sources are drained from the registry and
// cleared before returning, on the error path too, so nothing leaks
// into the next query.
func (s *System) Query(ctx context.Context, text string, sessionID *uuid.UUID) (string, []tools.Source, error) {
	var history string
	if sessionID != nil {
		h, err := s.sessions.History(ctx, *sessionID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load session history: %w", err)
		}
		history = h
	}

	s.queryMu.Lock()
	defer s.queryMu.Unlock()

	// Stale sources must never survive a failed generation.
	defer s.registry.ClearSources()

	answer, err := s.engine.Generate(ctx, generate.Request{
		Query:   fmt.Sprintf("Answer this question about course materials: %s", text),
		History: history,
		Tools:   s.registry,
	})
	if err != nil {
		return "", nil, err
	}

	sources := s.registry.CollectSources()

	if sessionID != nil {
		if err := s.sessions.AddExchange(ctx, *sessionID, text, answer); err != nil {
			// The answer is already produced; history loss is
			// tolerable, losing the answer is not.
			s.logger.Warn("failed to record exchange", "session", *sessionID, "error", err)
		}
	}

	return answer, sources, nil
}

// CreateSession starts a fresh conversation session.
func (s *System) CreateSession(ctx context.Context) (uuid.UUID, error) {
	return s.sessions.Create(ctx)
}

// CourseAnalytics reports how many courses are indexed and their titles.
func (s *System) CourseAnalytics(ctx context.Context) (Analytics, error) {
	count, err := s.catalog.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("failed to count courses: %w", err)
	}
	titles, err := s.catalog.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("failed to list course titles: %w", err)
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}

// AddCourseFolder indexes every new transcript under dir and returns
// the number of courses and chunks added.
func (s *System) AddCourseFolder(ctx context.Context, dir string) (int, int, error) {
	return s.ingester.AddCourseFolder(ctx, dir)
}
