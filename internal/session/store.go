package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/coursechat/coursechat/internal/log"
)

// Querier is the subset of pgxpool.Pool the store depends on.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store manages session persistence. History reads are truncated to the
// most recent maxTurns exchanges; older messages stay in the database
// but never reach the model.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db       Querier
	maxTurns int
	logger   log.Logger
}

// New creates a Store. maxTurns caps how many user/assistant exchanges
// History renders; zero keeps history off entirely.
func New(db Querier, maxTurns int, logger log.Logger) *Store {
	return &Store{db: db, maxTurns: maxTurns, logger: logger}
}

// Create starts a new session and returns its identifier.
func (s *Store) Create(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (id) VALUES ($1)`, uuidToPgUUID(id))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Debug("created session", "id", id)
	return id, nil
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	var pgID pgtype.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM sessions WHERE id = $1`,
		uuidToPgUUID(id)).Scan(&pgID, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	sess.ID = pgUUIDToUUID(pgID)
	return &sess, nil
}

// List returns sessions ordered by most recent activity.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, created_at, updated_at FROM sessions
		 ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var pgID pgtype.UUID
		if err := rows.Scan(&pgID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.ID = pgUUIDToUUID(pgID)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and, via cascade, its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1`, uuidToPgUUID(id))
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// AddExchange appends one user/assistant exchange atomically. The
// session row is locked for the duration so concurrent appends to one
// session cannot interleave sequence numbers.
func (s *Store) AddExchange(ctx context.Context, id uuid.UUID, userText, assistantText string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pgID := uuidToPgUUID(id)

	var locked pgtype.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, pgID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return fmt.Errorf("failed to lock session %s: %w", id, err)
	}

	var maxSeq int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = $1`, pgID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("failed to read sequence for session %s: %w", id, err)
	}

	batch := []struct {
		role    string
		content string
	}{
		{RoleUser, userText},
		{RoleAssistant, assistantText},
	}
	for i, m := range batch {
		_, err = tx.Exec(ctx,
			`INSERT INTO messages (session_id, seq, role, content) VALUES ($1, $2, $3, $4)`,
			pgID, maxSeq+int64(i)+1, m.role, m.content)
		if err != nil {
			return fmt.Errorf("failed to append message to session %s: %w", id, err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE sessions SET updated_at = now() WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("failed to touch session %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit exchange for session %s: %w", id, err)
	}
	return nil
}

// Messages returns up to limit most recent messages in chronological
// order. A limit of 0 or less returns everything.
func (s *Store) Messages(ctx context.Context, id uuid.UUID, limit int) ([]Message, error) {
	sql := `SELECT seq, role, content, created_at FROM (
	            SELECT seq, role, content, created_at FROM messages
	            WHERE session_id = $1 ORDER BY seq DESC`
	args := []any{uuidToPgUUID(id)}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}
	sql += `) recent ORDER BY seq`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for session %s: %w", id, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load messages for session %s: %w", id, err)
	}
	return messages, nil
}

// History renders the most recent maxTurns exchanges as the text block
// passed to the engine. Empty when the session has no messages yet or
// history is disabled.
func (s *Store) History(ctx context.Context, id uuid.UUID) (string, error) {
	if s.maxTurns <= 0 {
		return "", nil
	}
	messages, err := s.Messages(ctx, id, s.maxTurns*2)
	if err != nil {
		return "", err
	}
	return RenderHistory(messages), nil
}

func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}
