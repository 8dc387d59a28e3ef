// Package session persists conversation sessions and their message
// history, and renders the truncated history block the generation
// engine receives as context.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrSessionNotFound indicates the session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Session is one conversation session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one message in a session.
type Message struct {
	Seq       int64
	Role      string
	Content   string
	CreatedAt time.Time
}

// RenderHistory formats messages into the text block the engine appends
// to its system directive. Roles render title-cased:
//
//	User: What is MCP?
//	Assistant: A protocol for tool access.
func RenderHistory(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		switch m.Role {
		case RoleUser:
			role = "User"
		case RoleAssistant:
			role = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, m.Content))
	}
	return strings.Join(lines, "\n")
}
