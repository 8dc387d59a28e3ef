package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", RenderHistory(nil))
		assert.Equal(t, "", RenderHistory([]Message{}))
	})

	t.Run("single exchange", func(t *testing.T) {
		t.Parallel()
		got := RenderHistory([]Message{
			{Role: RoleUser, Content: "What is MCP?"},
			{Role: RoleAssistant, Content: "A protocol for tool access."},
		})
		assert.Equal(t, "User: What is MCP?\nAssistant: A protocol for tool access.", got)
	})

	t.Run("multiple exchanges keep order", func(t *testing.T) {
		t.Parallel()
		got := RenderHistory([]Message{
			{Role: RoleUser, Content: "first question"},
			{Role: RoleAssistant, Content: "first answer"},
			{Role: RoleUser, Content: "second question"},
			{Role: RoleAssistant, Content: "second answer"},
		})
		assert.Equal(t,
			"User: first question\nAssistant: first answer\nUser: second question\nAssistant: second answer",
			got)
	})

	t.Run("unknown role passes through", func(t *testing.T) {
		t.Parallel()
		got := RenderHistory([]Message{{Role: "system", Content: "note"}})
		assert.Equal(t, "system: note", got)
	})
}
