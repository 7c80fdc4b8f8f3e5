package builtin

import (
	"testing"

	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodos(t *testing.T) {
	w := newTestWorkspace(t, nil)

	got, err := run(t, w.ReadTodos(), nil)
	require.NoError(t, err)
	assert.Equal(t, "no todos", got)

	got, err = run(t, w.WriteTodos(), map[string]any{"todos": []any{
		map[string]any{"description": "  read code  "},
		map[string]any{"description": "write tests", "status": "in_progress"},
		map[string]any{"description": "ship", "status": "completed"},
	}})
	require.NoError(t, err)
	want := "1. [ ] read code\n2. [~] write tests\n3. [x] ship\n"
	assert.Equal(t, want, got)

	got, err = run(t, w.ReadTodos(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, []Todo{
		{Description: "read code", Status: TodoPending},
		{Description: "write tests", Status: TodoInProgress},
		{Description: "ship", Status: TodoCompleted},
	}, w.Todos().Read())
}

func TestWriteTodos_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		todo    map[string]any
		wantMsg string
	}{
		{name: "bad status", todo: map[string]any{"description": "x", "status": "done"}, wantMsg: "invalid status"},
		{name: "blank description", todo: map[string]any{"description": "   "}, wantMsg: "description cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorkspace(t, nil)
			w.Todos().Write([]Todo{{Description: "keep", Status: TodoPending}})

			_, err := run(t, w.WriteTodos(), map[string]any{"todos": []any{tt.todo}})
			assert.ErrorIs(t, err, tool.ErrInvalidArguments)
			assert.ErrorContains(t, err, tt.wantMsg)
			assert.Len(t, w.Todos().Read(), 1)
		})
	}
}

func TestTodoStore_ReturnsCopies(t *testing.T) {
	s := NewTodoStore()
	in := []Todo{{Description: "a", Status: TodoPending}}
	s.Write(in)
	in[0].Description = "changed"

	out := s.Read()
	assert.Equal(t, "a", out[0].Description)
	out[0].Description = "changed"
	assert.Equal(t, "a", s.Read()[0].Description)
}
