package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Cyclone1070/agentcore/internal/tool"
)

// TodoStatus is the state of one todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

var (
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyDescription = errors.New("description cannot be empty")
)

// Todo is one item of the agent's working plan.
type Todo struct {
	Description string     `json:"description"`
	Status      TodoStatus `json:"status"`
}

// TodoStore keeps the plan in memory for the session.
type TodoStore struct {
	mu    sync.RWMutex
	todos []Todo
}

func NewTodoStore() *TodoStore {
	return &TodoStore{}
}

// Read returns a copy of the current list.
func (s *TodoStore) Read() []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// Write replaces the list.
func (s *TodoStore) Write(todos []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = make([]Todo, len(todos))
	copy(s.todos, todos)
}

// ReadTodosRequest takes no arguments.
type ReadTodosRequest struct{}

// ReadTodos returns the read_todos tool.
func (w *Workspace) ReadTodos() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "read_todos",
		Description: "Read the current todo list.",
		Parameters:  &tool.Schema{Type: tool.TypeObject},
	}, func(context.Context, ReadTodosRequest) (string, error) {
		return formatTodos(w.todos.Read()), nil
	})
}

// WriteTodosRequest replaces the whole todo list.
type WriteTodosRequest struct {
	Todos []Todo `json:"todos"`
}

func (r *WriteTodosRequest) Validate() error {
	for i := range r.Todos {
		t := &r.Todos[i]
		t.Description = strings.TrimSpace(t.Description)
		if t.Description == "" {
			return fmt.Errorf("todo %d: %w", i, ErrEmptyDescription)
		}
		if t.Status == "" {
			t.Status = TodoPending
		}
		switch t.Status {
		case TodoPending, TodoInProgress, TodoCompleted:
		default:
			return fmt.Errorf("todo %d: %w %q", i, ErrInvalidStatus, t.Status)
		}
	}
	return nil
}

// WriteTodos returns the write_todos tool.
func (w *Workspace) WriteTodos() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "write_todos",
		Description: "Replace the todo list used to track multi-step work.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"todos": {
					Type: tool.TypeArray,
					Items: &tool.Schema{
						Type: tool.TypeObject,
						Properties: map[string]*tool.Schema{
							"description": {Type: tool.TypeString},
							"status":      {Type: tool.TypeString, Enum: []string{string(TodoPending), string(TodoInProgress), string(TodoCompleted)}},
						},
						Required: []string{"description"},
					},
				},
			},
			Required: []string{"todos"},
		},
	}, func(_ context.Context, req WriteTodosRequest) (string, error) {
		w.todos.Write(req.Todos)
		return formatTodos(req.Todos), nil
	})
}

func formatTodos(todos []Todo) string {
	if len(todos) == 0 {
		return "no todos"
	}
	var sb strings.Builder
	for i, t := range todos {
		mark := " "
		switch t.Status {
		case TodoInProgress:
			mark = "~"
		case TodoCompleted:
			mark = "x"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, mark, t.Description)
	}
	return sb.String()
}
