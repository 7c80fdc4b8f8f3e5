package toolmanager

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Cyclone1070/agentcore/internal/tool"
)

// ToolManager is the tool registry the loop dispatches to.
type ToolManager struct {
	registry map[string]tool.Tool
}

func NewToolManager(tools ...tool.Tool) *ToolManager {
	tm := &ToolManager{
		registry: make(map[string]tool.Tool),
	}
	for _, t := range tools {
		tm.Register(t)
	}
	return tm
}

// Register adds t, replacing any tool with the same name.
func (m *ToolManager) Register(t tool.Tool) {
	m.registry[t.Declaration().Name] = t
}

// Lookup returns the tool registered under name.
func (m *ToolManager) Lookup(name string) (tool.Tool, bool) {
	t, ok := m.registry[name]
	return t, ok
}

func (m *ToolManager) Declarations() []tool.Declaration {
	decls := make([]tool.Declaration, 0, len(m.registry))
	for _, t := range m.registry {
		decls = append(decls, t.Declaration())
	}
	sort.Slice(decls, func(i, j int) bool {
		return decls[i].Name < decls[j].Name
	})
	return decls
}

// UnknownTool is the message fed back to the model when it calls a tool that
// is not registered.
func (m *ToolManager) UnknownTool(name string) string {
	declsJSON, _ := json.MarshalIndent(m.Declarations(), "", "  ")
	return fmt.Sprintf("tool %q does not exist.\n\nAvailable tools:\n%s", name, declsJSON)
}
