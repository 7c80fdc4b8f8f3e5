package permission

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

type editOperation struct {
	before   string
	after    string
	expected any
}

// editOperations reads the operations list of an edit call as decoded from
// JSON. It reports false when v does not have that shape.
func editOperations(v any) ([]editOperation, bool) {
	var items []map[string]any
	switch list := v.(type) {
	case []map[string]any:
		items = list
	case []any:
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			items = append(items, m)
		}
	default:
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}

	ops := make([]editOperation, 0, len(items))
	for _, m := range items {
		before, okBefore := m["before"].(string)
		after, okAfter := m["after"].(string)
		if _, present := m["before"]; present && !okBefore {
			return nil, false
		}
		if _, present := m["after"]; present && !okAfter {
			return nil, false
		}
		ops = append(ops, editOperation{before: before, after: after, expected: m["expected_replacements"]})
	}
	return ops, true
}

// writeOperations renders each operation as a unified before/after diff.
func writeOperations(sb *strings.Builder, ops []editOperation) {
	sb.WriteString("  operations:\n")
	for i, op := range ops {
		header := fmt.Sprintf("    #%d", i+1)
		switch {
		case op.before == "":
			header += " (append)"
		case op.expected != nil:
			header += fmt.Sprintf(" (expected replacements: %v)", op.expected)
		}
		sb.WriteString(header + "\n")

		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        splitLines(op.before),
			B:        splitLines(op.after),
			FromFile: "before",
			ToFile:   "after",
			Context:  1,
		})
		diff = Truncate(strings.TrimRight(diff, "\n"), MaxPreview)
		for _, line := range strings.Split(diff, "\n") {
			sb.WriteString("      " + line + "\n")
		}
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}
