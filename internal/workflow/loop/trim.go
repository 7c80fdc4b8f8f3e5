package loop

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/Cyclone1070/agentcore/internal/workflow"
)

const (
	elidedResult   = "[earlier tool output removed to fit the context window]"
	elidedArgument = "[argument removed to fit the context window]"
)

// approxCounter is used when no tokenizer is configured.
type approxCounter struct{}

func (approxCounter) Count(text string) int { return len(text) / 4 }

func (c approxCounter) CountMessage(m provider.Message) int {
	n := 4
	for _, block := range m.Content {
		switch b := block.(type) {
		case provider.Text:
			n += c.Count(b.Text)
		case provider.Reasoning:
			n += c.Count(b.Text)
		case provider.ToolCall:
			raw, _ := json.Marshal(b.Input)
			n += c.Count(b.Name) + c.Count(string(raw))
		case provider.ToolResult:
			n += c.Count(b.Content) + 4
		}
	}
	return n
}

func (c approxCounter) CountDeclarations(decls []tool.Declaration) int {
	raw, _ := json.Marshal(decls)
	return c.Count(string(raw))
}

// budget is the number of tokens the conversation itself may use.
func (l *Loop) budget(r *run) int {
	if l.cfg.ContextWindow <= 0 {
		return 0
	}
	b := int(float64(l.cfg.ContextWindow)*l.cfg.TrimRatio) -
		l.counter.Count(l.cfg.SystemPrompt) -
		l.counter.CountDeclarations(r.decls)
	return max(b, 1)
}

// trim returns the slice of history to send. r.history is not modified.
// Reductions are applied in order until the conversation fits:
//   - whole turns are dropped from the front, restarting at a plain user
//     message so no tool result is separated from its call;
//   - the oldest tool outputs are elided;
//   - the oldest assistant tool call and tool result pairs following the
//     first user message are dropped;
//   - long string arguments of the oldest tool calls are shortened.
//
// The newest message is never dropped or rewritten.
func (l *Loop) trim(r *run) []provider.Message {
	budget := l.budget(r)
	if budget == 0 {
		return r.history
	}

	sizes := make([]int, len(r.history))
	total := 0
	for i, m := range r.history {
		sizes[i] = l.counter.CountMessage(m)
		total += sizes[i]
	}
	if total <= budget {
		return r.history
	}

	start, kept := 0, total
	for i := 1; i < len(r.history); i++ {
		kept -= sizes[i-1]
		if !isPlainUser(r.history[i]) {
			continue
		}
		start, total = i, kept
		if kept <= budget {
			break
		}
	}
	sent := r.history[start:]
	dropped := start

	elided := 0
	if total > budget {
		sent = slices.Clone(sent)
		for i := 0; i < len(sent)-1 && total > budget; i++ {
			m, saved := elide(sent[i], l.counter)
			if saved > 0 {
				sent[i] = m
				total -= saved
				elided++
			}
		}
	}

	// sent[1] and sent[2] form a self-contained call and result pair; removing
	// it leaves the roles alternating.
	for total > budget && len(sent) > 3 && isToolPair(sent[1], sent[2]) {
		total -= l.counter.CountMessage(sent[1]) + l.counter.CountMessage(sent[2])
		sent = slices.Delete(sent, 1, 3)
		dropped += 2
	}

	for i := 0; i < len(sent)-1 && total > budget; i++ {
		m, saved := shrinkCalls(sent[i], l.counter)
		if saved > 0 {
			sent[i] = m
			total -= saved
			elided++
		}
	}

	if dropped > 0 || elided > 0 {
		msg := fmt.Sprintf("trimmed conversation: dropped %d message(s), shortened %d message(s)", dropped, elided)
		l.logger.Info("trimmed conversation to fit context window", "dropped", dropped, "shortened", elided, "budget", budget, "tokens", total)
		l.emit(workflow.NoticeEvent{Kind: workflow.NoticeTrimmed, Message: msg})
	}
	return sent
}

func isPlainUser(m provider.Message) bool {
	if m.Role != provider.RoleUser {
		return false
	}
	for _, c := range m.Content {
		if _, ok := c.(provider.ToolResult); ok {
			return false
		}
	}
	return true
}

// isToolPair reports whether call is an assistant message with tool calls and
// results answers every one of them.
func isToolPair(call, results provider.Message) bool {
	if call.Role != provider.RoleAssistant || results.Role != provider.RoleUser {
		return false
	}
	calls := call.ToolCalls()
	if len(calls) == 0 {
		return false
	}
	answered := make(map[string]bool)
	for _, tr := range results.ToolResults() {
		answered[tr.ToolCallID] = true
	}
	for _, c := range calls {
		if !answered[c.ID] {
			return false
		}
	}
	return true
}

// elide replaces tool result contents in m and reports the tokens saved.
func elide(m provider.Message, counter tokenCounter) (provider.Message, int) {
	before := counter.CountMessage(m)
	out := provider.Message{Role: m.Role, Content: make([]provider.Content, len(m.Content))}
	changed := false
	for i, c := range m.Content {
		if tr, ok := c.(provider.ToolResult); ok && tr.Content != elidedResult {
			tr.Content = elidedResult
			out.Content[i] = tr
			changed = true
			continue
		}
		out.Content[i] = c
	}
	if !changed {
		return m, 0
	}
	return out, before - counter.CountMessage(out)
}

// shrinkCalls replaces long string arguments of the tool calls in m and
// reports the tokens saved. The input maps are copied.
func shrinkCalls(m provider.Message, counter tokenCounter) (provider.Message, int) {
	before := counter.CountMessage(m)
	out := provider.Message{Role: m.Role, Content: make([]provider.Content, len(m.Content))}
	changed := false
	for i, c := range m.Content {
		tc, ok := c.(provider.ToolCall)
		if !ok {
			out.Content[i] = c
			continue
		}
		if len(tc.Raw) > len(elidedArgument) {
			tc.Raw = elidedArgument
			changed = true
		}
		if tc.Input != nil {
			input := make(map[string]any, len(tc.Input))
			for k, v := range tc.Input {
				if s, ok := v.(string); ok && len(s) > len(elidedArgument) {
					v = elidedArgument
					changed = true
				}
				input[k] = v
			}
			tc.Input = input
		}
		out.Content[i] = tc
	}
	if !changed {
		return m, 0
	}
	return out, before - counter.CountMessage(out)
}
