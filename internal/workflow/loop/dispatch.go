package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/Cyclone1070/agentcore/internal/permission"
	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/workflow"
)

// labelKeys are tried in order to describe a call in one line.
var labelKeys = []string{"path", "file_path", "command", "pattern", "query", "url"}

func label(call provider.ToolCall) string {
	for _, k := range labelKeys {
		if v, ok := call.Input[k].(string); ok && v != "" {
			return call.Name + " " + permission.Truncate(v, 80)
		}
	}
	return call.Name
}

// dispatch runs one tool call and returns its result block. The only error it
// returns is errAbort; tool failures become is_error results.
func (l *Loop) dispatch(r *run, call provider.ToolCall) (provider.Content, error) {
	r.res.ToolCalls++
	rec := workflow.ToolCallRecord{Seq: r.res.ToolCalls, ToolName: call.Name, Label: label(call)}
	l.emit(workflow.ToolStartEvent{Seq: rec.Seq, ToolName: rec.ToolName, Label: rec.Label})
	start := time.Now()

	content, outcome, err := l.execute(r, call)
	if err != nil {
		return nil, err
	}

	rec.Outcome = outcome
	rec.Duration = time.Since(start)
	result := provider.ToolResult{ToolCallID: call.ID, Name: call.Name, Content: content}

	switch outcome {
	case workflow.OutcomeError:
		r.streak++
		rec.Error = content
		r.res.Errors = append(r.res.Errors, fmt.Sprintf("%s: %s", call.Name, content))
		result.Content = "Error: " + content
		if r.streak < maxHintedStreak {
			result.Content += retryHint
		}
		result.IsError = true
	case workflow.OutcomeDenied:
		result.Content = deniedResult
		result.IsError = true
	default:
		r.streak = 0
	}

	r.res.Records = append(r.res.Records, rec)
	l.emit(workflow.ToolEndEvent{Record: rec})
	l.logger.Debug("tool call finished", "tool", call.Name, "seq", rec.Seq, "outcome", string(outcome), "duration", rec.Duration)
	return result, nil
}

// execute returns the raw result text and outcome for one call.
func (l *Loop) execute(r *run, call provider.ToolCall) (string, workflow.Outcome, error) {
	if call.Unparseable {
		return unparseableResult, workflow.OutcomeError, nil
	}

	t, ok := l.tools.Lookup(call.Name)
	if !ok {
		return l.tools.UnknownTool(call.Name), workflow.OutcomeError, nil
	}

	allowed, err := l.perms.Check(r.ctx, call.Name, call.Input)
	if err != nil {
		if r.token.Aborted() || r.ctx.Err() != nil {
			return "", "", errAbort
		}
		return err.Error(), workflow.OutcomeError, nil
	}
	if !allowed {
		return "", workflow.OutcomeDenied, nil
	}

	// Tools run to completion; cancellation is observed between calls.
	out, err := t.Execute(context.WithoutCancel(r.ctx), call.Input)
	if err != nil {
		return err.Error(), workflow.OutcomeError, nil
	}
	if l.checkpoint != nil {
		l.checkpoint(call.Name, call.Input, out, len(r.history))
	}
	return out, workflow.OutcomeDone, nil
}
