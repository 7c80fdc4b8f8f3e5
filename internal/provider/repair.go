package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnbalancedJSON = errors.New("mismatched closing bracket")
	ErrNotAnObject    = errors.New("arguments are not a JSON object")
)

// RepairJSON makes a best effort to turn truncated JSON into a valid document.
// It closes an unterminated string (dropping a dangling escape), fills a
// dangling key with null, strips trailing commas and closes open brackets in
// order. Empty input becomes "{}". Input that is already valid is returned
// unchanged.
func RepairJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "{}", nil
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}

	out := make([]byte, 0, len(s)+8)
	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", fmt.Errorf("%w at offset %d", ErrUnbalancedJSON, i)
			}
			stack = stack[:len(stack)-1]
			out = trimTrailingComma(out)
		}
		out = append(out, c)
	}

	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out = append(out, '"')
	}

	out = trimSpace(out)
	out = trimTrailingComma(out)
	if len(out) > 0 && out[len(out)-1] == ':' {
		out = append(out, "null"...)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out = trimTrailingComma(out)
		out = append(out, stack[i])
	}

	if !json.Valid(out) {
		return "", fmt.Errorf("repair produced invalid JSON: %s", out)
	}
	return string(out), nil
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 {
		switch b[len(b)-1] {
		case ' ', '\t', '\r', '\n':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}

func trimTrailingComma(b []byte) []byte {
	b = trimSpace(b)
	if len(b) > 0 && b[len(b)-1] == ',' {
		b = trimSpace(b[:len(b)-1])
	}
	return b
}

// ParseArguments decodes tool-call arguments, repairing them first if needed.
// The result must be a JSON object.
func ParseArguments(raw string) (map[string]any, error) {
	repaired, err := RepairJSON(raw)
	if err != nil {
		return nil, &MalformedArgumentsError{Raw: raw, Err: err}
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(repaired), &input); err != nil || input == nil {
		return nil, &MalformedArgumentsError{Raw: raw, Err: ErrNotAnObject}
	}
	return input, nil
}

// NewToolCall builds a ToolCall from raw argument text. Arguments that cannot
// be repaired produce an Unparseable call rather than an error so the turn can
// still be answered.
func NewToolCall(id, name, raw string) ToolCall {
	input, err := ParseArguments(raw)
	if err != nil {
		return ToolCall{ID: id, Name: name, Raw: raw, Unparseable: true}
	}
	return ToolCall{ID: id, Name: name, Input: input, Raw: raw}
}
