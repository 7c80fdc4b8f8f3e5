package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "{}"},
		{"whitespace", "  \n", "{}"},
		{"already valid", `{"a": 1}`, `{"a": 1}`},
		{"unterminated string", `{"path": "src/ma`, `{"path": "src/ma"}`},
		{"open array with trailing comma", `{"a": [1, 2,`, `{"a": [1, 2]}`},
		{"trailing comma before brace", `{"a": 1,}`, `{"a": 1}`},
		{"dangling key", `{"a":`, `{"a":null}`},
		{"dangling escape", `{"p": "a\`, `{"p": "a"}`},
		{"escaped quote kept", `{"msg": "he said \"hi`, `{"msg": "he said \"hi"}`},
		{"comma inside string untouched", `{"a": {"b": [1, {"c": "x,`, `{"a": {"b": [1, {"c": "x,"}]}}`},
		{"missing final brace", `{"a": 1`, `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RepairJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairJSON_Unrepairable(t *testing.T) {
	_, err := RepairJSON(`{"a": 1}}`)
	assert.ErrorIs(t, err, ErrUnbalancedJSON)

	_, err = RepairJSON(`{"a": tru`)
	assert.Error(t, err)

	_, err = RepairJSON(`{"a": "x", "b`)
	assert.Error(t, err)
}

func TestParseArguments(t *testing.T) {
	input, err := ParseArguments(`{"path": "src", "limit": 5,`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": "src", "limit": float64(5)}, input)

	_, err = ParseArguments(`[1, 2]`)
	var malformed *MalformedArgumentsError
	require.True(t, errors.As(err, &malformed))
	assert.ErrorIs(t, err, ErrNotAnObject)
	assert.Equal(t, `[1, 2]`, malformed.Raw)

	_, err = ParseArguments("null")
	assert.ErrorIs(t, err, ErrNotAnObject)
}

func TestNewToolCall(t *testing.T) {
	call := NewToolCall("c1", "read_file", `{"path": "main.go"`)
	assert.False(t, call.Unparseable)
	assert.Equal(t, map[string]any{"path": "main.go"}, call.Input)

	bad := NewToolCall("c2", "read_file", `{"path": tru`)
	assert.True(t, bad.Unparseable)
	assert.Nil(t, bad.Input)
	assert.Equal(t, `{"path": tru`, bad.Raw)
	assert.Equal(t, "c2", bad.ID)
}
