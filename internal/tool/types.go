package tool

import (
	"context"
	"errors"
	"fmt"
)

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema represents a JSON Schema for tool parameters.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Declaration declares a tool's function signature for the LLM.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Tool is a named capability the model can invoke. Input is the decoded
// argument map from the tool call; the returned string is fed back verbatim.
type Tool interface {
	Declaration() Declaration
	Execute(ctx context.Context, input map[string]any) (string, error)
}

// ErrInvalidArguments is wrapped when a tool call's input cannot be decoded
// or fails validation.
var ErrInvalidArguments = errors.New("invalid arguments")

// ExecutionError is the error a tool returns for a failed call. Its message is
// what the model sees.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
