package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Validator is implemented by request types that check their own fields.
type Validator interface {
	Validate() error
}

// Func executes a tool with a typed request.
type Func[Req, Resp any] func(context.Context, Req) (Resp, error)

// Adapter turns a typed Func into a Tool. It decodes the input map with
// mapstructure (honouring json tags), validates the request if it can, runs
// the function and renders the response. String responses pass through;
// anything else is marshalled to JSON.
type Adapter[Req, Resp any] struct {
	decl Declaration
	fn   Func[Req, Resp]
}

// NewAdapter creates an Adapter for decl backed by fn.
func NewAdapter[Req, Resp any](decl Declaration, fn Func[Req, Resp]) *Adapter[Req, Resp] {
	return &Adapter[Req, Resp]{decl: decl, fn: fn}
}

func (a *Adapter[Req, Resp]) Declaration() Declaration {
	return a.decl
}

// Execute implements Tool.
func (a *Adapter[Req, Resp]) Execute(ctx context.Context, input map[string]any) (string, error) {
	var req Req
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &req,
	})
	if err != nil {
		return "", err
	}
	if err := dec.Decode(input); err != nil {
		return "", &ExecutionError{Tool: a.decl.Name, Err: fmt.Errorf("%w: %v", ErrInvalidArguments, err)}
	}

	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return "", &ExecutionError{Tool: a.decl.Name, Err: fmt.Errorf("%w: %v", ErrInvalidArguments, err)}
		}
	}

	resp, err := a.fn(ctx, req)
	if err != nil {
		return "", err
	}

	if s, ok := any(resp).(string); ok {
		return s, nil
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(out), nil
}
