// Package dispatch executes tool calls from an agent runtime. A call names
// a tool and carries a JSON argument payload; the dispatcher validates and
// coerces the payload against the tool's declared signature, invokes the
// bound operation and reports the outcome together with the caller's
// correlation id.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/toolschema"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// State is a step in the life of one call.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// HandlerFunc runs an operation with validated arguments.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Tool binds a declared signature to the operation that serves it.
type Tool struct {
	Signature toolschema.Signature
	Handler   HandlerFunc
}

// Call is one tool invocation request.
type Call struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ErrorBody is the serialised form of a failed call.
type ErrorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Response is the outcome of a call. ID echoes the caller's correlation id
// or a generated one.
type Response struct {
	ID     string     `json:"id"`
	Tool   string     `json:"tool"`
	State  State      `json:"state"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

type entry struct {
	sig     toolschema.Signature
	desc    toolschema.Descriptor
	schema  *jsonschema.Schema
	handler HandlerFunc
}

// Dispatcher routes calls to registered tools. Descriptors and compiled
// schemas are built once in New and never change afterwards.
type Dispatcher struct {
	tools   map[string]*entry
	order   []string
	catalog []byte
	log     *slog.Logger
	newID   func() string
	observe func(call Call, s State)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithIDGenerator replaces the generator for missing correlation ids.
func WithIDGenerator(f func() string) Option {
	return func(d *Dispatcher) { d.newID = f }
}

// WithStateObserver registers f to be told about every state transition.
func WithStateObserver(f func(call Call, s State)) Option {
	return func(d *Dispatcher) { d.observe = f }
}

// New builds descriptors and schemas for tools. Tool order is kept in the
// catalog.
func New(tools []Tool, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		tools: make(map[string]*entry, len(tools)),
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(d)
	}

	sigs := make([]toolschema.Signature, 0, len(tools))
	for _, t := range tools {
		if t.Handler == nil {
			return nil, fmt.Errorf("dispatch: tool %q has no handler", t.Signature.Name)
		}
		sigs = append(sigs, t.Signature)
	}
	descs, err := toolschema.Catalog(sigs)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	for i, t := range tools {
		schema, err := compile(descs[i])
		if err != nil {
			return nil, fmt.Errorf("dispatch: compile %q: %w", t.Signature.Name, err)
		}
		d.tools[t.Signature.Name] = &entry{
			sig:     t.Signature,
			desc:    descs[i],
			schema:  schema,
			handler: t.Handler,
		}
		d.order = append(d.order, t.Signature.Name)
	}

	d.catalog, err = toolschema.MarshalCatalog(descs)
	if err != nil {
		return nil, fmt.Errorf("dispatch: marshal catalog: %w", err)
	}
	return d, nil
}

func compile(desc toolschema.Descriptor) (*jsonschema.Schema, error) {
	raw, err := desc.SchemaJSON()
	if err != nil {
		return nil, err
	}
	url := "file:///tools/" + desc.Name + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.log != nil {
		return d.log
	}
	return slog.Default()
}

// Catalog returns the descriptors of every tool in registration order.
func (d *Dispatcher) Catalog() []toolschema.Descriptor {
	out := make([]toolschema.Descriptor, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name].desc)
	}
	return out
}

// CatalogJSON returns the catalog document rendered at construction.
func (d *Dispatcher) CatalogJSON() []byte {
	return bytes.Clone(d.catalog)
}

// Dispatch runs call. The returned error is the failure exactly as the
// operation reported it; the Response carries the same failure in
// serialisable form. Arguments that fail validation never reach the
// operation.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (Response, error) {
	if call.ID == "" {
		call.ID = d.newID()
	}
	resp := Response{ID: call.ID, Tool: call.Name, State: StatePending}
	d.transition(call, &resp, StatePending)

	e, ok := d.tools[call.Name]
	if !ok {
		return d.fail(ctx, call, resp, &model.NotFoundError{Resource: "tool", ID: call.Name})
	}

	d.transition(call, &resp, StateValidating)
	args, err := e.validate(call.Arguments)
	if err != nil {
		return d.fail(ctx, call, resp, err)
	}

	d.transition(call, &resp, StateExecuting)
	result, err := invoke(ctx, e.handler, args)
	if err != nil {
		return d.fail(ctx, call, resp, err)
	}

	resp.Result = result
	d.transition(call, &resp, StateSucceeded)
	d.logger().DebugContext(ctx, "tool call succeeded", "tool", call.Name, "call_id", call.ID)
	return resp, nil
}

func (d *Dispatcher) transition(call Call, resp *Response, s State) {
	resp.State = s
	if d.observe != nil {
		d.observe(call, s)
	}
}

func (d *Dispatcher) fail(ctx context.Context, call Call, resp Response, err error) (Response, error) {
	if model.ErrorKind(err) == model.KindInternal && !errors.Is(err, model.ErrInternal) {
		err = &model.InternalError{Err: err}
	}
	d.transition(call, &resp, StateFailed)
	resp.Error = &ErrorBody{
		Kind:    model.ErrorKind(err),
		Message: err.Error(),
		Details: model.ErrorDetails(err),
	}

	attrs := []any{"tool", call.Name, "call_id", call.ID, "kind", resp.Error.Kind, "error", err}
	if resp.Error.Kind == model.KindInternal {
		d.logger().ErrorContext(ctx, "tool call failed", attrs...)
	} else {
		d.logger().WarnContext(ctx, "tool call rejected", attrs...)
	}
	return resp, err
}

// invoke runs h and turns a panic into an internal error.
func invoke(ctx context.Context, h HandlerFunc, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.InternalError{Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
	}()
	return h(ctx, args)
}
