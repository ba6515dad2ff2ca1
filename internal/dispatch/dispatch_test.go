package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/toolschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorder struct {
	calls  int
	last   Args
	result any
	err    error
}

func (r *recorder) handle(_ context.Context, a Args) (any, error) {
	r.calls++
	r.last = a
	return r.result, r.err
}

func echoTool(r *recorder) Tool {
	return Tool{
		Signature: toolschema.Signature{
			Name:        "echo",
			Description: "Echo arguments.",
			Params: []toolschema.Param{
				{Name: "text", Kind: toolschema.String, Description: "Text."},
				{Name: "count", Kind: toolschema.Integer, Description: "Count.", Default: 1},
				{Name: "ratio", Kind: toolschema.Number, Description: "Ratio.", Default: 0.5},
				{Name: "loud", Kind: toolschema.Boolean, Description: "Shout.", Default: false},
				{Name: "mode", Kind: toolschema.Enum, Description: "Mode.", Enum: []string{"plain", "fancy"}, Default: "plain"},
				{
					Name: "window", Kind: toolschema.Object, Description: "Window.", TypeName: "Window",
					Default: map[string]any{"from": "a", "to": "z"},
					Fields: []toolschema.Param{
						{Name: "from", Kind: toolschema.String},
						{Name: "to", Kind: toolschema.String},
					},
				},
				{Name: "tags", Kind: toolschema.Array, Description: "Tags.", Items: &toolschema.Param{Kind: toolschema.String}, Default: []string{}},
			},
		},
		Handler: r.handle,
	}
}

func newTestDispatcher(t *testing.T, r *recorder, opts ...Option) *Dispatcher {
	t.Helper()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	d, err := New([]Tool{echoTool(r)}, opts...)
	require.NoError(t, err)
	return d
}

func dispatch(d *Dispatcher, args string) (Response, error) {
	return d.Dispatch(context.Background(), Call{ID: "call-1", Name: "echo", Arguments: json.RawMessage(args)})
}

func TestDispatch_SuccessAppliesDefaults(t *testing.T) {
	r := &recorder{result: "ok"}
	d := newTestDispatcher(t, r)

	resp, err := dispatch(d, `{"text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, "call-1", resp.ID)
	assert.Equal(t, "echo", resp.Tool)
	assert.Equal(t, StateSucceeded, resp.State)
	assert.Equal(t, "ok", resp.Result)
	assert.Nil(t, resp.Error)

	require.Equal(t, 1, r.calls)
	assert.Equal(t, "hi", r.last.String("text"))
	assert.Equal(t, 1, r.last.Int("count"))
	assert.Equal(t, 0.5, r.last.Float("ratio"))
	assert.False(t, r.last.Bool("loud"))
	assert.Equal(t, "plain", r.last.String("mode"))
	assert.Equal(t, "z", r.last.Object("window").String("to"))
	assert.Empty(t, r.last.Strings("tags"))
}

func TestDispatch_Coercion(t *testing.T) {
	r := &recorder{}
	d := newTestDispatcher(t, r)

	_, err := dispatch(d, `{"text":42,"count":"7","ratio":"1.25","loud":"true","tags":["x","y"],"window":{"from":"b","to":"c"}}`)
	require.NoError(t, err)
	assert.Equal(t, "42", r.last.String("text"))
	assert.Equal(t, 7, r.last.Int("count"))
	assert.Equal(t, 1.25, r.last.Float("ratio"))
	assert.True(t, r.last.Bool("loud"))
	assert.Equal(t, []string{"x", "y"}, r.last.Strings("tags"))
	assert.Equal(t, "b", r.last.Object("window").String("from"))
}

func TestDispatch_IntegerBounds(t *testing.T) {
	accepted := []struct {
		count string
		want  int64
	}{
		{`"9223372036854775807"`, math.MaxInt64},
		{`-9223372036854775808`, math.MinInt64},
		{`"1e3"`, 1000},
		{`4.0`, 4},
	}
	for _, tt := range accepted {
		t.Run("accepts "+tt.count, func(t *testing.T) {
			r := &recorder{}
			d := newTestDispatcher(t, r)
			_, err := dispatch(d, `{"text":"a","count":`+tt.count+`}`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.last["count"])
		})
	}

	rejected := []string{
		`"9223372036854775808"`,
		`9223372036854775808`,
		`"-9223372036854775809"`,
		`1e19`,
		`"-1e19"`,
	}
	for _, count := range rejected {
		t.Run("rejects "+count, func(t *testing.T) {
			r := &recorder{}
			d := newTestDispatcher(t, r)
			_, err := dispatch(d, `{"text":"a","count":`+count+`}`)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "count", ve.Param)
			assert.Equal(t, "integer", ve.Expected)
			assert.Contains(t, ve.Reason, "out of range")
			assert.Zero(t, r.calls)
		})
	}
}

func TestFloatToInt(t *testing.T) {
	n, err := floatToInt(-0x1p63)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), n)

	_, err = floatToInt(0x1p63)
	assert.ErrorIs(t, err, errIntRange)

	_, err = floatToInt(math.Inf(1))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errIntRange)
}

func TestDispatch_StringWrappedArguments(t *testing.T) {
	r := &recorder{}
	d := newTestDispatcher(t, r)

	_, err := dispatch(d, `"{\"text\":\"wrapped\"}"`)
	require.NoError(t, err)
	assert.Equal(t, "wrapped", r.last.String("text"))
}

func TestDispatch_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		param    string
		expected string
	}{
		{"missing required", `{}`, "text", "string"},
		{"null required", `{"text":null}`, "text", "string"},
		{"unknown parameter", `{"text":"a","colour":"red"}`, "colour", "one of [text, count, ratio, loud, mode, window, tags]"},
		{"wrong type", `{"text":"a","count":"many"}`, "count", "integer"},
		{"fractional integer", `{"text":"a","count":1.5}`, "count", "integer"},
		{"enum out of range", `{"text":"a","mode":"loud"}`, "mode", "one of [plain, fancy]"},
		{"nested unknown field", `{"text":"a","window":{"from":"a","to":"b","via":"c"}}`, "window.via", "one of [from, to]"},
		{"nested missing field", `{"text":"a","window":{"from":"a"}}`, "window.to", "string"},
		{"object expected", `{"text":"a","window":"now"}`, "window", "object Window"},
		{"array element", `{"text":"a","tags":["x",{}]}`, "tags[1]", "string"},
		{"not an object", `[1,2]`, "", "JSON object"},
		{"not json", `{"text":`, "", "JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			var states []State
			d := newTestDispatcher(t, r, WithStateObserver(func(_ Call, s State) { states = append(states, s) }))

			resp, err := dispatch(d, tt.args)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.param, ve.Param)
			assert.Equal(t, tt.expected, ve.Expected)

			assert.Zero(t, r.calls, "handler must not run")
			assert.Equal(t, StateFailed, resp.State)
			assert.Equal(t, []State{StatePending, StateValidating, StateFailed}, states)
			require.NotNil(t, resp.Error)
			assert.Equal(t, model.KindValidation, resp.Error.Kind)
		})
	}
}

func TestDispatch_StateTransitions(t *testing.T) {
	r := &recorder{}
	var states []State
	d := newTestDispatcher(t, r, WithStateObserver(func(c Call, s State) {
		assert.Equal(t, "call-1", c.ID)
		states = append(states, s)
	}))

	_, err := dispatch(d, `{"text":"a"}`)
	require.NoError(t, err)
	assert.Equal(t, []State{StatePending, StateValidating, StateExecuting, StateSucceeded}, states)
}

func TestDispatch_GeneratesCorrelationID(t *testing.T) {
	d := newTestDispatcher(t, &recorder{}, WithIDGenerator(func() string { return "gen-1" }))

	resp, err := d.Dispatch(context.Background(), Call{Name: "echo", Arguments: json.RawMessage(`{"text":"a"}`)})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", resp.ID)
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := newTestDispatcher(t, &recorder{})

	resp, err := d.Dispatch(context.Background(), Call{ID: "x", Name: "teleport"})
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "tool", nf.Resource)
	assert.Equal(t, "teleport", nf.ID)
	assert.Equal(t, model.KindNotFound, resp.Error.Kind)
	assert.Equal(t, "x", resp.ID)
}

func TestDispatch_DomainErrorPassesThrough(t *testing.T) {
	conflict := &model.ConflictError{Resource: "event", ID: "e1", Reason: "event is full"}
	d := newTestDispatcher(t, &recorder{err: conflict})

	resp, err := dispatch(d, `{"text":"a"}`)
	assert.Same(t, conflict, err)
	assert.Equal(t, StateFailed, resp.State)
	assert.Nil(t, resp.Result)
	assert.Equal(t, model.KindConflict, resp.Error.Kind)
	assert.Equal(t, "event is full", resp.Error.Details["reason"])
}

func TestDispatch_PlainErrorBecomesInternal(t *testing.T) {
	boom := errors.New("disk on fire")
	d := newTestDispatcher(t, &recorder{err: boom})

	resp, err := dispatch(d, `{"text":"a"}`)
	var ie *model.InternalError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.KindInternal, resp.Error.Kind)
}

func TestDispatch_PanicBecomesInternal(t *testing.T) {
	d, err := New([]Tool{{
		Signature: toolschema.Signature{Name: "explode", Description: "Panics."},
		Handler:   func(context.Context, Args) (any, error) { panic("kaboom") },
	}}, WithLogger(quiet))
	require.NoError(t, err)

	resp, err := d.Dispatch(context.Background(), Call{Name: "explode"})
	assert.ErrorIs(t, err, model.ErrInternal)
	assert.Equal(t, StateFailed, resp.State)
	assert.Contains(t, resp.Error.Message, "kaboom")
}

func TestNew_Rejects(t *testing.T) {
	_, err := New([]Tool{{Signature: toolschema.Signature{Name: "nohandler", Description: "x"}}})
	assert.Error(t, err)

	r := &recorder{}
	_, err = New([]Tool{echoTool(r), echoTool(r)})
	assert.Error(t, err)
}

func TestDispatcher_Catalog(t *testing.T) {
	d := newTestDispatcher(t, &recorder{})

	descs := d.Catalog()
	require.Len(t, descs, 1)
	assert.Equal(t, "echo", descs[0].Name)

	var doc struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(d.CatalogJSON(), &doc))
	require.Len(t, doc.Tools, 1)
	assert.Equal(t, "echo", doc.Tools[0].Name)

	// callers cannot mutate the cached document
	raw := d.CatalogJSON()
	raw[0] = 'x'
	assert.NotEqual(t, raw, d.CatalogJSON())
}

func TestCheckSchema_NamesExpectedType(t *testing.T) {
	d := newTestDispatcher(t, &recorder{})
	e := d.tools["echo"]

	valid := func() Args {
		return Args{
			"text":   "a",
			"count":  int64(1),
			"ratio":  0.5,
			"loud":   false,
			"mode":   "plain",
			"window": Args{"from": "a", "to": "z"},
			"tags":   []any{"x"},
		}
	}
	require.NoError(t, e.checkSchema(valid()))

	tests := []struct {
		name     string
		mutate   func(Args)
		param    string
		expected string
	}{
		{"top level", func(a Args) { a["count"] = "many" }, "count", "integer"},
		{"nested field", func(a Args) { a["window"] = Args{"from": "a", "to": 3} }, "window.to", "string"},
		{"array element", func(a Args) { a["tags"] = []any{"x", true} }, "tags[1]", "string"},
		{"enum", func(a Args) { a["mode"] = "loud" }, "mode", "one of [plain, fancy]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := valid()
			tt.mutate(args)
			err := e.checkSchema(args)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.param, ve.Param)
			assert.Equal(t, tt.expected, ve.Expected)
		})
	}
}

func TestParamAt(t *testing.T) {
	params := echoTool(&recorder{}).Signature.Params

	p, ok := paramAt(params, "/window/from")
	require.True(t, ok)
	assert.Equal(t, toolschema.String, p.Kind)

	p, ok = paramAt(params, "/tags/3")
	require.True(t, ok)
	assert.Equal(t, toolschema.String, p.Kind)

	p, ok = paramAt(params, "/window")
	require.True(t, ok)
	assert.Equal(t, "Window", p.TypeName)

	for _, ptr := range []string{"", "/nope", "/text/deeper", "/tags/x", "/window/via"} {
		_, ok := paramAt(params, ptr)
		assert.False(t, ok, ptr)
	}
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "", pointerToPath(""))
	assert.Equal(t, "slot.start", pointerToPath("/slot/start"))
	assert.Equal(t, "tags[1]", pointerToPath("/tags/1"))
}
