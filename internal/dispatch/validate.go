package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/toolschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validate decodes the raw payload, coerces it against the declared
// parameters and checks the result against the compiled schema.
func (e *entry) validate(raw json.RawMessage) (Args, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	args, err := coerceObject("", e.sig.Params, payload)
	if err != nil {
		return nil, err
	}
	if err := e.checkSchema(args); err != nil {
		return nil, err
	}
	return args, nil
}

// decodePayload accepts a JSON object, null or nothing. A JSON string
// holding an object is unwrapped, since several agent runtimes send
// arguments that way.
func decodePayload(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	v, err := decodeJSON(raw)
	if err != nil {
		return nil, &model.ValidationError{Expected: "JSON object", Reason: "arguments are not valid JSON: " + err.Error()}
	}
	if s, ok := v.(string); ok {
		inner, err := decodeJSON([]byte(s))
		if err != nil {
			return nil, &model.ValidationError{Expected: "JSON object", Reason: "arguments string is not valid JSON"}
		}
		v = inner
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &model.ValidationError{Expected: "JSON object", Reason: "got " + describe(v)}
	}
	return m, nil
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func coerceObject(prefix string, params []toolschema.Param, in map[string]any) (Args, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !declared(params, k) {
			return nil, &model.ValidationError{
				Param:    join(prefix, k),
				Expected: "one of " + names(params),
				Reason:   "unknown parameter",
			}
		}
	}

	out := make(Args, len(params))
	for _, p := range params {
		path := join(prefix, p.Name)
		v, present := in[p.Name]
		if !present || v == nil {
			if p.Required() {
				return nil, &model.ValidationError{Param: path, Expected: expected(p), Reason: "missing required parameter"}
			}
			v = p.Default
		}
		cv, err := coerce(path, p, v)
		if err != nil {
			return nil, err
		}
		out[p.Name] = cv
	}
	return out, nil
}

// coerce converts v to the declared kind of p, accepting the lossless
// spellings agents commonly produce: numbers and booleans as strings,
// scalars where a string is expected.
func coerce(path string, p toolschema.Param, v any) (any, error) {
	bad := func() error {
		return &model.ValidationError{Param: path, Expected: expected(p), Reason: "got " + describe(v)}
	}

	switch p.Kind {
	case toolschema.String:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		case bool:
			return strconv.FormatBool(x), nil
		}
		return nil, bad()

	case toolschema.Integer:
		var (
			n   int64
			err error
		)
		switch x := v.(type) {
		case json.Number:
			n, err = toInt(x.String())
		case string:
			n, err = toInt(strings.TrimSpace(x))
		case int:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			n, err = floatToInt(x)
		default:
			return nil, bad()
		}
		switch {
		case errors.Is(err, errIntRange):
			return nil, &model.ValidationError{Param: path, Expected: expected(p), Reason: "integer out of range: " + describe(v)}
		case err != nil:
			return nil, bad()
		}
		return n, nil

	case toolschema.Number:
		switch x := v.(type) {
		case json.Number:
			f, err := x.Float64()
			if err != nil {
				return nil, bad()
			}
			return f, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, bad()
			}
			return f, nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		}
		return nil, bad()

	case toolschema.Boolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, bad()
			}
			return b, nil
		}
		return nil, bad()

	case toolschema.Enum:
		s, ok := v.(string)
		if !ok || !slices.Contains(p.Enum, s) {
			return nil, bad()
		}
		return s, nil

	case toolschema.Object:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, bad()
		}
		return coerceObject(path, p.Fields, m)

	case toolschema.Array:
		rv := reflect.ValueOf(v)
		if v == nil || rv.Kind() != reflect.Slice || p.Items == nil {
			return nil, bad()
		}
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			cv, err := coerce(fmt.Sprintf("%s[%d]", path, i), *p.Items, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	}
	return nil, &model.InternalError{Err: fmt.Errorf("parameter %s has unknown kind %q", path, p.Kind)}
}

var errIntRange = errors.New("integer out of range")

// toInt parses s as a whole number. Spellings such as "5.0" or "1e3" are
// accepted when they denote an exact integer that fits in an int64.
func toInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, errIntRange
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return floatToInt(f)
}

// floatToInt converts f when it is integral and inside the int64 range.
// The bounds are exact powers of two: MaxInt64 itself rounds up to 2^63
// as a float64.
func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f >= 0x1p63 || f < -0x1p63 {
		return 0, errIntRange
	}
	return int64(f), nil
}

// checkSchema validates the coerced arguments against the tool's compiled
// JSON Schema, reporting the deepest failing location.
func (e *entry) checkSchema(args Args) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return &model.InternalError{Err: fmt.Errorf("re-encode arguments: %w", err)}
	}
	doc, err := decodeJSON(raw)
	if err != nil {
		return &model.InternalError{Err: fmt.Errorf("re-decode arguments: %w", err)}
	}
	err = e.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &model.InternalError{Err: err}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	out := &model.ValidationError{
		Param:  pointerToPath(leaf.InstanceLocation),
		Reason: leaf.Message,
	}
	if p, ok := paramAt(e.sig.Params, leaf.InstanceLocation); ok {
		out.Expected = expected(p)
	} else {
		out.Expected = "object matching the " + e.sig.Name + " parameters"
	}
	return out
}

// paramAt resolves a JSON pointer such as /slot/start or /recipient_ids/0
// to the declared parameter it addresses. The root pointer has no
// parameter.
func paramAt(params []toolschema.Param, ptr string) (toolschema.Param, bool) {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return toolschema.Param{}, false
	}
	var (
		cur   toolschema.Param
		found bool
	)
	for _, part := range strings.Split(ptr, "/") {
		if found && cur.Kind == toolschema.Array {
			if _, err := strconv.Atoi(part); err != nil || cur.Items == nil {
				return toolschema.Param{}, false
			}
			cur = *cur.Items
			continue
		}
		if found {
			if cur.Kind != toolschema.Object {
				return toolschema.Param{}, false
			}
			params = cur.Fields
		}
		i := slices.IndexFunc(params, func(p toolschema.Param) bool { return p.Name == part })
		if i < 0 {
			return toolschema.Param{}, false
		}
		cur, found = params[i], true
	}
	return cur, found
}

// pointerToPath turns a JSON pointer like /slot/start into slot.start.
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	parts := strings.Split(ptr, "/")
	var b strings.Builder
	for i, part := range parts {
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			fmt.Fprintf(&b, "[%s]", part)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func declared(params []toolschema.Param, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func names(params []toolschema.Param) string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.Name)
	}
	return "[" + strings.Join(out, ", ") + "]"
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func expected(p toolschema.Param) string {
	switch p.Kind {
	case toolschema.Enum:
		return "one of [" + strings.Join(p.Enum, ", ") + "]"
	case toolschema.Object:
		return "object " + p.TypeName
	case toolschema.Array:
		if p.Items != nil {
			return "array of " + expected(*p.Items)
		}
		return "array"
	}
	return string(p.Kind)
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("string %q", x)
	case json.Number:
		return "number " + x.String()
	case bool:
		return "boolean " + strconv.FormatBool(x)
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
