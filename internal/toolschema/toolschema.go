// Package toolschema turns declared operation signatures into tool
// descriptors: a name, a description and a JSON Schema for the arguments,
// in the shape agent runtimes expect for function calling.
//
// Schemas are built from the declared Param tree, never by reflection, so
// a descriptor depends only on its Signature. Building the same Signature
// twice yields byte-identical JSON.
package toolschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Kind is the semantic type of a parameter.
type Kind string

const (
	String  Kind = "string"
	Integer Kind = "integer"
	Number  Kind = "number"
	Boolean Kind = "boolean"
	Enum    Kind = "enum"
	Object  Kind = "object"
	Array   Kind = "array"
)

// Param declares one parameter of an operation. A nil Default makes the
// parameter required.
type Param struct {
	Name        string
	Kind        Kind
	Description string
	Default     any
	// Enum lists the accepted values of an Enum parameter.
	Enum []string
	// Format is an optional JSON Schema format hint for strings.
	Format string
	// TypeName names the sub-schema of an Object parameter; Fields are
	// its members.
	TypeName string
	Fields   []Param
	// Items describes the elements of an Array parameter.
	Items *Param
}

// Required reports whether the parameter has no default.
func (p Param) Required() bool { return p.Default == nil }

// Signature is the declared shape of an operation.
type Signature struct {
	Name        string
	Description string
	Params      []Param
}

// Param returns the declared parameter with the given name.
func (s Signature) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Descriptor is the tool description handed to an agent runtime.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// SchemaJSON renders the parameter schema.
func (d Descriptor) SchemaJSON() ([]byte, error) {
	return json.Marshal(d.Parameters)
}

// Describe builds the descriptor for sig. It fails when the signature is
// malformed: empty or duplicate names, enums without values, defaults that
// do not fit their parameter, objects without a type name, or arrays
// without an item declaration.
func Describe(sig Signature) (Descriptor, error) {
	if sig.Name == "" {
		return Descriptor{}, fmt.Errorf("toolschema: signature name is required")
	}
	b := &builder{defs: jsonschema.Definitions{}, shapes: map[string][]Param{}}
	root, err := b.object(sig.Name, sig.Params)
	if err != nil {
		return Descriptor{}, fmt.Errorf("toolschema: %s: %w", sig.Name, err)
	}
	if len(b.defs) > 0 {
		root.Definitions = b.defs
	}
	return Descriptor{
		Name:        sig.Name,
		Description: sig.Description,
		Parameters:  root,
	}, nil
}

// Catalog describes every signature, preserving order.
func Catalog(sigs []Signature) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(sigs))
	seen := make(map[string]bool, len(sigs))
	for _, sig := range sigs {
		if seen[sig.Name] {
			return nil, fmt.Errorf("toolschema: duplicate tool %q", sig.Name)
		}
		seen[sig.Name] = true
		d, err := Describe(sig)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// CatalogDocument is the exported tool catalog.
type CatalogDocument struct {
	Tools []Descriptor `json:"tools"`
}

// MarshalCatalog renders descriptors as one indented JSON document.
func MarshalCatalog(ds []Descriptor) ([]byte, error) {
	if ds == nil {
		ds = []Descriptor{}
	}
	return json.MarshalIndent(CatalogDocument{Tools: ds}, "", "  ")
}

// MarshalCatalogYAML renders the same document as YAML, keeping the key
// order of the JSON form.
func MarshalCatalogYAML(ds []Descriptor) ([]byte, error) {
	raw, err := MarshalCatalog(ds)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("toolschema: reparse catalog: %w", err)
	}
	blockStyle(&doc)
	return yaml.Marshal(&doc)
}

// blockStyle drops the flow and quoting styles a JSON source leaves on
// every node.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

type builder struct {
	defs   jsonschema.Definitions
	shapes map[string][]Param
}

func (b *builder) object(where string, params []Param) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}
	required := []string{}
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("%s: parameter name is required", where)
		}
		if _, dup := s.Properties.Get(p.Name); dup {
			return nil, fmt.Errorf("%s: duplicate parameter %q", where, p.Name)
		}
		prop, err := b.param(where+"."+p.Name, p)
		if err != nil {
			return nil, err
		}
		s.Properties.Set(p.Name, prop)
		if p.Required() {
			required = append(required, p.Name)
		}
	}
	if len(required) > 0 {
		s.Required = required
	}
	return s, nil
}

func (b *builder) param(where string, p Param) (*jsonschema.Schema, error) {
	var s *jsonschema.Schema
	switch p.Kind {
	case String:
		s = &jsonschema.Schema{Type: "string", Format: p.Format}
	case Integer, Number, Boolean:
		s = &jsonschema.Schema{Type: string(p.Kind)}
	case Enum:
		if len(p.Enum) == 0 {
			return nil, fmt.Errorf("%s: enum without values", where)
		}
		s = &jsonschema.Schema{Type: "string", Enum: make([]any, 0, len(p.Enum))}
		for _, v := range p.Enum {
			s.Enum = append(s.Enum, v)
		}
	case Object:
		ref, err := b.define(where, p)
		if err != nil {
			return nil, err
		}
		s = &jsonschema.Schema{Ref: ref}
	case Array:
		if p.Items == nil {
			return nil, fmt.Errorf("%s: array without items", where)
		}
		items, err := b.param(where+"[]", *p.Items)
		if err != nil {
			return nil, err
		}
		s = &jsonschema.Schema{Type: "array", Items: items}
	default:
		return nil, fmt.Errorf("%s: unknown kind %q", where, p.Kind)
	}
	s.Description = p.Description

	if p.Default != nil {
		if err := checkDefault(p); err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		s.Default = p.Default
	}
	return s, nil
}

// define registers the sub-schema of an object parameter under $defs and
// returns its reference. Reusing a type name with a different shape is an
// error.
func (b *builder) define(where string, p Param) (string, error) {
	if p.TypeName == "" {
		return "", fmt.Errorf("%s: object parameter needs a type name", where)
	}
	ref := "#/$defs/" + p.TypeName
	if prev, ok := b.shapes[p.TypeName]; ok {
		if !sameShape(prev, p.Fields) {
			return "", fmt.Errorf("%s: type %q redeclared with a different shape", where, p.TypeName)
		}
		return ref, nil
	}
	b.shapes[p.TypeName] = p.Fields
	sub, err := b.object(p.TypeName, p.Fields)
	if err != nil {
		return "", err
	}
	sub.Title = p.TypeName
	b.defs[p.TypeName] = sub
	return ref, nil
}

func checkDefault(p Param) error {
	ok := false
	switch p.Kind {
	case String:
		_, ok = p.Default.(string)
	case Enum:
		var v string
		v, ok = p.Default.(string)
		if ok && !slices.Contains(p.Enum, v) {
			return fmt.Errorf("default %q is not one of %v", v, p.Enum)
		}
	case Integer:
		switch p.Default.(type) {
		case int, int32, int64:
			ok = true
		}
	case Number:
		switch p.Default.(type) {
		case int, int32, int64, float32, float64:
			ok = true
		}
	case Boolean:
		_, ok = p.Default.(bool)
	case Array:
		ok = reflect.ValueOf(p.Default).Kind() == reflect.Slice
	case Object:
		_, ok = p.Default.(map[string]any)
	}
	if !ok {
		return fmt.Errorf("default %v (%T) does not match kind %s", p.Default, p.Default, p.Kind)
	}
	return nil
}

func sameShape(a, b []Param) bool {
	return reflect.DeepEqual(a, b)
}
