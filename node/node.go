// Package node provides the parsed configuration tree consumed by the particle engine.
//
// Effect files are YAML documents. Parse converts them into a tree of plain
// values (nil, bool, int, float64, string, []any, *Map) where mappings keep
// their declaration order, since emitter and affector order is significant.
// Node wraps a value together with its dotted path so every typed accessor
// can report the offending field.
package node

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Sentinel errors wrapped by FieldError.
var (
	ErrMissing = errors.New("missing required field")
	ErrType    = errors.New("wrong type")
	ErrValue   = errors.New("invalid value")
)

// FieldError describes a configuration problem at a specific field.
type FieldError struct {
	Path string
	Msg  string
	Err  error
}

func (e *FieldError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Path, e.Err, e.Msg)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Node is a value in the configuration tree plus its location.
type Node struct {
	path string
	v    any
}

// Parse decodes a YAML document into a Node.
func Parse(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Node{}, fmt.Errorf("parsing effect document: %w", err)
	}
	if len(doc.Content) == 0 {
		return Node{path: "$"}, nil
	}
	v, err := convert(doc.Content[0])
	if err != nil {
		return Node{}, err
	}
	return Node{path: "$", v: v}, nil
}

// From wraps a Go value. Plain map[string]any values are converted to *Map
// with sorted keys so the result is deterministic.
func From(v any) Node {
	return Node{path: "$", v: normalize(v)}
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, normalize(t[k]))
		}
		return m
	case *Map:
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case float32:
		return float64(t)
	case int64:
		return int(t)
	}
	return v
}

func convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return normalize(v), nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i].Value
			v, err := convert(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// Path returns the dotted location of the node.
func (n Node) Path() string { return n.path }

// Raw returns the underlying value.
func (n Node) Raw() any { return n.v }

// IsNil reports whether the node holds no value.
func (n Node) IsNil() bool { return n.v == nil }

// IsMap reports whether the node is a mapping.
func (n Node) IsMap() bool {
	_, ok := n.v.(*Map)
	return ok
}

// IsList reports whether the node is a sequence.
func (n Node) IsList() bool {
	_, ok := n.v.([]any)
	return ok
}

// IsNumber reports whether the node is numeric.
func (n Node) IsNumber() bool {
	_, ok := toFloat(n.v)
	return ok
}

// IsString reports whether the node is a string.
func (n Node) IsString() bool {
	_, ok := n.v.(string)
	return ok
}

// Errorf builds a FieldError at this node.
func (n Node) Errorf(sentinel error, format string, args ...any) error {
	return &FieldError{Path: n.path, Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

// Has reports whether a mapping node contains key.
func (n Node) Has(key string) bool {
	m, ok := n.v.(*Map)
	if !ok {
		return false
	}
	_, ok = m.Get(key)
	return ok
}

// Get returns the child at key. The result is nil when absent.
func (n Node) Get(key string) Node {
	child := Node{path: n.path + "." + key}
	if m, ok := n.v.(*Map); ok {
		child.v, _ = m.Get(key)
	}
	return child
}

// Child returns the child at key or an ErrMissing error.
func (n Node) Child(key string) (Node, error) {
	if !n.Has(key) {
		return Node{}, &FieldError{Path: n.path + "." + key, Err: ErrMissing}
	}
	return n.Get(key), nil
}

// Len returns the number of elements of a list or entries of a map.
func (n Node) Len() int {
	switch t := n.v.(type) {
	case []any:
		return len(t)
	case *Map:
		return t.Len()
	}
	return 0
}

// Index returns the i-th list element.
func (n Node) Index(i int) Node {
	child := Node{path: n.path + "[" + strconv.Itoa(i) + "]"}
	if l, ok := n.v.([]any); ok && i >= 0 && i < len(l) {
		child.v = l[i]
	}
	return child
}

// Keys returns the keys of a mapping node in declaration order.
func (n Node) Keys() []string {
	if m, ok := n.v.(*Map); ok {
		return m.Keys()
	}
	return nil
}

// Entry is a named element of a map-or-list collection.
type Entry struct {
	Name string
	Node Node
}

// Entries returns the elements of a collection that may be written either
// as a mapping (name -> body) or a list of bodies. For map form the body
// inherits the key as its name when it does not declare one.
func (n Node) Entries() ([]Entry, error) {
	switch t := n.v.(type) {
	case nil:
		return nil, nil
	case *Map:
		out := make([]Entry, 0, t.Len())
		for _, k := range t.Keys() {
			child := n.Get(k)
			name := k
			if s, err := child.StringOr("name", ""); err == nil && s != "" {
				name = s
			}
			out = append(out, Entry{Name: name, Node: child})
		}
		return out, nil
	case []any:
		out := make([]Entry, 0, len(t))
		for i := range t {
			child := n.Index(i)
			name, err := child.StringOr("name", "")
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Name: name, Node: child})
		}
		return out, nil
	}
	return nil, n.Errorf(ErrType, "expected map or list")
}

// AsFloat returns the node as a number.
func (n Node) AsFloat() (float64, error) {
	if n.v == nil {
		return 0, &FieldError{Path: n.path, Err: ErrMissing}
	}
	f, ok := toFloat(n.v)
	if !ok {
		return 0, n.Errorf(ErrType, "expected number, got %T", n.v)
	}
	return f, nil
}

// AsString returns the node as a string.
func (n Node) AsString() (string, error) {
	if n.v == nil {
		return "", &FieldError{Path: n.path, Err: ErrMissing}
	}
	s, ok := n.v.(string)
	if !ok {
		return "", n.Errorf(ErrType, "expected string, got %T", n.v)
	}
	return s, nil
}

// AsFloats returns a list of numbers.
func (n Node) AsFloats() ([]float64, error) {
	l, ok := n.v.([]any)
	if !ok {
		return nil, n.Errorf(ErrType, "expected list of numbers")
	}
	out := make([]float64, len(l))
	for i := range l {
		f, err := n.Index(i).AsFloat()
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Float returns a required number.
func (n Node) Float(key string) (float64, error) {
	c, err := n.Child(key)
	if err != nil {
		return 0, err
	}
	return c.AsFloat()
}

// FloatOr returns a number, or def when the key is absent.
func (n Node) FloatOr(key string, def float64) (float64, error) {
	if !n.Has(key) {
		return def, nil
	}
	return n.Get(key).AsFloat()
}

// Int returns a required integer. Floats are truncated.
func (n Node) Int(key string) (int, error) {
	f, err := n.Float(key)
	return int(f), err
}

// IntOr returns an integer, or def when the key is absent.
func (n Node) IntOr(key string, def int) (int, error) {
	if !n.Has(key) {
		return def, nil
	}
	f, err := n.Get(key).AsFloat()
	return int(f), err
}

// BoolOr returns a boolean, or def when the key is absent.
func (n Node) BoolOr(key string, def bool) (bool, error) {
	if !n.Has(key) {
		return def, nil
	}
	c := n.Get(key)
	switch t := c.v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	}
	return false, c.Errorf(ErrType, "expected bool, got %T", c.v)
}

// String returns a required string.
func (n Node) String(key string) (string, error) {
	c, err := n.Child(key)
	if err != nil {
		return "", err
	}
	return c.AsString()
}

// StringOr returns a string, or def when the key is absent.
func (n Node) StringOr(key string, def string) (string, error) {
	if !n.Has(key) {
		return def, nil
	}
	return n.Get(key).AsString()
}

// Strings returns a value written either as a single string or a list of strings.
// An absent key yields nil.
func (n Node) Strings(key string) ([]string, error) {
	if !n.Has(key) {
		return nil, nil
	}
	c := n.Get(key)
	switch t := c.v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, len(t))
		for i := range t {
			s, err := c.Index(i).AsString()
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, c.Errorf(ErrType, "expected string or list of strings")
}

// Vec3Or returns a 3-component vector. Two-element lists get z = 0.
func (n Node) Vec3Or(key string, def [3]float64) ([3]float64, error) {
	if !n.Has(key) {
		return def, nil
	}
	c := n.Get(key)
	fs, err := c.AsFloats()
	if err != nil {
		return def, err
	}
	switch len(fs) {
	case 2:
		return [3]float64{fs[0], fs[1], 0}, nil
	case 3:
		return [3]float64{fs[0], fs[1], fs[2]}, nil
	}
	return def, c.Errorf(ErrValue, "expected 2 or 3 components, got %d", len(fs))
}

// Vec4Or returns a 4-component vector.
func (n Node) Vec4Or(key string, def [4]float64) ([4]float64, error) {
	if !n.Has(key) {
		return def, nil
	}
	c := n.Get(key)
	fs, err := c.AsFloats()
	if err != nil {
		return def, err
	}
	if len(fs) != 4 {
		return def, c.Errorf(ErrValue, "expected 4 components, got %d", len(fs))
	}
	return [4]float64{fs[0], fs[1], fs[2], fs[3]}, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
