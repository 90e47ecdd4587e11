package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Property is one declared tool parameter.
type Property struct {
	// name is the argument key.
	name string
	// kind is the only JSON type accepted for the argument.
	kind Kind
	// description is shown to the agent.
	description string
	// def is the default; an invalid Value marks the property as required.
	def Value
	// hasRange enables min/max clamping for integers.
	hasRange bool
	// min is the lowest accepted integer.
	min int
	// max is the highest accepted integer.
	max int
}

// PropertyOption customizes a Property.
type PropertyOption func(*Property)

// WithDefault makes the property optional with the given default.
func WithDefault(v Value) PropertyOption {
	return func(p *Property) {
		p.def = v
	}
}

// WithRange bounds an integer property. Bound arguments are clamped into the range.
func WithRange(minimum, maximum int) PropertyOption {
	return func(p *Property) {
		p.hasRange = true
		p.min = minimum
		p.max = maximum
	}
}

// WithDescription sets the description shown in the schema.
func WithDescription(text string) PropertyOption {
	return func(p *Property) {
		p.description = text
	}
}

// NewProperty declares a parameter. It rejects ranges on non-integer kinds,
// defaults of another kind and defaults outside the range.
func NewProperty(name string, kind Kind, opts ...PropertyOption) (Property, error) {
	p := Property{name: name, kind: kind}
	for _, opt := range opts {
		opt(&p)
	}

	if name == "" {
		return Property{}, fmt.Errorf("%w: empty name", ErrInvalidProperty)
	}

	if kind < KindBool || kind > KindString {
		return Property{}, fmt.Errorf("%w: %s has no kind", ErrInvalidProperty, name)
	}

	if p.def.IsValid() && p.def.Kind() != kind {
		return Property{}, fmt.Errorf("%w: %s default is %s, want %s",
			ErrInvalidProperty, name, p.def.Kind(), kind)
	}

	if !p.hasRange {
		return p, nil
	}

	if kind != KindInt {
		return Property{}, fmt.Errorf("%w: %s range limits only apply to integers", ErrInvalidProperty, name)
	}

	if p.min > p.max {
		return Property{}, fmt.Errorf("%w: %s range [%d, %d] is empty", ErrInvalidProperty, name, p.min, p.max)
	}

	if p.def.IsValid() && (p.def.AsInt() < p.min || p.def.AsInt() > p.max) {
		return Property{}, fmt.Errorf("%w: %s default %d outside [%d, %d]",
			ErrInvalidProperty, name, p.def.AsInt(), p.min, p.max)
	}

	return p, nil
}

// MustProperty is NewProperty for static catalogs; it panics on error.
func MustProperty(name string, kind Kind, opts ...PropertyOption) Property {
	p, err := NewProperty(name, kind, opts...)
	if err != nil {
		panic(err)
	}

	return p
}

// Name returns the argument key.
func (p Property) Name() string { return p.name }

// Kind returns the accepted kind.
func (p Property) Kind() Kind { return p.kind }

// Required reports whether the property has no default.
func (p Property) Required() bool { return !p.def.IsValid() }

// Default returns the default and whether one is set.
func (p Property) Default() (Value, bool) { return p.def, p.def.IsValid() }

// Range returns the integer bounds and whether they are set.
func (p Property) Range() (minimum, maximum int, ok bool) { return p.min, p.max, p.hasRange }

// bind converts a raw argument, falling back to the default.
func (p Property) bind(raw json.RawMessage, present bool) (Value, bool) {
	if present {
		if v, ok := decodeValue(raw, p.kind); ok {
			if p.hasRange {
				v = Int(min(max(v.AsInt(), p.min), p.max))
			}

			return v, true
		}
	}

	if p.def.IsValid() {
		return p.def, true
	}

	return Value{}, false
}

// schema renders the property as a JSON Schema fragment.
func (p Property) schema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        p.kind.String(),
		Description: p.description,
	}

	if p.def.IsValid() {
		// Marshalling a bool, int or string cannot fail.
		data, _ := json.Marshal(p.def) //nolint:errchkjson // See above.
		s.Default = data
	}

	if p.hasRange {
		lo, hi := float64(p.min), float64(p.max)
		s.Minimum = &lo
		s.Maximum = &hi
	}

	return s
}
