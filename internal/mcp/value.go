package mcp

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the type of a property or a result.
type Kind int

// Property kinds.
const (
	KindBool Kind = iota + 1
	KindInt
	KindString
)

// String returns the JSON Schema type name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a tagged union of the three property kinds.
// The zero Value has no kind and means "absent".
type Value struct {
	kind Kind
	b    bool
	i    int
	s    string
}

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int wraps an integer.
func Int(v int) Value { return Value{kind: KindInt, i: v} }

// Text wraps a string.
func Text(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the kind of the value, zero when absent.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value holds anything.
func (v Value) IsValid() bool { return v.kind != 0 }

// AsBool returns the boolean payload; false for other kinds.
func (v Value) AsBool() bool { return v.kind == KindBool && v.b }

// AsInt returns the integer payload; 0 for other kinds.
func (v Value) AsInt() int {
	if v.kind != KindInt {
		return 0
	}

	return v.i
}

// AsString returns the string payload; empty for other kinds.
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}

	return v.s
}

// String renders the value as tool result text.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.Itoa(v.i)
	default:
		return v.s
	}
}

// MarshalJSON encodes the payload as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindString:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// decodeValue binds raw JSON to kind. Only the matching JSON type is accepted:
// true/false for Bool, an integral number within int range for Int, a string for String.
func decodeValue(raw json.RawMessage, kind Kind) (Value, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, false
	}

	switch kind {
	case KindBool:
		var b bool
		if raw[0] != 't' && raw[0] != 'f' {
			return Value{}, false
		}

		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, false
		}

		return Bool(b), true
	case KindInt:
		if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
			return Value{}, false
		}

		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, false
		}

		if i, err := n.Int64(); err == nil {
			if i < math.MinInt || i > math.MaxInt {
				return Value{}, false
			}

			return Int(int(i)), true
		}

		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) || f < math.MinInt || f > math.MaxInt {
			return Value{}, false
		}

		return Int(int(f)), true
	case KindString:
		if raw[0] != '"' {
			return Value{}, false
		}

		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, false
		}

		return Text(s), true
	default:
		return Value{}, false
	}
}
