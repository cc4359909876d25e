package slots

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindUndefined valueKind = iota
	kindString
	kindNumber
)

// Value is a wire scalar: undefined, a string or a number.
// The zero Value is undefined.
type Value struct {
	kind valueKind
	str  string
	num  float64
}

// StringValue creates a string Value
func StringValue(s string) Value {
	return Value{kind: kindString, str: s}
}

// NumberValue creates a numeric Value
func NumberValue(n float64) Value {
	return Value{kind: kindNumber, num: n}
}

// IntValue creates a numeric Value from an int
func IntValue(n int) Value {
	return NumberValue(float64(n))
}

// IsDefined reports whether the value was set
func (v Value) IsDefined() bool { return v.kind != kindUndefined }

// IsNumber reports whether the value is numeric
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// IsString reports whether the value is a string
func (v Value) IsString() bool { return v.kind == kindString }

// Number returns the numeric value and whether it was a number
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == kindNumber
}

// String renders the value the way it appears on the wire.
// Undefined renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Sendable reports whether the value belongs in a query string:
// numbers and non-empty strings only.
func (v Value) Sendable() bool {
	return v.kind == kindNumber || (v.kind == kindString && v.str != "")
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts strings, numbers, booleans, null and arrays of
// scalars. Arrays collapse to a comma-joined string.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = StringValue(strconv.FormatBool(b))
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.String()
		}
		*v = StringValue(strings.Join(parts, ","))
	case '{':
		return fmt.Errorf("slots: object is not a scalar value")
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("slots: invalid scalar %q: %w", data, err)
		}
		*v = NumberValue(n)
	}
	return nil
}
