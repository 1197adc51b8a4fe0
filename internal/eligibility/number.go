package eligibility

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric field that may be absent. It decodes from JSON numbers,
// numeric strings and null. Anything else becomes a present zero instead of a
// decode error, so malformed upstream data degrades to the conservative default.
type Number struct {
	Value float64
	Valid bool
}

// NewNumber returns a present number.
func NewNumber(v float64) Number {
	return Number{Value: sanitize(v), Valid: true}
}

// Float64 returns the value, or 0 when absent.
func (n Number) Float64() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// Set reports whether the number is present and non-zero. Requirement fields
// only trigger their rule when Set is true.
func (n Number) Set() bool {
	return n.Valid && n.Value != 0
}

// ParseNumber coerces a loosely typed value. nil yields an absent number,
// numeric strings are parsed and everything unparsable is a present 0.
func ParseNumber(v interface{}) Number {
	switch t := v.(type) {
	case nil:
		return Number{}
	case Number:
		return t
	case *Number:
		if t == nil {
			return Number{}
		}
		return *t
	case float64:
		return NewNumber(t)
	case float32:
		return NewNumber(float64(t))
	case int:
		return NewNumber(float64(t))
	case int32:
		return NewNumber(float64(t))
	case int64:
		return NewNumber(float64(t))
	case uint:
		return NewNumber(float64(t))
	case uint32:
		return NewNumber(float64(t))
	case uint64:
		return NewNumber(float64(t))
	case json.Number:
		return parseString(string(t))
	case string:
		return parseString(t)
	default:
		return NewNumber(0)
	}
}

func parseString(s string) Number {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return NewNumber(0)
	}
	return NewNumber(f)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on well-formed JSON.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}

	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*n = NewNumber(0)
		return nil
	}
	*n = ParseNumber(raw)
	return nil
}

// MarshalJSON implements json.Marshaler. Absent numbers encode as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(FormatNumber(n.Value)), nil
}

// UnmarshalYAML decodes YAML scalars with the same coercion rules as JSON.
func (n *Number) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		*n = NewNumber(0)
		return nil
	}
	*n = ParseNumber(raw)
	return nil
}

// FormatNumber renders a number in its shortest exact form (5000000, 2.5).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
