package component

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Inputs holds the named inputs of one Run call.
type Inputs map[string]any

// Has reports whether name was supplied.
func (in Inputs) Has(name string) bool {
	_, ok := in[name]
	return ok
}

// Text returns the input as a string. Non-string scalars are formatted.
func (in Inputs) Text(name string) string {
	switch v := in[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the input as an int64, or def when absent or not integral.
func (in Inputs) Int(name string, def int64) int64 {
	v, ok := in[name]
	if !ok || v == nil {
		return def
	}
	n, err := toInt(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns the input as a float64, or def when absent or not numeric.
func (in Inputs) Float(name string, def float64) float64 {
	v, ok := in[name]
	if !ok || v == nil {
		return def
	}
	f, err := toFloat(v)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the input as a bool, or def when absent or malformed.
func (in Inputs) Bool(name string, def bool) bool {
	v, ok := in[name]
	if !ok || v == nil {
		return def
	}
	b, err := toBool(v)
	if err != nil {
		return def
	}
	return b
}

// Value returns the raw input.
func (in Inputs) Value(name string) any { return in[name] }

// File returns the input as a file reference.
func (in Inputs) File(name string) (File, error) {
	return FileFrom(in[name])
}

// List returns the input as a []any, or nil.
func (in Inputs) List(name string) []any {
	l, _ := toList(in[name])
	return l
}

// Coerce validates raw against d's declared inputs and converts each value
// to its semantic type. Unknown keys and missing non-optional inputs are
// InvalidInput errors, as are values that cannot be converted.
func Coerce(d Descriptor, raw map[string]any) (Inputs, error) {
	var unknown []string
	for k := range raw {
		if _, ok := d.Input(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, InvalidInput(d.Name, strings.Join(unknown, ","), "undeclared input")
	}

	out := make(Inputs, len(d.Inputs))
	for _, def := range d.Inputs {
		v, ok := raw[def.Name]
		if !ok || v == nil {
			if def.Optional {
				continue
			}
			return nil, InvalidInput(d.Name, def.Name, "required input is missing")
		}
		cv, err := CoerceValue(def.Type, v)
		if err != nil {
			return nil, InvalidInput(d.Name, def.Name, "%v", err)
		}
		out[def.Name] = cv
	}
	return out, nil
}

// CoerceValue converts v to the Go representation of t.
func CoerceValue(t ValueType, v any) (any, error) {
	switch t {
	case TypeText, TypeTemplate:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		case bool, int, int64, float64, json.Number:
			return fmt.Sprint(s), nil
		}
		return nil, fmt.Errorf("expected text, got %T", v)
	case TypeInt:
		return toInt(v)
	case TypeFloat:
		return toFloat(v)
	case TypeBool:
		return toBool(v)
	case TypeJSON:
		return toJSON(v)
	case TypeFile, TypeImage:
		return FileFrom(v)
	case TypeList:
		l, err := toList(v)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return v, nil
	}
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt(uint64(n))
	case uint64:
		return uintToInt(n)
	case uint32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is out of int64 range", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("expected int, got %T", v)
}

func uintToInt(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%d is out of int64 range", n)
	}
	return int64(n), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected float, got %T", v)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		p, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", b)
		}
		return p, nil
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}

// ParseJSON decodes a JSON document into generic Go values.
func ParseJSON(data []byte) (any, error) {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	return out, nil
}

func toJSON(v any) (any, error) {
	switch j := v.(type) {
	case string:
		return ParseJSON([]byte(j))
	case []byte:
		return ParseJSON(j)
	case json.RawMessage:
		return ParseJSON(j)
	case File:
		return j.ToMap(), nil
	case *File:
		return j.ToMap(), nil
	}
	return v, nil
}

func toList(v any) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, nil
	case string:
		parsed, err := ParseJSON([]byte(l))
		if err != nil {
			return nil, err
		}
		arr, ok := parsed.([]any)
		if !ok {
			return nil, fmt.Errorf("expected a JSON array, got %T", parsed)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("expected list, got %T", v)
}
