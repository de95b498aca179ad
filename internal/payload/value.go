// Package payload provides nil-safe lookups over decoded JSON documents.
//
// Webhook bodies arrive in shapes that vary per platform and per event, so
// every read goes through Value: a missing key, a wrong type or an index out
// of range yields an absent Value instead of a panic.
package payload

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// Value wraps one node of a decoded JSON tree.
type Value struct {
	v interface{}
}

// Parse decodes raw JSON. Numbers keep their literal form so large
// platform ids survive. Invalid input yields an empty object.
func Parse(raw []byte) Value {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Value{v: map[string]interface{}{}}
	}
	return Value{v: v}
}

// ParseForm decodes an application/x-www-form-urlencoded body. A "payload"
// field holding JSON is unwrapped; otherwise the flat form becomes an object.
func ParseForm(raw []byte) Value {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return Value{v: map[string]interface{}{}}
	}

	if p := values.Get("payload"); p != "" {
		if parsed := Parse([]byte(p)); parsed.Exists() {
			return parsed
		}
	}

	obj := make(map[string]interface{}, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			obj[k] = vs[0]
			continue
		}
		list := make([]interface{}, len(vs))
		for i, s := range vs {
			list[i] = s
		}
		obj[k] = list
	}
	return Value{v: obj}
}

// Of wraps an already-decoded value.
func Of(v interface{}) Value {
	return Value{v: v}
}

// Get follows a dotted path. Numeric segments index into arrays.
func (v Value) Get(path string) Value {
	if path == "" {
		return v
	}

	cur := v.v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[seg]
			if !ok {
				return Value{}
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return Value{}
			}
			cur = node[idx]
		default:
			return Value{}
		}
	}
	return Value{v: cur}
}

// First returns the first path that resolves to a non-null value.
// The order of paths is significant: callers list specific paths first.
func (v Value) First(paths ...string) Value {
	for _, p := range paths {
		if got := v.Get(p); got.Exists() {
			return got
		}
	}
	return Value{}
}

// Exists reports whether the node is present and not JSON null.
func (v Value) Exists() bool {
	return v.v != nil
}

// Has reports whether path resolves to a non-null value.
func (v Value) Has(path string) bool {
	return v.Get(path).Exists()
}

// Raw returns the underlying decoded value.
func (v Value) Raw() interface{} {
	return v.v
}

// String returns scalars rendered as text. Objects, arrays and null are absent.
func (v Value) String() (string, bool) {
	switch x := v.v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// Str is String without the presence flag.
func (v Value) Str() string {
	s, _ := v.String()
	return s
}

// Int coerces numbers and numeric strings to an integer, truncating
// fractions. Anything else is absent.
func (v Value) Int() (int64, bool) {
	switch x := v.v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// Bool reports truthiness: true, non-zero numbers and non-empty strings
// other than "false"/"0".
func (v Value) Bool() bool {
	switch x := v.v.(type) {
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0" && !strings.EqualFold(x, "false")
	case nil:
		return false
	default:
		return true
	}
}

// Map returns the node as an object, or nil.
func (v Value) Map() map[string]interface{} {
	m, _ := v.v.(map[string]interface{})
	return m
}

// Array returns the node as an array, or nil.
func (v Value) Array() []interface{} {
	a, _ := v.v.([]interface{})
	return a
}

// Len returns the number of elements of an array or object.
func (v Value) Len() int {
	switch x := v.v.(type) {
	case []interface{}:
		return len(x)
	case map[string]interface{}:
		return len(x)
	default:
		return 0
	}
}

// Equals compares the node's text form case-insensitively.
func (v Value) Equals(s string) bool {
	got, ok := v.String()
	return ok && strings.EqualFold(got, s)
}

// OneOf reports whether the node's text form matches any candidate.
func (v Value) OneOf(candidates ...string) bool {
	for _, c := range candidates {
		if v.Equals(c) {
			return true
		}
	}
	return false
}
