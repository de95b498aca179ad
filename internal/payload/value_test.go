package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"entry": [
		{"id": "1", "time": 1520383571, "changes": [{"field": "feed", "value": {"post_id": "p1", "count": "42", "big": 1234567890123456789}}]}
	],
	"flag": true,
	"empty": null
}`

func TestValue_Get(t *testing.T) {
	v := Parse([]byte(sample))

	tests := []struct {
		name   string
		path   string
		want   string
		exists bool
	}{
		{name: "nested object through array", path: "entry.0.changes.0.value.post_id", want: "p1", exists: true},
		{name: "array index out of range", path: "entry.1.id", exists: false},
		{name: "negative index", path: "entry.-1.id", exists: false},
		{name: "non numeric index", path: "entry.first.id", exists: false},
		{name: "traverse into scalar", path: "flag.x", exists: false},
		{name: "explicit null", path: "empty", exists: false},
		{name: "missing key", path: "nope", exists: false},
		{name: "large integer keeps precision", path: "entry.0.changes.0.value.big", want: "1234567890123456789", exists: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Get(tt.path)
			assert.Equal(t, tt.exists, got.Exists())
			if tt.exists {
				assert.Equal(t, tt.want, got.Str())
			}
		})
	}
}

func TestValue_First(t *testing.T) {
	v := Parse([]byte(`{"a": null, "b": {"c": "hit"}, "d": "later"}`))

	assert.Equal(t, "hit", v.First("a", "b.c", "d").Str())
	assert.Equal(t, "later", v.First("x", "d", "b.c").Str())
	assert.False(t, v.First("x", "y").Exists())
}

func TestValue_Int(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
		ok   bool
	}{
		{name: "integer", raw: `{"v": 12}`, want: 12, ok: true},
		{name: "float truncates", raw: `{"v": 12.9}`, want: 12, ok: true},
		{name: "numeric string", raw: `{"v": "7"}`, want: 7, ok: true},
		{name: "float string", raw: `{"v": "3.5"}`, want: 3, ok: true},
		{name: "non numeric string", raw: `{"v": "abc"}`, ok: false},
		{name: "bool", raw: `{"v": true}`, ok: false},
		{name: "object", raw: `{"v": {}}`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse([]byte(tt.raw)).Get("v").Int()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	v := Parse([]byte(`not json`))
	require.True(t, v.Exists())
	assert.Equal(t, 0, v.Len())
	assert.False(t, v.Get("entry.0.id").Exists())
}

func TestParseForm(t *testing.T) {
	t.Run("payload field with json", func(t *testing.T) {
		v := ParseForm([]byte(`payload=%7B%22shareUpdate%22%3A%7B%22shareId%22%3A%22s1%22%7D%7D`))
		assert.Equal(t, "s1", v.Get("shareUpdate.shareId").Str())
	})

	t.Run("flat form", func(t *testing.T) {
		v := ParseForm([]byte(`event_type=like&id=9&tag=a&tag=b`))
		assert.Equal(t, "like", v.Get("event_type").Str())
		assert.Equal(t, "b", v.Get("tag.1").Str())
	})
}

func TestValue_Bool(t *testing.T) {
	v := Parse([]byte(`{"t": true, "f": false, "s": "yes", "z": "0", "n": 1}`))
	assert.True(t, v.Get("t").Bool())
	assert.False(t, v.Get("f").Bool())
	assert.True(t, v.Get("s").Bool())
	assert.False(t, v.Get("z").Bool())
	assert.True(t, v.Get("n").Bool())
	assert.False(t, v.Get("missing").Bool())
}
