package toon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID    int    `json:"id"`
	Owner string `json:"owner"`
	Note  string `json:"note,omitempty"`
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{
			name: "tabular and primitive arrays",
			in: map[string]any{
				"users": []any{
					map[string]any{"id": 1, "name": "Alice"},
					map[string]any{"id": 2, "name": "Bob"},
				},
				"tags": []string{"a", "b", "c"},
			},
			want: "tags[3]: a,b,c\nusers[2]{id,name}:\n  1,Alice\n  2,Bob",
		},
		{
			name: "nested object",
			in:   map[string]any{"owner": map[string]any{"name": "Carol", "age": 30.5}},
			want: "owner:\n  age: 30.5\n  name: Carol",
		},
		{
			name: "numbers without exponent",
			in:   map[string]any{"a": 1.0, "b": 2.5, "c": -3, "big": 1e21, "zero": json.RawMessage("-0")},
			want: "a: 1\nb: 2.5\nbig: 1000000000000000000000\nc: -3\nzero: 0",
		},
		{
			name: "json tags apply",
			in:   []account{{ID: 1, Owner: "ann"}, {ID: 2, Owner: "bo"}},
			want: "[2]{id,owner}:\n  1,ann\n  2,bo",
		},
		{
			name: "empty root",
			in:   map[string]any{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := `{
		"order": {"id": 7, "paid": false, "note": null},
		"lines": [
			{"sku": "A-1", "qty": 2, "price": 9.99},
			{"sku": "B:2", "qty": 1, "price": 120}
		],
		"history": [
			{"at": "2025-01-01", "events": ["created", "paid"]},
			{"at": "2025-01-02", "events": []}
		],
		"matrix": [[1, 2], [3]],
		"text": "line one\nline \"two\"",
		"flags": ["true", "42", "", "hello, world"]
	}`
	var want any
	require.NoError(t, json.Unmarshal([]byte(src), &want))

	encoded, err := Codec{}.Encode(want)
	require.NoError(t, err)

	got, err := Codec{}.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode(t *testing.T) {
	got, err := Decode("status: ok\ncount: 2\nrows[2]{id,done}:\n  1,true\n  2,null")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status": "ok",
		"count":  2.0,
		"rows": []any{
			map[string]any{"id": 1.0, "done": true},
			map[string]any{"id": 2.0, "done": nil},
		},
	}, got)

	got, err = Decode("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = Decode("")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"inline count mismatch": "items[3]: a,b",
		"missing rows":          "rows[2]{a,b}:\n  1,2",
		"odd indentation":       "a:\n   b: 1",
		"tab indentation":       "a:\n\tb: 1",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(in)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}
