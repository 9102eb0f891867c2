// Package toon encodes context data as Token-Oriented Object Notation and
// decodes model replies written in it.
//
//	users[2]{id,name}:
//	  1,Alice
//	  2,Bob
//	tags[3]: a,b,c
package toon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	toongo "github.com/toon-format/toon-go"
)

// ErrSyntax wraps every decode failure.
var ErrSyntax = errors.New("toon: syntax error")

// Codec adapts the package functions to an encode/decode capability.
type Codec struct{}

func (Codec) Encode(v any) (string, error) { return Encode(v) }

func (Codec) Decode(s string) (any, error) { return Decode(s) }

// Encode renders v with sorted object keys and two-space indentation.
// Values go through encoding/json first so json tags and marshalers apply
// the same way they do for the JSON rendition.
func Encode(v any) (string, error) {
	normalized, err := normalize(v)
	if err != nil {
		return "", err
	}
	out, err := toongo.MarshalString(normalized, toongo.WithIndent(2))
	if err != nil {
		return "", fmt.Errorf("toon: encode: %w", err)
	}
	return out, nil
}

// Decode parses a TOON document in strict mode. Numbers come back as
// float64, objects as map[string]any and arrays as []any.
func Decode(s string) (any, error) {
	v, err := toongo.DecodeString(s, toongo.WithStrictMode(true), toongo.WithDecoderIndent(2))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("toon: normalize: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("toon: normalize: %w", err)
	}
	return out, nil
}
