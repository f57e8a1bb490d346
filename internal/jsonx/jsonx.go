// Package jsonx holds lenient JSON field types for decoding payloads from
// third-party providers into fixed schemas.
//
// A field that is missing or carries an unexpected JSON type decodes to its
// documented default instead of failing the whole document.
package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
)

var null = []byte("null")

// String decodes a JSON string. Any other JSON value, null included, leaves
// Valid false and Value empty.
type String struct {
	Value string
	Valid bool
}

func (s *String) UnmarshalJSON(data []byte) error {
	*s = String{}
	if bytes.Equal(bytes.TrimSpace(data), null) {
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*s = String{Value: v, Valid: true}
	return nil
}

// Object is a JSON object whose members are looked up by exact key. A
// non-object decodes to an empty Object.
type Object map[string]json.RawMessage

func (o *Object) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		*o = Object{}
		return nil
	}
	*o = m
	return nil
}

// String returns the member at key as a String.
func (o Object) String(key string) String {
	return Field[String](o, key)
}

// Field decodes the member at key into T. A missing member or one that does
// not fit T yields the zero T.
func Field[T any](o Object, key string) T {
	var v T
	if raw, ok := o[key]; ok {
		_ = Decode(raw, &v)
	}
	return v
}

// List decodes a JSON array element by element. A non-array decodes to an
// empty list; an element that does not fit T becomes the zero T so element
// positions are preserved.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = List[T]{}
		return nil
	}
	out := make(List[T], len(raw))
	for i, item := range raw {
		_ = Decode(item, &out[i])
	}
	*l = out
	return nil
}

// Decode unmarshals data into v, ignoring JSON type mismatches. Fields whose
// types do not match keep their zero values. Syntax errors are returned.
func Decode(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}
	return err
}
