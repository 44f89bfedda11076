// Package jsonutil wraps github.com/go-json-experiment/json so the rest of
// the module has one place that decides JSON options.
//
// Decoding ignores unknown object members and is case-sensitive. Encoding
// writes nil slices and maps as [] and {} so consumers never see null where a
// collection is expected, and sorts map keys.
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// UnmarshalRead decodes a single JSON value read from r into v.
func UnmarshalRead(r io.Reader, v any) error {
	return json.UnmarshalRead(r, v)
}

// Marshal encodes v. Map keys are sorted so equal values encode to equal bytes.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalIndent encodes v with the given indent per nesting level.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true), jsontext.WithIndent(indent))
}

// Write encodes v to w followed by a newline, matching encoding/json.Encoder.
func Write(w io.Writer, v any, indent string) error {
	var err error
	if indent != "" {
		err = json.MarshalWrite(w, v, json.Deterministic(true), jsontext.WithIndent(indent))
	} else {
		err = json.MarshalWrite(w, v, json.Deterministic(true))
	}
	if err != nil {
		return err
	}
	_, err = w.Write([]byte{'\n'})
	return err
}

// Valid reports whether data is a single valid JSON value.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}
