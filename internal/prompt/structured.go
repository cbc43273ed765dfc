package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the closed set of value shapes a structured prompt
// can hold.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindNested
)

// Value is one structured-prompt value: a scalar string, an ordered
// sequence of strings, or a nested structured prompt.
type Value struct {
	kind   Kind
	scalar string
	seq    []string
	nested *Structured
}

func Scalar(s string) Value {
	return Value{kind: KindScalar, scalar: s}
}

func Sequence(items ...string) Value {
	return Value{kind: KindSequence, seq: append([]string(nil), items...)}
}

func Nested(s *Structured) Value {
	if s == nil {
		s = NewStructured()
	}
	return Value{kind: KindNested, nested: s}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Scalar() string { return v.scalar }

func (v Value) Sequence() []string {
	return append([]string(nil), v.seq...)
}

func (v Value) Nested() *Structured { return v.nested }

// Empty reports whether the synthesizer should skip this value.
func (v Value) Empty() bool {
	switch v.kind {
	case KindScalar:
		return strings.TrimSpace(v.scalar) == ""
	case KindSequence:
		return len(v.seq) == 0
	case KindNested:
		return v.nested == nil || v.nested.Len() == 0
	}
	return true
}

func (v Value) clone() Value {
	out := Value{kind: v.kind, scalar: v.scalar}
	if v.seq != nil {
		out.seq = append([]string(nil), v.seq...)
	}
	if v.nested != nil {
		out.nested = v.nested.Clone()
	}
	return out
}

func (v Value) equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		return v.scalar == other.scalar
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if v.seq[i] != other.seq[i] {
				return false
			}
		}
		return true
	case KindNested:
		return v.nested.Equal(other.nested)
	}
	return false
}

// Structured is the structured half of a prompt session: a flat key/value
// mapping with free-form keys. Insertion order is preserved so display and
// serialization stay stable across edits.
type Structured struct {
	keys   []string
	values map[string]Value
}

func NewStructured() *Structured {
	return &Structured{values: make(map[string]Value)}
}

// Set stores a value, keeping the original position of an existing key.
func (s *Structured) Set(key string, v Value) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

func (s *Structured) Get(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Structured) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

func (s *Structured) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *Structured) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *Structured) Clone() *Structured {
	if s == nil {
		return NewStructured()
	}
	out := &Structured{
		keys:   append([]string(nil), s.keys...),
		values: make(map[string]Value, len(s.values)),
	}
	for k, v := range s.values {
		out.values[k] = v.clone()
	}
	return out
}

func (s *Structured) Equal(other *Structured) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s == nil || other == nil {
		return true
	}
	for i, k := range s.keys {
		if other.keys[i] != k {
			return false
		}
		if !s.values[k].equal(other.values[k]) {
			return false
		}
	}
	return true
}

// Encode returns the canonical serialization: a single-line JSON object
// with keys in insertion order. Every equality guard in the sync
// controller compares this form.
func (s *Structured) Encode() string {
	var b bytes.Buffer
	s.encodeTo(&b, false, 0)
	return b.String()
}

// EncodeIndent returns the two-space indented form shown to users.
func (s *Structured) EncodeIndent() string {
	var b bytes.Buffer
	s.encodeTo(&b, true, 0)
	return b.String()
}

func (s *Structured) encodeTo(b *bytes.Buffer, indent bool, depth int) {
	if s == nil || len(s.keys) == 0 {
		b.WriteString("{}")
		return
	}

	b.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		if indent {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat("  ", depth+1))
		}
		writeJSONString(b, k)
		b.WriteByte(':')
		if indent {
			b.WriteByte(' ')
		}
		s.values[k].encodeTo(b, indent, depth+1)
	}
	if indent {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", depth))
	}
	b.WriteByte('}')
}

func (v Value) encodeTo(b *bytes.Buffer, indent bool, depth int) {
	switch v.kind {
	case KindScalar:
		writeJSONString(b, v.scalar)
	case KindSequence:
		b.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				b.WriteByte(',')
				if indent {
					b.WriteByte(' ')
				}
			}
			writeJSONString(b, item)
		}
		b.WriteByte(']')
	case KindNested:
		v.nested.encodeTo(b, indent, depth)
	}
}

func writeJSONString(b *bytes.Buffer, s string) {
	enc, err := json.Marshal(s)
	if err != nil {
		enc = []byte(`""`)
	}
	b.Write(enc)
}

// MarshalJSON emits the canonical ordered serialization.
func (s *Structured) MarshalJSON() ([]byte, error) {
	return []byte(s.Encode()), nil
}

func (s *Structured) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(string(data))
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

// ErrMalformed is returned by Decode for input that is not a JSON object.
var ErrMalformed = errors.New("structured prompt must be a JSON object")

// Decode parses a serialized structured prompt, preserving key order.
// Scalars keep their literal text, so numbers and booleans survive as
// Scalar values. Arrays become Sequences with non-string elements
// degraded to their literal text; objects become Nested prompts.
func Decode(raw string) (*Structured, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrMalformed
	}

	out, err := decodeObject(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return out, nil
}

func decodeObject(dec *json.Decoder) (*Structured, error) {
	out := NewStructured()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, ErrMalformed
		}

		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out.Set(key, val)
	}
	// consume the closing brace
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			nested, err := decodeObject(dec)
			if err != nil {
				return Value{}, err
			}
			return Nested(nested), nil
		case '[':
			var items []string
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, scalarText(item))
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return Sequence(items...), nil
		}
		return Value{}, ErrMalformed
	case string:
		return Scalar(t), nil
	case json.Number:
		return Scalar(t.String()), nil
	case bool:
		if t {
			return Scalar("true"), nil
		}
		return Scalar("false"), nil
	case nil:
		return Scalar(""), nil
	}
	return Value{}, ErrMalformed
}

func scalarText(v Value) string {
	switch v.kind {
	case KindScalar:
		return v.scalar
	default:
		var b bytes.Buffer
		v.encodeTo(&b, false, 0)
		return b.String()
	}
}
