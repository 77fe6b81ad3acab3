// Package record implements the generic record: an ordered list of
// (key, tagged value) pairs whose shape is defined entirely by the
// backing table. Field order is preserved through JSON so the console can
// derive a stable column layout from a sample record.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind tags the type of a field value
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	default:
		return "null"
	}
}

// Value is a tagged field value. The zero value is null.
type Value struct {
	kind Kind
	str  string // string payload, or the raw number text
	b    bool
	t    time.Time
}

// Null returns the null value
func Null() Value { return Value{} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number value
func Number(f float64) Value {
	return Value{kind: KindNumber, str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Int returns an integer number value
func Int(i int64) Value {
	return Value{kind: KindNumber, str: strconv.FormatInt(i, 10)}
}

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Timestamp returns a timestamp value
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// Kind returns the value's type tag
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload, or "" for other kinds
func (v Value) AsString() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}

// AsNumber returns the numeric payload, or 0 for other kinds
func (v Value) AsNumber() float64 {
	if v.kind != KindNumber {
		return 0
	}
	f, _ := strconv.ParseFloat(v.str, 64)
	return f
}

// AsInt returns the numeric payload truncated to int64
func (v Value) AsInt() int64 {
	if v.kind != KindNumber {
		return 0
	}
	if i, err := strconv.ParseInt(v.str, 10, 64); err == nil {
		return i
	}
	return int64(v.AsNumber())
}

// AsBool returns the boolean payload, or false for other kinds
func (v Value) AsBool() bool {
	return v.kind == KindBool && v.b
}

// AsTime returns the timestamp payload, or the zero time for other kinds
func (v Value) AsTime() time.Time {
	if v.kind == KindTimestamp {
		return v.t
	}
	return time.Time{}
}

// Text renders the value for display
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTimestamp:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.str), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindTimestamp:
		return json.Marshal(v.t.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

// Field is one ordered record entry
type Field struct {
	Key   string
	Value Value
}

// Record is an ordered set of fields, unique by key. The zero value is an
// empty record ready for use.
type Record struct {
	fields []Field
}

// FromFields builds a record from fields in order, last value winning on
// duplicate keys.
func FromFields(fields []Field) *Record {
	r := &Record{}
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Len returns the number of fields
func (r *Record) Len() int { return len(r.fields) }

// Keys returns the field keys in order
func (r *Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns the ordered fields as a fresh slice
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get returns the value for key and whether it is present
func (r *Record) Get(key string) (Value, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value for key in place, or appends a new field
func (r *Record) Set(key string, value Value) {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Delete removes the field for key, preserving the order of the rest
func (r *Record) Delete(key string) {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields = append(r.fields[:i], r.fields[i+1:]...)
			return
		}
	}
}

// MarshalJSON writes the record as a JSON object in field order
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object preserving key order. Strings in
// RFC 3339 form decode as timestamps. Nested objects and arrays are
// rejected; generic records are flat by contract.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	r.fields = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode record key: %w", err)
		}
		key := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode record value: %w", err)
		}

		value, err := valueFromToken(valTok)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

func valueFromToken(tok json.Token) (Value, error) {
	switch v := tok.(type) {
	case nil:
		return Null(), nil
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return Timestamp(t), nil
		}
		return String(v), nil
	case json.Number:
		return Value{kind: KindNumber, str: v.String()}, nil
	case bool:
		return Bool(v), nil
	case json.Delim:
		return Value{}, fmt.Errorf("nested values are not supported")
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", tok)
	}
}

// DeriveColumns infers the column set for a collection from its first
// record. An empty collection yields an empty column set; the console
// renders "no results" without columns rather than guessing a schema.
func DeriveColumns(records []*Record) []string {
	if len(records) == 0 {
		return []string{}
	}
	return records[0].Keys()
}
