// Package schema describes the shape of a structured model response.
//
// A Schema is a small tagged tree (primitive, array-of, object-with-fields).
// It is rendered into the prompt as JSON-schema text, converted into the
// native Gemini schema, and used for an advisory conformance report. It is
// never used to reject a response.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	String  Kind = "string"
	Number  Kind = "number"
	Boolean Kind = "boolean"
	Array   Kind = "array"
	Object  Kind = "object"
)

// Field is one named property of an object schema. Order is preserved.
type Field struct {
	Name   string
	Schema *Schema
}

type Schema struct {
	Kind    Kind
	Enum    []string
	Minimum *float64
	Maximum *float64
	Items   *Schema
	Fields  []Field
}

func Str() *Schema  { return &Schema{Kind: String} }
func Num() *Schema  { return &Schema{Kind: Number} }
func Bool() *Schema { return &Schema{Kind: Boolean} }

// Enum is a string schema restricted to values.
func Enum(values ...string) *Schema {
	return &Schema{Kind: String, Enum: append([]string(nil), values...)}
}

// ArrayOf is an array schema whose elements match item.
func ArrayOf(item *Schema) *Schema { return &Schema{Kind: Array, Items: item} }

// Strings is shorthand for ArrayOf(Str()).
func Strings() *Schema { return ArrayOf(Str()) }

// Obj is an object schema with the given fields in order.
func Obj(fields ...Field) *Schema { return &Schema{Kind: Object, Fields: fields} }

// F pairs a property name with its schema.
func F(name string, s *Schema) Field { return Field{Name: name, Schema: s} }

// Range returns a copy of s bounded to [min, max].
func (s *Schema) Range(min, max float64) *Schema {
	cp := *s
	cp.Minimum = &min
	cp.Maximum = &max
	return &cp
}

// Field returns the schema of the named property, or nil.
func (s *Schema) Field(name string) *Schema {
	if s == nil {
		return nil
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Schema
		}
	}
	return nil
}

// FieldNames lists property names in declaration order.
func (s *Schema) FieldNames() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

// MarshalJSON renders JSON-schema with properties in declaration order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(quote(string(s.Kind)))
	if len(s.Enum) > 0 {
		b, err := json.Marshal(s.Enum)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"enum":`)
		buf.Write(b)
	}
	if s.Minimum != nil {
		buf.WriteString(`,"minimum":`)
		buf.WriteString(strconv.FormatFloat(*s.Minimum, 'f', -1, 64))
	}
	if s.Maximum != nil {
		buf.WriteString(`,"maximum":`)
		buf.WriteString(strconv.FormatFloat(*s.Maximum, 'f', -1, 64))
	}
	if s.Items != nil {
		b, err := s.Items.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"items":`)
		buf.Write(b)
	}
	if len(s.Fields) > 0 {
		buf.WriteString(`,"properties":{`)
		for i, f := range s.Fields {
			if strings.TrimSpace(f.Name) == "" {
				return nil, fmt.Errorf("schema: property %d has no name", i)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := f.Schema.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(quote(f.Name))
			buf.WriteByte(':')
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func quote(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

// Describe renders the schema as 2-space indented JSON for prompt text.
func (s *Schema) Describe() string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
