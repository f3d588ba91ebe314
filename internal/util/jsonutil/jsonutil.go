// Package jsonutil holds the lenient JSON helpers used on model output.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// StripFences removes a surrounding markdown code fence (``` or ```json)
// and any whitespace around it. Other text is returned trimmed.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if lang == "" || isLangTag(lang) {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	return strings.TrimSpace(s)
}

func isLangTag(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// Decode parses model text into a generic JSON value after stripping fences.
// Trailing content after the first value is an error.
func Decode(content string) (any, error) {
	s := StripFences(content)
	if s == "" {
		return nil, errors.New("empty JSON payload")
	}
	var v any
	if err := UnmarshalFlex([]byte(s), &v); err != nil {
		return nil, err
	}
	// some models return the object as a JSON-encoded string
	if str, ok := v.(string); ok {
		inner := strings.TrimSpace(str)
		if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
			var unwrapped any
			if err := json.Unmarshal([]byte(inner), &unwrapped); err == nil {
				return unwrapped, nil
			}
		}
	}
	return v, nil
}

// UnmarshalFlex tries to unmarshal JSON bytes into v with best effort:
// 1) Direct unmarshal
// 2) Unwrap a JSON-encoded string holding the payload, then unmarshal
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return err
	}
	inner := []byte(strings.TrimSpace(s))
	if len(inner) == 0 || (inner[0] != '{' && inner[0] != '[') {
		return err
	}
	return json.Unmarshal(inner, v)
}

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "")
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
