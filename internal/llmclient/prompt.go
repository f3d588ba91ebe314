package llmclient

import (
	"strings"

	"clonescout/internal/schema"
)

const (
	concisenessRule = "IMPORTANT: Keep all text responses concise (max 2-3 sentences per field)."
	jsonOnlyRule    = "Respond with valid JSON only."
	fieldLengthRule = "Be concise. Each text field should be 2-3 sentences maximum."
)

// StructuredSystemPrompt appends the conciseness rule to system. When
// jsonOnly is set the JSON-only instruction follows it.
func StructuredSystemPrompt(system string, jsonOnly bool) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n")
	b.WriteString(concisenessRule)
	if jsonOnly {
		b.WriteString(" ")
		b.WriteString(jsonOnlyRule)
	}
	return b.String()
}

// StructuredUserPrompt inlines the schema hint and the closing reminder.
// The closing label differs per vendor ("Remember:" or "IMPORTANT:").
func StructuredUserPrompt(prompt string, s *schema.Schema, closing string) string {
	var b strings.Builder
	b.WriteString(prompt)
	if s != nil {
		b.WriteString("\n\nRespond with a valid JSON object matching this schema:\n")
		b.WriteString(s.Describe())
	} else {
		b.WriteString("\n\nRespond with a valid JSON object.")
	}
	b.WriteString("\n\n")
	b.WriteString(closing)
	b.WriteString(" ")
	b.WriteString(fieldLengthRule)
	return b.String()
}
