package schema

import genai "google.golang.org/genai"

// GenAI converts s into the Gemini response schema.
func (s *Schema) GenAI() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:    genaiType(s.Kind),
		Minimum: s.Minimum,
		Maximum: s.Maximum,
	}
	if len(s.Enum) > 0 {
		out.Enum = append([]string(nil), s.Enum...)
	}
	if s.Items != nil {
		out.Items = s.Items.GenAI()
	}
	if len(s.Fields) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Fields))
		out.PropertyOrdering = make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			out.Properties[f.Name] = f.Schema.GenAI()
			out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
		}
	}
	return out
}

func genaiType(k Kind) genai.Type {
	switch k {
	case String:
		return genai.TypeString
	case Number:
		return genai.TypeNumber
	case Boolean:
		return genai.TypeBoolean
	case Array:
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}
