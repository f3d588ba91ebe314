package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Check reports where v departs from s. An empty report means v conforms.
// Missing properties are not reported since the schema declares none as required.
func (s *Schema) Check(v any) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	res, err := gojsonschema.Validate(gojsonschema.NewGoLoader(s), gojsonschema.NewGoLoader(v))
	if err != nil {
		return nil, fmt.Errorf("schema: check: %w", err)
	}
	if res.Valid() {
		return nil, nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return out, nil
}
