package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator generates JSON schemas from Go types.
// Uses [github.com/invopop/jsonschema].
type SchemaGenerator struct {
	reflector *jsonschema.Reflector
	value     any
	comments  [][2]string
}

// SchemaOpt configures a [SchemaGenerator].
type SchemaOpt func(g *SchemaGenerator)

// WithComments reads field descriptions from the Go source of the package
// at path, imported as base.
func WithComments(base, path string) SchemaOpt {
	return func(g *SchemaGenerator) {
		g.comments = append(g.comments, [2]string{base, path})
	}
}

// NewSchemaGenerator creates a [SchemaGenerator] for the type of v.
func NewSchemaGenerator(v any, opts ...SchemaOpt) *SchemaGenerator {
	g := &SchemaGenerator{
		value: v,
		reflector: &jsonschema.Reflector{
			ExpandedStruct:             true,
			RequiredFromJSONSchemaTags: true,
		},
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate returns the indented JSON schema.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	for _, c := range g.comments {
		err := g.reflector.AddGoComments(c[0], c[1])
		if err != nil {
			return nil, fmt.Errorf("add go comments from %s: %w", c[1], err)
		}
	}

	jss := g.reflector.Reflect(g.value)

	data, err := json.MarshalIndent(jss, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(data, '\n'), nil
}
