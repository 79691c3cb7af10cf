// SPDX-License-Identifier: MIT

package export

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// documentSchema describes the shape every emitted sing-box document must
// satisfy: an outbounds array (possibly empty) of tagged/typed objects and a route
// block, with inbounds permitted but optional (spec §4.10, "validated client
// configuration document").
var documentSchema = &openapi3.Schema{
	Type:     &openapi3.Types{"object"},
	Required: []string{"outbounds", "route"},
	Properties: openapi3.Schemas{
		"outbounds": openapi3.NewSchemaRef("", &openapi3.Schema{
			Type: &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:     &openapi3.Types{"object"},
				Required: []string{"type", "tag"},
			}),
		}),
		"route": openapi3.NewSchemaRef("", &openapi3.Schema{
			Type: &openapi3.Types{"object"},
		}),
		"inbounds": openapi3.NewSchemaRef("", &openapi3.Schema{
			Type: &openapi3.Types{"array"},
		}),
	},
}

// ValidateDocument checks an exported document's shape against
// documentSchema, round-tripping through JSON first so numeric types match
// what the schema validator expects from decoded JSON.
func ValidateDocument(doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("export: encode document for validation: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("export: decode document for validation: %w", err)
	}

	if err := documentSchema.VisitJSON(decoded); err != nil {
		return fmt.Errorf("export: document failed schema validation: %w", err)
	}
	return nil
}
