package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	cherrors "indexchan/internal/core/errors"
)

// descriptor pairs a method name with the JSON Schema its params must
// satisfy, the same input_schema shape an OpenAPI operation would carry,
// so a driving process can introspect the RPC surface without a
// hand-maintained copy of this file.
type descriptor struct {
	Method string         `json:"method"`
	Schema map[string]any `json:"schema"`
}

var paramSchemas = map[string]map[string]any{
	"scan":             objectSchema(map[string]any{"dir": stringProp()}, nil),
	"search":           objectSchema(map[string]any{"dir": stringProp(), "query": stringProp(), "use_graph": boolProp()}, []string{"query"}),
	"stats":            objectSchema(map[string]any{"dir": stringProp()}, nil),
	"gather_context":   objectSchema(map[string]any{"dir": stringProp(), "anchor": stringProp(), "forward_depth": intProp(), "backward_depth": intProp(), "token_budget": intProp()}, []string{"anchor"}),
	"get_dependencies": objectSchema(map[string]any{"dir": stringProp(), "entity_id": stringProp()}, []string{"entity_id"}),
	"get_dependents":   objectSchema(map[string]any{"dir": stringProp(), "entity_id": stringProp()}, []string{"entity_id"}),
	"validate_changes": objectSchema(map[string]any{"dir": stringProp(), "auto": boolProp(), "safe_only": boolProp()}, nil),
	"preview_changes":  objectSchema(map[string]any{"dir": stringProp(), "auto": boolProp(), "safe_only": boolProp()}, nil),
	"apply_changes":    objectSchema(map[string]any{"dir": stringProp(), "auto": boolProp(), "safe_only": boolProp()}, nil),
	"describe":         objectSchema(map[string]any{}, nil),
}

func stringProp() map[string]any { return map[string]any{"type": "string"} }
func boolProp() map[string]any   { return map[string]any{"type": "boolean"} }
func intProp() map[string]any    { return map[string]any{"type": "integer"} }

func objectSchema(props map[string]any, required []string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Descriptors returns every method's name and JSON Schema, sorted for
// deterministic output.
func Descriptors() []descriptor {
	out := make([]descriptor, 0, len(paramSchemas))
	for method, schema := range paramSchemas {
		out = append(out, descriptor{Method: method, Schema: schema})
	}
	return out
}

// validateDescriptors round-trips every embedded schema through
// kin-openapi's Schema type and validates it, catching a malformed schema
// definition at server start rather than at first mismatched request.
func validateDescriptors() error {
	for method, schema := range paramSchemas {
		data, err := json.Marshal(schema)
		if err != nil {
			return cherrors.Wrap(err, cherrors.CodeInternal, fmt.Sprintf("marshal schema for %q", method))
		}
		var parsed openapi3.Schema
		if err := json.Unmarshal(data, &parsed); err != nil {
			return cherrors.Wrap(err, cherrors.CodeInternal, fmt.Sprintf("decode schema for %q", method))
		}
		if err := parsed.Validate(context.Background()); err != nil {
			return cherrors.Wrap(err, cherrors.CodeInternal, fmt.Sprintf("invalid schema for %q", method))
		}
	}
	return nil
}
