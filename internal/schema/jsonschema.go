package schema

// JSONSchemaDialect is the $schema written by ToJSONSchema
const JSONSchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// ToJSONSchema exports s as a standalone JSON Schema document. Named
// schemas below the root are emitted once under $defs and referenced, so
// recursive component schemas export without looping.
func ToJSONSchema(s *Schema) map[string]any {
	e := &exporter{defs: make(map[string]map[string]any)}
	doc := e.node(s, true)
	doc["$schema"] = JSONSchemaDialect
	if s != nil && s.Name != "" {
		doc["title"] = s.Name
	}
	if len(e.defs) > 0 {
		defs := make(map[string]any, len(e.defs))
		for name, def := range e.defs {
			defs[name] = def
		}
		doc["$defs"] = defs
	}
	return doc
}

type exporter struct {
	defs map[string]map[string]any
	root *Schema
}

func (e *exporter) ref(s *Schema) map[string]any {
	if s == e.root {
		return map[string]any{"$ref": "#"}
	}
	if _, done := e.defs[s.Name]; !done {
		// reserve before descending so cycles terminate
		e.defs[s.Name] = map[string]any{}
		def := e.node(s, true)
		for k, v := range def {
			e.defs[s.Name][k] = v
		}
	}
	return map[string]any{"$ref": "#/$defs/" + s.Name}
}

func (e *exporter) child(s *Schema) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	if s.Name != "" {
		return e.ref(s)
	}
	return e.node(s, false)
}

func (e *exporter) node(s *Schema, inline bool) map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	if inline && e.root == nil {
		e.root = s
	}

	if s.Kind != KindAny {
		if s.Nullable {
			out["type"] = []any{s.Kind.String(), "null"}
		} else {
			out["type"] = s.Kind.String()
		}
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		enum := append([]any{}, s.Enum...)
		if s.Nullable && !enumContains(enum, nil) {
			enum = append(enum, nil)
		}
		out["enum"] = enum
	}

	if len(s.PropertyOrder) > 0 {
		props := make(map[string]any, len(s.PropertyOrder))
		for _, name := range s.PropertyOrder {
			props[name] = e.child(s.Properties[name])
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string{}, s.Required...)
	}
	switch {
	case s.NoAdditionalProperties:
		out["additionalProperties"] = false
	case s.AdditionalProperties != nil:
		out["additionalProperties"] = e.child(s.AdditionalProperties)
	}

	if s.Items != nil {
		out["items"] = e.child(s.Items)
	}
	setInt(out, "minItems", s.MinItems)
	setInt(out, "maxItems", s.MaxItems)
	if s.UniqueItems {
		out["uniqueItems"] = true
	}

	if s.Minimum != nil {
		if s.ExclusiveMinimum {
			out["exclusiveMinimum"] = *s.Minimum
		} else {
			out["minimum"] = *s.Minimum
		}
	}
	if s.Maximum != nil {
		if s.ExclusiveMaximum {
			out["exclusiveMaximum"] = *s.Maximum
		} else {
			out["maximum"] = *s.Maximum
		}
	}
	if s.MultipleOf != nil {
		out["multipleOf"] = *s.MultipleOf
	}

	setInt(out, "minLength", s.MinLength)
	setInt(out, "maxLength", s.MaxLength)
	if s.Pattern != nil {
		out["pattern"] = s.Pattern.String()
	}

	setList(out, "allOf", e.list(s.AllOf))
	setList(out, "anyOf", e.list(s.AnyOf))
	setList(out, "oneOf", e.list(s.OneOf))

	if s.Example != nil {
		out["examples"] = []any{s.Example}
	}
	if s.Default != nil {
		out["default"] = s.Default
	}
	return out
}

func (e *exporter) list(parts []*Schema) []any {
	if len(parts) == 0 {
		return nil
	}
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, e.child(p))
	}
	return out
}

func setInt(out map[string]any, key string, v *int64) {
	if v != nil {
		out[key] = *v
	}
}

func setList(out map[string]any, key string, v []any) {
	if len(v) > 0 {
		out[key] = v
	}
}
