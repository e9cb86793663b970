package contract

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// precheck parses the raw document and verifies every $ref before the
// document is handed to libopenapi, so that broken references surface as
// SchemaReferenceError instead of a generic model build failure.
func precheck(document []byte) error {
	var root any
	if err := yaml.Unmarshal(document, &root); err != nil {
		return &MalformedContractError{Reason: "document is not valid YAML or JSON", Err: err}
	}

	top, ok := root.(map[string]any)
	if !ok {
		return malformed("", "document root must be a mapping")
	}

	version := fmt.Sprint(top["openapi"])
	if !strings.HasPrefix(version, "3.") {
		return malformed("#/openapi", "unsupported OpenAPI version %q", version)
	}

	return walkRefs(root, root, "#", scopeDocument)
}

// refScope tells walkRefs what kind of object a node is, so that literal
// data and property names are not mistaken for references.
type refScope int

const (
	scopeDocument refScope = iota
	scopeSchema
	scopeSchemaMap // keys are names, values are schemas
	scopeExamples  // keys are names, values are Example objects
)

// childScope returns the scope of the value under key, or false when the
// value holds instance data that must not be searched for references.
func childScope(scope refScope, key string) (refScope, bool) {
	switch scope {
	case scopeSchema:
		switch key {
		case "example", "examples", "default", "enum", "const":
			return scope, false
		case "properties", "patternProperties", "$defs", "definitions", "dependentSchemas":
			return scopeSchemaMap, true
		}
		return scopeSchema, true
	default:
		switch key {
		case "example":
			return scope, false
		case "examples":
			return scopeExamples, true
		case "schema":
			return scopeSchema, true
		case "schemas":
			return scopeSchemaMap, true
		}
		return scopeDocument, true
	}
}

func walkRefs(node, root any, location string, scope refScope) error {
	if items, ok := node.([]any); ok {
		for i, item := range items {
			if err := walkRefs(item, root, location+"/"+strconv.Itoa(i), scope); err != nil {
				return err
			}
		}
		return nil
	}

	keys, values, ok := entries(node)
	if !ok {
		return nil
	}

	switch scope {
	case scopeSchemaMap:
		for _, k := range keys {
			if err := walkRefs(values[k], root, location+"/"+escapePointer(k), scopeSchema); err != nil {
				return err
			}
		}
		return nil
	case scopeExamples:
		// only the reference of each example is checked, never its value
		for _, k := range keys {
			_, example, ok := entries(values[k])
			if !ok {
				continue
			}
			if ref, ok := example["$ref"].(string); ok {
				if err := resolveRef(root, ref, location+"/"+escapePointer(k)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if ref, ok := values["$ref"].(string); ok {
		if err := resolveRef(root, ref, location); err != nil {
			return err
		}
	}
	for _, k := range keys {
		next, ok := childScope(scope, k)
		if !ok {
			continue
		}
		if err := walkRefs(values[k], root, location+"/"+escapePointer(k), next); err != nil {
			return err
		}
	}
	return nil
}

// entries returns the sorted keys and values of a decoded YAML mapping.
func entries(node any) ([]string, map[string]any, bool) {
	var values map[string]any
	switch n := node.(type) {
	case map[string]any:
		values = n
	case map[any]any:
		values = make(map[string]any, len(n))
		for k, v := range n {
			values[fmt.Sprint(k)] = v
		}
	default:
		return nil, nil, false
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, values, true
}

func resolveRef(root any, ref, location string) error {
	if !strings.HasPrefix(ref, "#") {
		return &SchemaReferenceError{Ref: ref, Location: location, Reason: "external references are not supported"}
	}
	pointer := ref[1:]
	if pointer == "" {
		return nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return &SchemaReferenceError{Ref: ref, Location: location, Reason: "not a JSON pointer"}
	}

	current := root
	for _, raw := range strings.Split(pointer[1:], "/") {
		token, err := unescapePointer(raw)
		if err != nil {
			return &SchemaReferenceError{Ref: ref, Location: location, Reason: err.Error()}
		}
		next, ok := step(current, token)
		if !ok {
			return &SchemaReferenceError{Ref: ref, Location: location, Reason: fmt.Sprintf("%q not found", token)}
		}
		current = next
	}
	return nil
}

func step(node any, token string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[token]
		return v, ok
	case map[any]any:
		for k, v := range n {
			if fmt.Sprint(k) == token {
				return v, true
			}
		}
	case []any:
		i, err := strconv.Atoi(token)
		if err != nil || i < 0 || i >= len(n) {
			return nil, false
		}
		return n[i], true
	}
	return nil, false
}

func escapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}

func unescapePointer(token string) (string, error) {
	unescaped, err := url.PathUnescape(token)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(strings.ReplaceAll(unescaped, "~1", "/"), "~0", "~"), nil
}
