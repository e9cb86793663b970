package schema

import (
	"fmt"
	"strings"
)

// ViolationKind classifies a single mismatch between a value and its schema
type ViolationKind string

const (
	KindRequired    ViolationKind = "required"
	KindType        ViolationKind = "type"
	KindNull        ViolationKind = "null"
	KindEnum        ViolationKind = "enum"
	KindFormat      ViolationKind = "format"
	KindAdditional  ViolationKind = "additional"
	KindMinimum     ViolationKind = "minimum"
	KindMaximum     ViolationKind = "maximum"
	KindMultipleOf  ViolationKind = "multipleOf"
	KindMinLength   ViolationKind = "minLength"
	KindMaxLength   ViolationKind = "maxLength"
	KindPattern     ViolationKind = "pattern"
	KindMinItems    ViolationKind = "minItems"
	KindMaxItems    ViolationKind = "maxItems"
	KindUniqueItems ViolationKind = "uniqueItems"
	KindRange       ViolationKind = "range"
	KindOneOf       ViolationKind = "oneOf"
	KindAnyOf       ViolationKind = "anyOf"
	KindMalformed   ViolationKind = "malformed"
)

// Locations a violation can be reported for
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InBody   = "body"
)

// Violation is a single field-level validation failure. Field is a dotted
// path from the validated root ("objectField.id", "items[0].name"); the
// root itself is the empty string.
type Violation struct {
	Field   string        `json:"field" yaml:"field"`
	In      string        `json:"in,omitempty" yaml:"in,omitempty"`
	Kind    ViolationKind `json:"kind" yaml:"kind"`
	Message string        `json:"message" yaml:"message"`
}

func (v Violation) String() string {
	field := v.Field
	if field == "" {
		field = "(root)"
	}
	if v.In != "" {
		return fmt.Sprintf("%s %s: %s (%s)", v.In, field, v.Message, v.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", field, v.Message, v.Kind)
}

// Locate returns a copy of violations with In set to location
func Locate(violations []Violation, location string) []Violation {
	out := make([]Violation, len(violations))
	for i, v := range violations {
		v.In = location
		out[i] = v
	}
	return out
}

// Prefix returns a copy of violations with field paths nested under name
func Prefix(violations []Violation, name string) []Violation {
	out := make([]Violation, len(violations))
	for i, v := range violations {
		v.Field = joinField(name, v.Field)
		out[i] = v
	}
	return out
}

// ValidationError carries the violations that rejected a request
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func joinField(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	case strings.HasPrefix(child, "["):
		return parent + child
	default:
		return parent + "." + child
	}
}

func indexField(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
