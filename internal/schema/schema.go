// Package schema holds the runtime schema tree built from a contract and
// the validator that walks it.
package schema

import (
	"regexp"
)

// Kind is the primitive type of a schema node
type Kind int

const (
	KindAny Kind = iota
	KindObject
	KindArray
	KindString
	KindInteger
	KindNumber
	KindBoolean
)

var kindNames = map[Kind]string{
	KindAny:     "any",
	KindObject:  "object",
	KindArray:   "array",
	KindString:  "string",
	KindInteger: "integer",
	KindNumber:  "number",
	KindBoolean: "boolean",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps an OpenAPI type name to a Kind
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindAny, false
}

// Schema is one node of a recursive schema tree. Component schemas carry a
// Name and may be referenced from many places, including themselves.
type Schema struct {
	Name        string
	Description string

	Kind     Kind
	Format   string
	Nullable bool
	Enum     []any

	// object
	Properties             map[string]*Schema
	PropertyOrder          []string
	Required               []string
	AdditionalProperties   *Schema
	NoAdditionalProperties bool

	// array
	Items       *Schema
	MinItems    *int64
	MaxItems    *int64
	UniqueItems bool

	// numeric
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MultipleOf       *float64

	// string
	MinLength *int64
	MaxLength *int64
	Pattern   *regexp.Regexp

	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema

	Example any
	Default any
}

// Property returns the schema of a named property
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	p, ok := s.Properties[name]
	return p, ok
}

// IsRequired reports whether name is in the required set
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// AddProperty appends a property, keeping declaration order
func (s *Schema) AddProperty(name string, prop *Schema) {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	if _, exists := s.Properties[name]; !exists {
		s.PropertyOrder = append(s.PropertyOrder, name)
	}
	s.Properties[name] = prop
}

// TypeName is the name used in violation messages
func (s *Schema) TypeName() string {
	if s.Format != "" {
		return s.Kind.String() + "(" + s.Format + ")"
	}
	return s.Kind.String()
}
