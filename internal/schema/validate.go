package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Option configures a Validator
type Option func(*Validator)

// DisallowUnknownFields reports properties that the schema does not
// declare, even when additionalProperties is left at its default.
func DisallowUnknownFields() Option {
	return func(v *Validator) {
		v.strict = true
	}
}

// Validator walks a schema tree against decoded values. Values are expected
// in the shape produced by DecodeJSON (json.Number for numbers), but plain Go
// numbers are accepted as well. A Validator is safe for concurrent use.
type Validator struct {
	strict  bool
	formats *formatChecker
}

// NewValidator creates a validator
func NewValidator(opts ...Option) *Validator {
	v := &Validator{formats: newFormatChecker()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = NewValidator()

// Validate checks value against s with default options
func Validate(s *Schema, value any) []Violation {
	return defaultValidator.Validate(s, value)
}

// ValidateJSON decodes raw and checks it against s with default options
func ValidateJSON(s *Schema, raw []byte) []Violation {
	return defaultValidator.ValidateJSON(s, raw)
}

// Validate returns every violation of s found in value. It never panics on
// unexpected input; an empty result means the value is valid.
func (v *Validator) Validate(s *Schema, value any) []Violation {
	if s == nil {
		return nil
	}
	w := &walker{v: v}
	w.walk(s, value, "", false)
	return w.out
}

// ValidateJSON decodes raw with number preservation and validates it
func (v *Validator) ValidateJSON(s *Schema, raw []byte) []Violation {
	value, err := DecodeJSON(raw)
	if err != nil {
		return []Violation{{Kind: KindMalformed, Message: err.Error()}}
	}
	return v.Validate(s, value)
}

// CheckFormat reports whether value satisfies a string format. Unknown
// formats always pass.
func (v *Validator) CheckFormat(format, value string) bool {
	ok, _ := v.formats.check(format, value)
	return ok
}

// DecodeJSON decodes a single JSON document keeping numbers as json.Number
func DecodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty JSON document")
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON: unexpected data after top-level value")
	}
	return value, nil
}

// Normalize converts an arbitrary Go value into the shape DecodeJSON
// produces, so it can be validated or compared with decoded values.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(raw)
}

type walker struct {
	v   *Validator
	out []Violation
}

func (w *walker) add(field string, kind ViolationKind, format string, args ...any) {
	w.out = append(w.out, Violation{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// walk validates value at field. partial is set for allOf members, which
// only see part of the object's declared properties.
func (w *walker) walk(s *Schema, value any, field string, partial bool) {
	if value == nil {
		if s.Nullable {
			return
		}
		if s.Kind != KindAny {
			w.add(field, KindNull, "must not be null")
			return
		}
	}

	if !w.checkKind(s, value, field, partial) {
		return
	}

	if len(s.Enum) > 0 && !enumContains(s.Enum, value) {
		w.add(field, KindEnum, "must be one of %s", describeEnum(s.Enum))
	}

	w.composition(s, value, field)
}

// checkKind applies the type check and the type-specific constraints. It
// returns false when the type itself is wrong.
func (w *walker) checkKind(s *Schema, value any, field string, partial bool) bool {
	switch s.Kind {
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			w.typeMismatch(s, value, field)
			return false
		}
		w.object(s, obj, field, partial)
	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			w.typeMismatch(s, value, field)
			return false
		}
		w.array(s, arr, field)
	case KindString:
		str, ok := value.(string)
		if !ok {
			w.typeMismatch(s, value, field)
			return false
		}
		w.string(s, str, field)
	case KindInteger:
		n, ok := toNumber(value)
		if !ok || !n.lexicalInt {
			w.typeMismatch(s, value, field)
			return false
		}
		w.integerRange(s, n, field)
		w.numeric(s, n, field)
	case KindNumber:
		n, ok := toNumber(value)
		if !ok {
			w.typeMismatch(s, value, field)
			return false
		}
		w.numberRange(s, n, field)
		w.numeric(s, n, field)
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			w.typeMismatch(s, value, field)
			return false
		}
	default:
		switch val := value.(type) {
		case map[string]any:
			w.object(s, val, field, partial)
		case []any:
			w.array(s, val, field)
		case string:
			w.string(s, val, field)
		default:
			if n, ok := toNumber(value); ok {
				w.numeric(s, n, field)
			}
		}
	}
	return true
}

func (w *walker) typeMismatch(s *Schema, value any, field string) {
	w.add(field, KindType, "expected %s, got %s", s.TypeName(), describeType(value))
}

func (w *walker) object(s *Schema, obj map[string]any, field string, partial bool) {
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			w.add(joinField(field, name), KindRequired, "is required")
		}
	}

	for _, name := range s.PropertyOrder {
		val, ok := obj[name]
		if !ok {
			continue
		}
		w.walk(s.Properties[name], val, joinField(field, name), false)
	}

	var extra []string
	for name := range obj {
		if _, declared := s.Properties[name]; !declared {
			extra = append(extra, name)
		}
	}
	if len(extra) == 0 {
		return
	}
	sort.Strings(extra)

	switch {
	case s.NoAdditionalProperties:
		for _, name := range extra {
			w.add(joinField(field, name), KindAdditional, "is not allowed")
		}
	case s.AdditionalProperties != nil:
		for _, name := range extra {
			w.walk(s.AdditionalProperties, obj[name], joinField(field, name), false)
		}
	case w.v.strict && !partial:
		// properties may come from allOf members only
		known := knownProperties(s)
		if len(known) == 0 {
			return
		}
		for _, name := range extra {
			if !known[name] {
				w.add(joinField(field, name), KindAdditional, "is not declared")
			}
		}
	}
}

func knownProperties(s *Schema) map[string]bool {
	known := make(map[string]bool)
	var collect func(*Schema, int)
	collect = func(node *Schema, depth int) {
		if node == nil || depth > 32 {
			return
		}
		for name := range node.Properties {
			known[name] = true
		}
		for _, part := range node.AllOf {
			collect(part, depth+1)
		}
	}
	collect(s, 0)
	return known
}

func (w *walker) array(s *Schema, arr []any, field string) {
	if s.MinItems != nil && int64(len(arr)) < *s.MinItems {
		w.add(field, KindMinItems, "must contain at least %d items", *s.MinItems)
	}
	if s.MaxItems != nil && int64(len(arr)) > *s.MaxItems {
		w.add(field, KindMaxItems, "must contain at most %d items", *s.MaxItems)
	}
	if s.Items != nil {
		for i, item := range arr {
			w.walk(s.Items, item, indexField(field, i), false)
		}
	}
	if s.UniqueItems {
		seen := make(map[string]int, len(arr))
		for i, item := range arr {
			key := canonical(item)
			if first, dup := seen[key]; dup {
				w.add(indexField(field, i), KindUniqueItems, "duplicates item %d", first)
				continue
			}
			seen[key] = i
		}
	}
}

func (w *walker) string(s *Schema, str string, field string) {
	length := int64(utf8.RuneCountInString(str))
	if s.MinLength != nil && length < *s.MinLength {
		w.add(field, KindMinLength, "must be at least %d characters", *s.MinLength)
	}
	if s.MaxLength != nil && length > *s.MaxLength {
		w.add(field, KindMaxLength, "must be at most %d characters", *s.MaxLength)
	}
	if s.Pattern != nil && !s.Pattern.MatchString(str) {
		w.add(field, KindPattern, "must match pattern %q", s.Pattern.String())
	}
	if s.Format != "" {
		if ok, known := w.v.formats.check(s.Format, str); known && !ok {
			w.add(field, KindFormat, "must be a valid %s", s.Format)
		}
	}
}

func (w *walker) integerRange(s *Schema, n number, field string) {
	switch s.Format {
	case "int32":
		if !n.intOK || n.i < math.MinInt32 || n.i > math.MaxInt32 {
			w.add(field, KindRange, "does not fit in int32")
		}
	case "int64":
		if !n.intOK {
			w.add(field, KindRange, "does not fit in int64")
		}
	}
}

func (w *walker) numberRange(s *Schema, n number, field string) {
	switch s.Format {
	case "float":
		if math.IsInf(n.f, 0) || math.Abs(n.f) > math.MaxFloat32 {
			w.add(field, KindRange, "does not fit in float")
		}
	case "double":
		if math.IsInf(n.f, 0) {
			w.add(field, KindRange, "does not fit in double")
		}
	}
}

func (w *walker) numeric(s *Schema, n number, field string) {
	if s.Minimum != nil {
		if s.ExclusiveMinimum && n.f <= *s.Minimum {
			w.add(field, KindMinimum, "must be greater than %v", *s.Minimum)
		} else if n.f < *s.Minimum {
			w.add(field, KindMinimum, "must be greater than or equal to %v", *s.Minimum)
		}
	}
	if s.Maximum != nil {
		if s.ExclusiveMaximum && n.f >= *s.Maximum {
			w.add(field, KindMaximum, "must be less than %v", *s.Maximum)
		} else if n.f > *s.Maximum {
			w.add(field, KindMaximum, "must be less than or equal to %v", *s.Maximum)
		}
	}
	if s.MultipleOf != nil && *s.MultipleOf > 0 {
		q := n.f / *s.MultipleOf
		if math.Abs(q-math.Round(q)) > 1e-9 {
			w.add(field, KindMultipleOf, "must be a multiple of %v", *s.MultipleOf)
		}
	}
}

func (w *walker) composition(s *Schema, value any, field string) {
	for _, part := range s.AllOf {
		w.walk(part, value, field, true)
	}

	if len(s.AnyOf) > 0 {
		matched := false
		for _, part := range s.AnyOf {
			if len(w.v.Validate(part, value)) == 0 {
				matched = true
				break
			}
		}
		if !matched {
			w.add(field, KindAnyOf, "must match at least one of %d schemas", len(s.AnyOf))
		}
	}

	if len(s.OneOf) > 0 {
		matches := 0
		for _, part := range s.OneOf {
			if len(w.v.Validate(part, value)) == 0 {
				matches++
			}
		}
		if matches != 1 {
			w.add(field, KindOneOf, "must match exactly one of %d schemas, matched %d", len(s.OneOf), matches)
		}
	}
}

func describeType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if n, ok := toNumber(value); ok {
		if n.lexicalInt {
			return "integer"
		}
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func describeEnum(enum []any) string {
	parts := make([]string, 0, len(enum))
	for _, e := range enum {
		parts = append(parts, canonical(e))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if equalValues(e, value) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	na, aNum := toNumber(a)
	nb, bNum := toNumber(b)
	if aNum || bNum {
		return aNum && bNum && na.equal(nb)
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return canonical(a) == canonical(b)
}

func canonical(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(raw)
}
