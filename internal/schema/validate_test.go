package schema

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrF(f float64) *float64 { return &f }
func ptrI(i int64) *int64     { return &i }

func petSchema() *Schema {
	pet := &Schema{Name: "Pet", Kind: KindObject, Required: []string{"id", "name"}}
	pet.AddProperty("id", &Schema{Kind: KindInteger, Format: "int64"})
	pet.AddProperty("name", &Schema{Kind: KindString, MinLength: ptrI(1)})
	pet.AddProperty("tag", &Schema{Kind: KindString, Nullable: true})
	return pet
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	v, err := DecodeJSON([]byte(raw))
	require.NoError(t, err)
	return v
}

func kinds(violations []Violation) []ViolationKind {
	out := make([]ViolationKind, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Kind)
	}
	return out
}

func TestValidateValidObject(t *testing.T) {
	v := Validate(petSchema(), decode(t, `{"id": 42, "name": "Rex", "tag": null}`))
	assert.Empty(t, v)
}

func TestValidateMissingRequiredReportsExactlyOne(t *testing.T) {
	v := Validate(petSchema(), decode(t, `{"id": 42}`))
	require.Len(t, v, 1)
	assert.Equal(t, "name", v[0].Field)
	assert.Equal(t, KindRequired, v[0].Kind)
}

func TestValidateIntegerLexical(t *testing.T) {
	s := &Schema{Kind: KindInteger}

	tests := []struct {
		raw   string
		valid bool
	}{
		{`1`, true},
		{`-17`, true},
		{`1.0`, false},
		{`1e3`, false},
		{`1.5`, false},
		{`"1"`, false},
		{`123456789012345678901234567890`, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := Validate(s, decode(t, tt.raw))
			if tt.valid {
				assert.Empty(t, v)
			} else {
				require.Len(t, v, 1)
				assert.Equal(t, KindType, v[0].Kind)
			}
		})
	}
}

func TestValidateIntegerFormatsRange(t *testing.T) {
	int32s := &Schema{Kind: KindInteger, Format: "int32"}
	int64s := &Schema{Kind: KindInteger, Format: "int64"}

	assert.Empty(t, Validate(int32s, decode(t, `2147483647`)))
	assert.Empty(t, Validate(int32s, decode(t, `-2147483648`)))
	assert.Equal(t, []ViolationKind{KindRange}, kinds(Validate(int32s, decode(t, `2147483648`))))

	assert.Empty(t, Validate(int64s, decode(t, `9223372036854775807`)))
	assert.Equal(t, []ViolationKind{KindRange}, kinds(Validate(int64s, decode(t, `9223372036854775808`))))
}

func TestValidateGoNumbers(t *testing.T) {
	s := &Schema{Kind: KindInteger, Minimum: ptrF(0)}
	assert.Empty(t, Validate(s, 5))
	assert.Empty(t, Validate(s, int64(5)))
	assert.Empty(t, Validate(s, float64(5)))
	assert.Equal(t, []ViolationKind{KindType}, kinds(Validate(s, 5.5)))
	assert.Equal(t, []ViolationKind{KindMinimum}, kinds(Validate(s, -1)))
}

func TestValidateNumber(t *testing.T) {
	s := &Schema{Kind: KindNumber, Format: "float"}
	assert.Empty(t, Validate(s, decode(t, `1.2`)))
	assert.Empty(t, Validate(s, decode(t, `3`)))
	assert.Equal(t, []ViolationKind{KindRange}, kinds(Validate(s, decode(t, `1e39`))))
	assert.Equal(t, []ViolationKind{KindType}, kinds(Validate(s, decode(t, `"1.2"`))))
}

func TestValidateBounds(t *testing.T) {
	s := &Schema{
		Kind:             KindNumber,
		Minimum:          ptrF(0),
		Maximum:          ptrF(10),
		ExclusiveMaximum: true,
		MultipleOf:       ptrF(0.5),
	}

	assert.Empty(t, Validate(s, decode(t, `0`)))
	assert.Empty(t, Validate(s, decode(t, `9.5`)))
	assert.Equal(t, []ViolationKind{KindMaximum}, kinds(Validate(s, decode(t, `10`))))
	assert.Equal(t, []ViolationKind{KindMinimum}, kinds(Validate(s, decode(t, `-0.5`))))
	assert.Equal(t, []ViolationKind{KindMultipleOf}, kinds(Validate(s, decode(t, `0.3`))))
}

func TestValidateEnumIsCaseSensitive(t *testing.T) {
	s := &Schema{Kind: KindString, Enum: []any{"available", "sold"}}

	assert.Empty(t, Validate(s, "sold"))
	assert.Equal(t, []ViolationKind{KindEnum}, kinds(Validate(s, "Sold")))
	assert.Equal(t, []ViolationKind{KindEnum}, kinds(Validate(s, "sold ")))
}

func TestValidateEnumNumbers(t *testing.T) {
	s := &Schema{Kind: KindAny, Enum: []any{json.Number("1"), "2"}}

	assert.Empty(t, Validate(s, decode(t, `1`)))
	assert.Empty(t, Validate(s, 1))
	assert.Empty(t, Validate(s, "2"))
	assert.Equal(t, []ViolationKind{KindEnum}, kinds(Validate(s, decode(t, `2`))))
	assert.Equal(t, []ViolationKind{KindEnum}, kinds(Validate(s, "1")))
}

func TestValidateNullable(t *testing.T) {
	nullable := &Schema{Kind: KindString, Nullable: true, Enum: []any{"a"}}
	strict := &Schema{Kind: KindString}

	assert.Empty(t, Validate(nullable, nil))
	assert.Equal(t, []ViolationKind{KindNull}, kinds(Validate(strict, nil)))
	assert.Empty(t, Validate(&Schema{}, nil))
}

func TestValidateAdditionalProperties(t *testing.T) {
	closed := &Schema{Kind: KindObject, NoAdditionalProperties: true}
	closed.AddProperty("a", &Schema{Kind: KindString})

	open := &Schema{Kind: KindObject}
	open.AddProperty("a", &Schema{Kind: KindString})

	typed := &Schema{Kind: KindObject, AdditionalProperties: &Schema{Kind: KindInteger}}

	value := decode(t, `{"a": "x", "b": 1}`)

	v := Validate(closed, value)
	require.Len(t, v, 1)
	assert.Equal(t, "b", v[0].Field)
	assert.Equal(t, KindAdditional, v[0].Kind)

	assert.Empty(t, Validate(open, value))
	assert.Empty(t, Validate(typed, decode(t, `{"x": 1, "y": 2}`)))
	assert.Equal(t, []ViolationKind{KindType}, kinds(Validate(typed, decode(t, `{"x": "one"}`))))

	strict := NewValidator(DisallowUnknownFields())
	v = strict.Validate(open, value)
	require.Len(t, v, 1)
	assert.Equal(t, KindAdditional, v[0].Kind)
}

func TestValidateStrictAllOfProperties(t *testing.T) {
	withID := &Schema{Kind: KindObject}
	withID.AddProperty("id", &Schema{Kind: KindInteger})
	withName := &Schema{Kind: KindObject}
	withName.AddProperty("name", &Schema{Kind: KindString})
	composed := &Schema{AllOf: []*Schema{withID, withName}}

	strict := NewValidator(DisallowUnknownFields())

	assert.Empty(t, strict.Validate(composed, decode(t, `{"id": 1, "name": "x"}`)))

	v := strict.Validate(composed, decode(t, `{"id": 1, "name": "x", "bogus": true}`))
	require.Len(t, v, 1)
	assert.Equal(t, "bogus", v[0].Field)
	assert.Equal(t, KindAdditional, v[0].Kind)

	typed := &Schema{Kind: KindObject, AllOf: []*Schema{withID, withName}}
	v = strict.Validate(typed, decode(t, `{"id": 1, "bogus": true}`))
	require.Len(t, v, 1)
	assert.Equal(t, "bogus", v[0].Field)

	assert.Empty(t, Validate(composed, decode(t, `{"id": 1, "bogus": true}`)))
}

func TestValidateMissingAndUnknownAreDistinct(t *testing.T) {
	s := &Schema{Kind: KindObject, Required: []string{"name"}, NoAdditionalProperties: true}
	s.AddProperty("name", &Schema{Kind: KindString})

	v := Validate(s, decode(t, `{"nam": "typo"}`))
	assert.ElementsMatch(t, []ViolationKind{KindRequired, KindAdditional}, kinds(v))
}

func TestValidateNestedFieldPaths(t *testing.T) {
	inner := &Schema{Kind: KindObject, Required: []string{"id"}}
	inner.AddProperty("id", &Schema{Kind: KindInteger})

	root := &Schema{Kind: KindObject}
	root.AddProperty("objectField", inner)
	root.AddProperty("items", &Schema{Kind: KindArray, Items: inner})

	v := Validate(root, decode(t, `{"objectField": {"id": "x"}, "items": [{"id": 1}, {}]}`))
	require.Len(t, v, 2)
	assert.Equal(t, "objectField.id", v[0].Field)
	assert.Equal(t, KindType, v[0].Kind)
	assert.Equal(t, "items[1].id", v[1].Field)
	assert.Equal(t, KindRequired, v[1].Kind)
}

func TestValidateArrayConstraints(t *testing.T) {
	s := &Schema{Kind: KindArray, Items: &Schema{Kind: KindInteger}, MinItems: ptrI(1), MaxItems: ptrI(3), UniqueItems: true}

	assert.Empty(t, Validate(s, decode(t, `[1, 2]`)))
	assert.Equal(t, []ViolationKind{KindMinItems}, kinds(Validate(s, decode(t, `[]`))))
	assert.Equal(t, []ViolationKind{KindMaxItems}, kinds(Validate(s, decode(t, `[1, 2, 3, 4]`))))
	assert.Equal(t, []ViolationKind{KindUniqueItems}, kinds(Validate(s, decode(t, `[1, 1]`))))

	v := Validate(s, decode(t, `[1, null]`))
	require.Len(t, v, 1)
	assert.Equal(t, "[1]", v[0].Field)
	assert.Equal(t, KindNull, v[0].Kind)
}

func TestValidateStringConstraints(t *testing.T) {
	s := &Schema{Kind: KindString, MinLength: ptrI(2), MaxLength: ptrI(4), Pattern: regexp.MustCompile(`^[a-z]+$`)}

	assert.Empty(t, Validate(s, "abc"))
	assert.Equal(t, []ViolationKind{KindMinLength}, kinds(Validate(s, "a")))
	assert.Equal(t, []ViolationKind{KindMaxLength}, kinds(Validate(s, "abcde")))
	assert.Equal(t, []ViolationKind{KindPattern}, kinds(Validate(s, "AB")))
	// lengths count runes
	assert.Empty(t, Validate(&Schema{Kind: KindString, MaxLength: ptrI(4)}, "にほんご"))
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		format string
		good   string
		bad    string
	}{
		{"date", "2023-09-01", "2023-13-01"},
		{"date-time", "2023-09-01T08:45:00+09:00", "2023-09-01 08:45"},
		{"email", "test@example.com", "not-an-email"},
		{"hostname", "hostname", "host name"},
		{"ipv4", "192.0.2.1", "256.1.1.1"},
		{"ipv6", "2001:db8::1", "192.0.2.1"},
		{"uri", "http://localhost/example", "::not a uri"},
		{"uuid", "12345678-468b-4ae0-a065-7d7ac70b37a8", "12345678"},
		{"byte", "U3dhZ2dlciByb2Nrcw==", "not base64!"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			s := &Schema{Kind: KindString, Format: tt.format}
			assert.Empty(t, Validate(s, tt.good))
			assert.Equal(t, []ViolationKind{KindFormat}, kinds(Validate(s, tt.bad)))
		})
	}

	// unchecked formats
	assert.Empty(t, Validate(&Schema{Kind: KindString, Format: "password"}, "anything"))
	assert.Empty(t, Validate(&Schema{Kind: KindString, Format: "binary"}, "anything"))
}

func TestValidateComposition(t *testing.T) {
	cat := &Schema{Kind: KindObject, Required: []string{"meow"}}
	cat.AddProperty("meow", &Schema{Kind: KindBoolean})
	dog := &Schema{Kind: KindObject, Required: []string{"bark"}}
	dog.AddProperty("bark", &Schema{Kind: KindBoolean})

	oneOf := &Schema{OneOf: []*Schema{cat, dog}}
	assert.Empty(t, Validate(oneOf, decode(t, `{"meow": true}`)))
	assert.Equal(t, []ViolationKind{KindOneOf}, kinds(Validate(oneOf, decode(t, `{"meow": true, "bark": true}`))))
	assert.Equal(t, []ViolationKind{KindOneOf}, kinds(Validate(oneOf, decode(t, `{}`))))

	anyOf := &Schema{AnyOf: []*Schema{cat, dog}}
	assert.Empty(t, Validate(anyOf, decode(t, `{"meow": true, "bark": true}`)))
	assert.Equal(t, []ViolationKind{KindAnyOf}, kinds(Validate(anyOf, decode(t, `{}`))))

	allOf := &Schema{AllOf: []*Schema{cat, dog}}
	assert.ElementsMatch(t, []ViolationKind{KindRequired}, kinds(Validate(allOf, decode(t, `{"meow": true}`))))

	nullableRef := &Schema{AllOf: []*Schema{cat}, Nullable: true}
	assert.Empty(t, Validate(nullableRef, nil))
}

func TestValidateRecursiveSchema(t *testing.T) {
	node := &Schema{Name: "Node", Kind: KindObject}
	node.AddProperty("value", &Schema{Kind: KindInteger})
	node.AddProperty("next", node)

	assert.Empty(t, Validate(node, decode(t, `{"value": 1, "next": {"value": 2, "next": {"value": 3}}}`)))

	v := Validate(node, decode(t, `{"value": 1, "next": {"value": "two"}}`))
	require.Len(t, v, 1)
	assert.Equal(t, "next.value", v[0].Field)
}

func TestValidateJSONMalformed(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"a":1} trailing`} {
		v := ValidateJSON(petSchema(), []byte(raw))
		require.Len(t, v, 1, raw)
		assert.Equal(t, KindMalformed, v[0].Kind)
	}
}

func TestValidateNeverPanics(t *testing.T) {
	s := petSchema()
	inputs := []any{nil, 1, "x", true, []any{1}, map[string]any{"id": []any{}}, struct{}{}, make(chan int)}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Validate(s, in) })
	}
}

func TestLocateAndPrefix(t *testing.T) {
	v := []Violation{{Field: "id", Kind: KindType}, {Field: "", Kind: KindNull}, {Field: "[0]", Kind: KindType}}
	out := Prefix(Locate(v, InBody), "pets")

	assert.Equal(t, "pets.id", out[0].Field)
	assert.Equal(t, "pets", out[1].Field)
	assert.Equal(t, "pets[0]", out[2].Field)
	for _, o := range out {
		assert.Equal(t, InBody, o.In)
	}
	assert.Equal(t, "id", v[0].Field)
}

func TestNormalize(t *testing.T) {
	v, err := Normalize(map[string]any{"id": 42, "tags": []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": json.Number("42"), "tags": []any{"a"}}, v)
}
