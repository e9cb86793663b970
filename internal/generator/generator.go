// Package generator produces sample values that satisfy contract schemas.
// It feeds mock handlers and the conformance probe.
package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/schema"
)

// maxDepth bounds recursion through self-referencing schemas
const maxDepth = 6

const letters = "abcdefghijklmnopqrstuvwxyz"

// ErrNilSchema is returned when there is nothing to generate from
var ErrNilSchema = errors.New("schema is nil")

// Generator generates values from schemas. It is safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	validator *schema.Validator
}

// NewGenerator creates a new generator instance
func NewGenerator() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a generator with a fixed seed
func NewSeeded(seed int64) *Generator {
	return &Generator{
		rng:       rand.New(rand.NewSource(seed)),
		validator: schema.NewValidator(),
	}
}

// GenerateValue generates a value valid against s. Examples and defaults
// are preferred when they validate.
func (g *Generator) GenerateValue(s *schema.Schema) (any, error) {
	if s == nil {
		return nil, ErrNilSchema
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value(s, 0), nil
}

func (g *Generator) value(s *schema.Schema, depth int) any {
	for _, candidate := range []any{s.Example, s.Default} {
		if candidate != nil && len(g.validator.Validate(s, candidate)) == 0 {
			return candidate
		}
	}
	for _, v := range s.Enum {
		if v != nil {
			return v
		}
	}

	switch {
	case len(s.AllOf) > 0:
		return g.allOf(s, depth)
	case len(s.OneOf) > 0:
		return g.value(s.OneOf[0], depth+1)
	case len(s.AnyOf) > 0:
		return g.value(s.AnyOf[0], depth+1)
	}

	switch s.Kind {
	case schema.KindString:
		return g.generateString(s)
	case schema.KindInteger:
		return g.generateInteger(s)
	case schema.KindNumber:
		return g.generateNumber(s)
	case schema.KindBoolean:
		return g.rng.Intn(2) == 0
	case schema.KindArray:
		return g.generateArray(s, depth)
	case schema.KindObject:
		return g.generateObject(s, depth)
	default:
		if len(s.Properties) > 0 {
			return g.generateObject(s, depth)
		}
		return "value"
	}
}

func (g *Generator) allOf(s *schema.Schema, depth int) any {
	merged := map[string]any{}
	if len(s.Properties) > 0 {
		merged = g.generateObject(s, depth)
	}
	for _, part := range s.AllOf {
		v := g.value(part, depth+1)
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		for k, val := range obj {
			merged[k] = val
		}
	}
	return merged
}

// generateString generates a string value based on schema constraints
func (g *Generator) generateString(s *schema.Schema) string {
	if v, ok := g.generateFromFormat(s.Format); ok {
		return v
	}

	minLength, maxLength := 1, 10
	if s.MinLength != nil {
		minLength = int(*s.MinLength)
	}
	if s.MaxLength != nil {
		maxLength = int(*s.MaxLength)
	}
	if maxLength < minLength {
		maxLength = minLength
	}
	if minLength == 0 && maxLength > 0 {
		minLength = 1
	}

	length := minLength
	if maxLength > minLength {
		length += g.rng.Intn(maxLength - minLength + 1)
	}

	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(letters[g.rng.Intn(len(letters))])
	}
	return b.String()
}

// generateFromFormat returns a canonical value for formats with a lexical
// form
func (g *Generator) generateFromFormat(format string) (string, bool) {
	switch format {
	case "date":
		return time.Now().UTC().Format("2006-01-02"), true
	case "date-time":
		return time.Now().UTC().Format(time.RFC3339), true
	case "email":
		return "test@example.com", true
	case "uri":
		return "https://example.com", true
	case "uuid":
		return uuid.NewString(), true
	case "hostname":
		return "example.com", true
	case "ipv4":
		return "192.0.2.1", true
	case "ipv6":
		return "2001:db8::1", true
	case "byte":
		return "ZXhhbXBsZQ==", true
	default:
		return "", false
	}
}

func integerBounds(s *schema.Schema) (int64, int64) {
	lo, hi := int64(0), int64(100)
	if s.Minimum != nil {
		lo = int64(math.Ceil(*s.Minimum))
		if s.ExclusiveMinimum && float64(lo) == *s.Minimum {
			lo++
		}
		if s.Maximum == nil {
			hi = lo + 100
		}
	}
	if s.Maximum != nil {
		hi = int64(math.Floor(*s.Maximum))
		if s.ExclusiveMaximum && float64(hi) == *s.Maximum {
			hi--
		}
		if s.Minimum == nil {
			lo = hi - 100
			if hi >= 0 && lo < 0 {
				lo = 0
			}
		}
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// generateInteger returns an int within the schema bounds, honouring
// multipleOf when it is integral
func (g *Generator) generateInteger(s *schema.Schema) int {
	lo, hi := integerBounds(s)
	value := lo + g.rng.Int63n(hi-lo+1)

	if s.MultipleOf != nil && *s.MultipleOf >= 1 && *s.MultipleOf == math.Trunc(*s.MultipleOf) {
		m := int64(*s.MultipleOf)
		value = value / m * m
		if value < lo {
			value += m
		}
	}
	return int(value)
}

// generateNumber generates a number value based on schema constraints
func (g *Generator) generateNumber(s *schema.Schema) float64 {
	lo, hi := 0.0, 100.0
	if s.Minimum != nil {
		lo = *s.Minimum
		if s.Maximum == nil {
			hi = lo + 100
		}
	}
	if s.Maximum != nil {
		hi = *s.Maximum
		if s.Minimum == nil {
			lo = hi - 100
		}
	}

	if s.MultipleOf != nil && *s.MultipleOf > 0 {
		m := *s.MultipleOf
		steps := math.Floor((hi - lo) / m)
		v := math.Ceil(lo/m)*m + math.Floor(g.rng.Float64()*steps)*m
		if s.ExclusiveMinimum && v == lo {
			v += m
		}
		return v
	}

	// stay strictly inside the range so exclusive bounds hold
	value := lo + (hi-lo)*(0.25+0.5*g.rng.Float64())
	return math.Round(value*100) / 100
}

// generateArray generates an array value
func (g *Generator) generateArray(s *schema.Schema, depth int) []any {
	minItems, maxItems := 1, 3
	if s.MinItems != nil {
		minItems = int(*s.MinItems)
	}
	if s.MaxItems != nil {
		maxItems = int(*s.MaxItems)
	}
	if maxItems < minItems {
		maxItems = minItems
	}
	if depth >= maxDepth {
		maxItems = minItems
	}

	count := minItems
	if maxItems > minItems {
		count += g.rng.Intn(maxItems - minItems + 1)
	}

	result := make([]any, 0, count)
	if s.Items == nil {
		for i := 0; i < count; i++ {
			result = append(result, "item"+strconv.Itoa(i))
		}
		return result
	}

	seen := make(map[string]bool)
	for attempts := 0; len(result) < count && attempts < count*5; attempts++ {
		v := g.value(s.Items, depth+1)
		if s.UniqueItems {
			key := fmt.Sprint(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		result = append(result, v)
	}
	return result
}

// generateObject fills every required property and, above the depth
// limit, each optional one with even odds
func (g *Generator) generateObject(s *schema.Schema, depth int) map[string]any {
	result := make(map[string]any)
	for _, name := range s.PropertyOrder {
		required := s.IsRequired(name)
		if !required && (depth >= maxDepth || g.rng.Intn(2) == 0) {
			continue
		}
		result[name] = g.value(s.Properties[name], depth+1)
	}
	return result
}

// GenerateParameter generates the wire form of a parameter value
func (g *Generator) GenerateParameter(p *contract.Parameter) (string, error) {
	if p == nil {
		return "", errors.New("parameter is nil")
	}
	if p.Schema == nil {
		return "test", nil
	}

	val, err := g.GenerateValue(p.Schema)
	if err != nil {
		return "", err
	}
	if items, ok := val.([]any); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = format(item)
		}
		return strings.Join(parts, ","), nil
	}
	return format(val), nil
}

func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// GenerateRequestBody generates a request body and its content type
func (g *Generator) GenerateRequestBody(rb *contract.RequestBody) ([]byte, string, error) {
	if rb == nil {
		return nil, "", errors.New("request body is nil")
	}
	if rb.Schema == nil {
		return nil, "", fmt.Errorf("no schema found for %s request body", rb.MediaType)
	}

	val, err := g.GenerateValue(rb.Schema)
	if err != nil {
		return nil, "", err
	}

	contentType := rb.MediaType
	if contentType == "" {
		contentType = "application/json"
	}
	if !contract.IsJSON(contentType) {
		return []byte(format(val)), contentType, nil
	}

	body, err := json.Marshal(val)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %w", err)
	}
	return body, contentType, nil
}
