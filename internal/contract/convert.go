package contract

import (
	"regexp"
	"strings"

	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"

	"github.com/moamenhredeen/oasgate/internal/schema"
)

const componentPrefix = "#/components/schemas/"

// builder converts libopenapi schemas into schema trees. Component schemas
// are allocated up front so references, including cyclic ones, point at a
// single shared node.
type builder struct {
	named map[string]*schema.Schema
	order []string
	byRef map[string]*schema.Schema
}

func newBuilder() *builder {
	return &builder{
		named: make(map[string]*schema.Schema),
		byRef: make(map[string]*schema.Schema),
	}
}

func (b *builder) components(m *v3.Document) error {
	if m.Components == nil || m.Components.Schemas == nil {
		return nil
	}

	proxies := make(map[string]*base.SchemaProxy)
	for pair := m.Components.Schemas.First(); pair != nil; pair = pair.Next() {
		name := pair.Key()
		b.named[name] = &schema.Schema{Name: name}
		b.order = append(b.order, name)
		proxies[name] = pair.Value()
	}

	for _, name := range b.order {
		proxy := proxies[name]
		if proxy == nil {
			continue
		}
		src := proxy.Schema()
		if src == nil {
			return &MalformedContractError{Location: componentPrefix + name, Reason: "schema cannot be built", Err: proxy.GetBuildError()}
		}
		if err := b.fill(componentPrefix+name, b.named[name], src); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) convert(location string, proxy *base.SchemaProxy) (*schema.Schema, error) {
	if proxy == nil {
		return nil, nil
	}

	if proxy.IsReference() {
		ref := proxy.GetReference()
		if name, ok := strings.CutPrefix(ref, componentPrefix); ok {
			if unescaped, err := unescapePointer(name); err == nil {
				if named, ok := b.named[unescaped]; ok {
					return named, nil
				}
			}
		}
		if cached, ok := b.byRef[ref]; ok {
			return cached, nil
		}
		src := proxy.Schema()
		if src == nil {
			reason := "schema cannot be built"
			if err := proxy.GetBuildError(); err != nil {
				reason = err.Error()
			}
			return nil, &SchemaReferenceError{Ref: ref, Location: location, Reason: reason}
		}
		target := &schema.Schema{}
		b.byRef[ref] = target
		return target, b.fill(ref, target, src)
	}

	src := proxy.Schema()
	if src == nil {
		return nil, &MalformedContractError{Location: location, Reason: "schema cannot be built", Err: proxy.GetBuildError()}
	}
	out := &schema.Schema{}
	return out, b.fill(location, out, src)
}

func (b *builder) fill(location string, out *schema.Schema, src *base.Schema) error {
	out.Description = src.Description
	out.Format = src.Format

	var types []string
	for _, t := range src.Type {
		if t == "null" {
			out.Nullable = true
			continue
		}
		types = append(types, t)
	}
	if src.Nullable != nil && *src.Nullable {
		out.Nullable = true
	}
	if len(types) == 1 {
		kind, ok := schema.ParseKind(types[0])
		if !ok {
			return malformed(location, "unknown schema type %q", types[0])
		}
		out.Kind = kind
	}

	for _, node := range src.Enum {
		if node == nil {
			continue
		}
		v, err := decodeNode(node)
		if err != nil {
			return &MalformedContractError{Location: location, Reason: "invalid enum value", Err: err}
		}
		out.Enum = append(out.Enum, v)
	}

	if src.Properties != nil {
		for pair := src.Properties.First(); pair != nil; pair = pair.Next() {
			prop, err := b.convert(location+"/properties/"+pair.Key(), pair.Value())
			if err != nil {
				return err
			}
			if prop == nil {
				prop = &schema.Schema{}
			}
			out.AddProperty(pair.Key(), prop)
		}
	}
	out.Required = append([]string{}, src.Required...)

	if ap := src.AdditionalProperties; ap != nil {
		switch {
		case ap.IsA():
			s, err := b.convert(location+"/additionalProperties", ap.A)
			if err != nil {
				return err
			}
			out.AdditionalProperties = s
		case ap.IsB():
			out.NoAdditionalProperties = !ap.B
		}
	}

	if src.Items != nil && src.Items.IsA() {
		items, err := b.convert(location+"/items", src.Items.A)
		if err != nil {
			return err
		}
		out.Items = items
	}
	out.MinItems = src.MinItems
	out.MaxItems = src.MaxItems
	if src.UniqueItems != nil {
		out.UniqueItems = *src.UniqueItems
	}

	out.Minimum = src.Minimum
	out.Maximum = src.Maximum
	if em := src.ExclusiveMinimum; em != nil {
		if em.IsA() {
			out.ExclusiveMinimum = em.A
		} else if em.IsB() {
			v := em.B
			out.Minimum = &v
			out.ExclusiveMinimum = true
		}
	}
	if em := src.ExclusiveMaximum; em != nil {
		if em.IsA() {
			out.ExclusiveMaximum = em.A
		} else if em.IsB() {
			v := em.B
			out.Maximum = &v
			out.ExclusiveMaximum = true
		}
	}
	out.MultipleOf = src.MultipleOf

	out.MinLength = src.MinLength
	out.MaxLength = src.MaxLength
	if src.Pattern != "" {
		re, err := regexp.Compile(src.Pattern)
		if err != nil {
			return &MalformedContractError{Location: location, Reason: "unsupported pattern", Err: err}
		}
		out.Pattern = re
	}

	var err error
	if out.AllOf, err = b.convertAll(location+"/allOf", src.AllOf); err != nil {
		return err
	}
	if out.AnyOf, err = b.convertAll(location+"/anyOf", src.AnyOf); err != nil {
		return err
	}
	if out.OneOf, err = b.convertAll(location+"/oneOf", src.OneOf); err != nil {
		return err
	}

	if src.Example != nil {
		if out.Example, err = decodeNode(src.Example); err != nil {
			return &MalformedContractError{Location: location, Reason: "invalid example", Err: err}
		}
	}
	if src.Default != nil {
		if out.Default, err = decodeNode(src.Default); err != nil {
			return &MalformedContractError{Location: location, Reason: "invalid default", Err: err}
		}
	}

	if out.Kind == schema.KindAny && len(types) == 0 {
		switch {
		case len(out.Properties) > 0 || out.AdditionalProperties != nil || len(out.Required) > 0:
			out.Kind = schema.KindObject
		case out.Items != nil:
			out.Kind = schema.KindArray
		}
	}
	return nil
}

func (b *builder) convertAll(location string, proxies []*base.SchemaProxy) ([]*schema.Schema, error) {
	if len(proxies) == 0 {
		return nil, nil
	}
	out := make([]*schema.Schema, 0, len(proxies))
	for _, p := range proxies {
		s, err := b.convert(location, p)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// content picks the JSON media type if one is declared, otherwise the first
func (b *builder) content(location string, content *orderedmap.Map[string, *v3.MediaType]) (string, *schema.Schema, error) {
	if content == nil || content.Len() == 0 {
		return "", nil, nil
	}

	var mediaType string
	var media *v3.MediaType
	for pair := content.First(); pair != nil; pair = pair.Next() {
		if IsJSON(pair.Key()) {
			mediaType, media = pair.Key(), pair.Value()
			break
		}
	}
	if media == nil {
		first := content.First()
		mediaType, media = first.Key(), first.Value()
	}

	if media == nil || media.Schema == nil {
		return mediaType, nil, nil
	}
	s, err := b.convert(location+" "+mediaType, media.Schema)
	return mediaType, s, err
}

type nodeDecoder interface {
	Decode(v any) error
}

func decodeNode(node nodeDecoder) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return schema.Normalize(v)
}

// IsJSON reports whether a media type carries JSON
func IsJSON(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
