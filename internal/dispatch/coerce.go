package dispatch

import (
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/schema"
)

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Values holds coerced parameter values by location and name
type Values struct {
	Path   map[string]any
	Query  map[string]any
	Header map[string]any
	Cookie map[string]any
}

func (v *Values) set(in, name string, value any) {
	var m *map[string]any
	switch in {
	case contract.InPath:
		m = &v.Path
	case contract.InQuery:
		m = &v.Query
	case contract.InHeader:
		m = &v.Header
	case contract.InCookie:
		m = &v.Cookie
	default:
		return
	}
	if *m == nil {
		*m = make(map[string]any)
	}
	(*m)[name] = value
}

// Get returns a coerced parameter value
func (v Values) Get(in, name string) (any, bool) {
	var m map[string]any
	switch in {
	case contract.InPath:
		m = v.Path
	case contract.InQuery:
		m = v.Query
	case contract.InHeader:
		m = v.Header
	case contract.InCookie:
		m = v.Cookie
	}
	value, ok := m[name]
	return value, ok
}

// Coerce converts the raw parameter strings of a request into typed values
// following each declared parameter schema, then validates them. Values
// that cannot be converted are kept as strings so the validator reports a
// type violation for them. Absent optional parameters take the schema
// default when one is declared.
func (d *Dispatcher) Coerce(op *contract.Operation, path Params, query url.Values, header http.Header) (Values, []schema.Violation) {
	var values Values
	var violations []schema.Violation

	for _, p := range op.Parameters {
		raw, present := lookup(p, path, query, header)
		if !present {
			if p.Required {
				violations = append(violations, schema.Violation{
					Field:   p.Name,
					In:      p.In,
					Kind:    schema.KindRequired,
					Message: "missing required parameter",
				})
				continue
			}
			if p.Schema != nil && p.Schema.Default != nil {
				values.set(p.In, p.Name, p.Schema.Default)
			}
			continue
		}

		value := coerce(p, raw)
		found := d.validator.Validate(p.Schema, value)
		if len(found) > 0 {
			violations = append(violations, schema.Locate(schema.Prefix(found, p.Name), p.In)...)
			continue
		}
		values.set(p.In, p.Name, value)
	}
	return values, violations
}

func lookup(p *contract.Parameter, path Params, query url.Values, header http.Header) ([]string, bool) {
	switch p.In {
	case contract.InPath:
		v, ok := path[p.Name]
		return []string{v}, ok
	case contract.InQuery:
		v, ok := query[p.Name]
		return v, ok && len(v) > 0
	case contract.InHeader:
		v := header.Values(p.Name)
		return v, len(v) > 0
	case contract.InCookie:
		c, err := (&http.Request{Header: header}).Cookie(p.Name)
		if err != nil {
			return nil, false
		}
		return []string{c.Value}, true
	}
	return nil, false
}

func coerce(p *contract.Parameter, raw []string) any {
	s := p.Schema
	if s == nil || len(raw) == 0 {
		return first(raw)
	}

	if s.Kind == schema.KindArray {
		parts := raw
		if !(p.In == contract.InQuery && p.Explode) {
			parts = nil
			for _, r := range raw {
				parts = append(parts, strings.Split(r, ",")...)
			}
		}
		items := make([]any, 0, len(parts))
		for _, part := range parts {
			items = append(items, scalar(s.Items, strings.TrimSpace(part)))
		}
		return items
	}
	return scalar(s, first(raw))
}

func scalar(s *schema.Schema, raw string) any {
	if s == nil {
		return raw
	}
	switch s.Kind {
	case schema.KindInteger, schema.KindNumber:
		if jsonNumber.MatchString(raw) {
			return json.Number(raw)
		}
	case schema.KindBoolean:
		switch raw {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return raw
}

func first(raw []string) string {
	if len(raw) == 0 {
		return ""
	}
	return raw[0]
}
