package contract

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/moamenhredeen/oasgate/internal/schema"
)

// TimeoutExtension is the operation extension holding a handler timeout,
// either a Go duration ("1500ms") or a number of milliseconds.
const TimeoutExtension = "x-timeout"

var paramSegment = regexp.MustCompile(`^\{([^{}/]+)\}$`)

// LoadFile reads and loads a contract document from disk
func LoadFile(path string) (*Contract, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file: %w", err)
	}
	return Load(document)
}

// Load parses an OpenAPI 3 document (YAML or JSON) into a Contract
func Load(document []byte) (*Contract, error) {
	if err := precheck(document); err != nil {
		return nil, err
	}

	doc, err := libopenapi.NewDocument(document)
	if err != nil {
		return nil, &MalformedContractError{Reason: "failed to parse OpenAPI document", Err: err}
	}

	model, errs := doc.BuildV3Model()
	if model == nil {
		return nil, malformed("", "failed to build v3 model: %v", errs)
	}
	// circular references are reported but still produce a usable model
	if errs != nil && !strings.Contains(fmt.Sprint(errs), "circular reference") {
		return nil, malformed("", "failed to build v3 model: %v", errs)
	}

	c := &Contract{
		byID:    make(map[string]*Operation),
		schemas: make(map[string]*schema.Schema),
		raw:     append([]byte(nil), document...),
	}

	m := &model.Model
	if m.Info != nil {
		c.Title = m.Info.Title
		c.Version = m.Info.Version
	}
	for _, server := range m.Servers {
		if server != nil && server.URL != "" {
			c.Servers = append(c.Servers, server.URL)
		}
	}

	b := newBuilder()
	if err := b.components(m); err != nil {
		return nil, err
	}
	c.schemas = b.named
	c.schemaNames = b.order

	if err := c.addOperations(b, m); err != nil {
		return nil, err
	}
	return c, nil
}

type methodOperation struct {
	method string
	op     *v3.Operation
}

func pathOperations(item *v3.PathItem) []methodOperation {
	return []methodOperation{
		{"GET", item.Get},
		{"PUT", item.Put},
		{"POST", item.Post},
		{"DELETE", item.Delete},
		{"OPTIONS", item.Options},
		{"HEAD", item.Head},
		{"PATCH", item.Patch},
		{"TRACE", item.Trace},
	}
}

func (c *Contract) addOperations(b *builder, m *v3.Document) error {
	if m.Paths == nil || m.Paths.PathItems == nil {
		return nil
	}

	seen := make(map[string]string)
	for pair := m.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()
		if item == nil {
			continue
		}

		names, err := templateParams(path)
		if err != nil {
			return err
		}

		for _, mo := range pathOperations(item) {
			if mo.op == nil {
				continue
			}

			op, err := b.operation(mo.method, path, item, mo.op, names)
			if err != nil {
				return err
			}

			key := mo.method + " " + shapeOf(path)
			if prev, dup := seen[key]; dup {
				return malformed(mo.method+" "+path, "duplicates operation %s", prev)
			}
			seen[key] = op.String()

			if other, dup := c.byID[op.ID]; dup {
				return malformed(op.String(), "operationId %q already used by %s", op.ID, other)
			}

			op.Index = len(c.operations)
			c.operations = append(c.operations, op)
			c.byID[op.ID] = op
		}
	}
	return nil
}

// templateParams returns the parameter names of a path template. Only
// whole-segment parameters are supported.
func templateParams(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, malformed(path, "path must start with /")
	}
	var names []string
	for _, seg := range strings.Split(path[1:], "/") {
		if m := paramSegment.FindStringSubmatch(seg); m != nil {
			names = append(names, m[1])
			continue
		}
		if strings.ContainsAny(seg, "{}") {
			return nil, malformed(path, "path parameters must span a whole segment: %q", seg)
		}
	}
	return names, nil
}

// shapeOf erases parameter names so /pets/{id} and /pets/{petId} collide
func shapeOf(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if paramSegment.MatchString(seg) {
			segs[i] = "{}"
		}
	}
	return strings.Join(segs, "/")
}

func (b *builder) operation(method, path string, item *v3.PathItem, src *v3.Operation, names []string) (*Operation, error) {
	location := method + " " + path
	op := &Operation{
		ID:      src.OperationId,
		Method:  method,
		Path:    path,
		Summary: src.Summary,
		Tags:    append([]string{}, src.Tags...),
	}
	if src.Deprecated != nil {
		op.Deprecated = *src.Deprecated
	}
	if op.ID == "" {
		op.ID = synthesizeID(method, path)
	}

	params, err := b.parameters(location, item.Parameters, src.Parameters)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if _, ok := findParam(params, InPath, name); !ok {
			params = append(params, &Parameter{Name: name, In: InPath, Required: true, Schema: &schema.Schema{Kind: schema.KindString}})
		}
	}
	for _, p := range params {
		if p.In == InPath && !contains(names, p.Name) {
			return nil, malformed(location, "path parameter %q is not in the path template", p.Name)
		}
	}
	op.Parameters = params

	if src.RequestBody != nil {
		mediaType, s, err := b.content(location+" requestBody", src.RequestBody.Content)
		if err != nil {
			return nil, err
		}
		op.RequestBody = &RequestBody{MediaType: mediaType, Schema: s}
		if src.RequestBody.Required != nil {
			op.RequestBody.Required = *src.RequestBody.Required
		}
	}

	if src.Responses != nil {
		if src.Responses.Codes != nil {
			for pair := src.Responses.Codes.First(); pair != nil; pair = pair.Next() {
				r, err := b.response(location, pair.Key(), pair.Value())
				if err != nil {
					return nil, err
				}
				op.Responses = append(op.Responses, r)
			}
		}
		if src.Responses.Default != nil {
			r, err := b.response(location, "default", src.Responses.Default)
			if err != nil {
				return nil, err
			}
			op.Responses = append(op.Responses, r)
		}
	}

	timeout, err := operationTimeout(location, src)
	if err != nil {
		return nil, err
	}
	op.Timeout = timeout

	return op, nil
}

func (b *builder) parameters(location string, shared, own []*v3.Parameter) ([]*Parameter, error) {
	var out []*Parameter
	add := func(src *v3.Parameter) error {
		if src == nil {
			return nil
		}
		p := &Parameter{Name: src.Name, In: src.In}
		switch p.In {
		case InPath, InQuery, InHeader, InCookie:
		default:
			return malformed(location, "parameter %q has invalid location %q", p.Name, p.In)
		}
		if src.Required != nil {
			p.Required = *src.Required
		}
		if p.In == InPath {
			p.Required = true
		}
		// form style explodes by default
		p.Explode = p.In == InQuery || p.In == InCookie
		if src.Explode != nil {
			p.Explode = *src.Explode
		}
		s, err := b.convert(location+" parameter "+p.Name, src.Schema)
		if err != nil {
			return err
		}
		if s == nil {
			s = &schema.Schema{Kind: schema.KindString}
		}
		p.Schema = s

		if i, ok := findParam(out, p.In, p.Name); ok {
			out[i] = p
		} else {
			out = append(out, p)
		}
		return nil
	}

	for _, src := range shared {
		if err := add(src); err != nil {
			return nil, err
		}
	}
	for _, src := range own {
		if err := add(src); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *builder) response(location, code string, src *v3.Response) (*Response, error) {
	r := &Response{Code: code}
	if src == nil {
		return r, nil
	}
	if !validResponseCode(code) {
		return nil, malformed(location, "invalid response code %q", code)
	}
	r.Description = src.Description
	if src.Headers != nil {
		for pair := src.Headers.First(); pair != nil; pair = pair.Next() {
			r.Headers = append(r.Headers, pair.Key())
		}
	}
	mediaType, s, err := b.content(location+" response "+code, src.Content)
	if err != nil {
		return nil, err
	}
	r.MediaType = mediaType
	r.Schema = s
	return r, nil
}

func validResponseCode(code string) bool {
	if code == "default" {
		return true
	}
	if len(code) != 3 {
		return false
	}
	if strings.EqualFold(code[1:], "XX") {
		return code[0] >= '1' && code[0] <= '5'
	}
	n, err := strconv.Atoi(code)
	return err == nil && n >= 100 && n <= 599
}

func operationTimeout(location string, src *v3.Operation) (time.Duration, error) {
	if src.Extensions == nil {
		return 0, nil
	}
	for pair := src.Extensions.First(); pair != nil; pair = pair.Next() {
		if pair.Key() != TimeoutExtension || pair.Value() == nil {
			continue
		}
		return parseTimeout(location, pair.Value().Value)
	}
	return 0, nil
}

func parseTimeout(location, value string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, malformed(location, "invalid %s value %q", TimeoutExtension, value)
	}
	return d, nil
}

func synthesizeID(method, path string) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}")
		if seg == "" {
			continue
		}
		sb.WriteByte('_')
		for _, r := range seg {
			if r == '-' || r == '.' {
				r = '_'
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func findParam(params []*Parameter, in, name string) (int, bool) {
	for i, p := range params {
		if p.In == in && p.Name == name {
			return i, true
		}
	}
	return -1, false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
