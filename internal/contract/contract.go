// Package contract loads an OpenAPI 3 document into an immutable model of
// operations and schemas. A loaded Contract is never mutated and may be
// shared between goroutines without locking.
package contract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moamenhredeen/oasgate/internal/schema"
)

// Parameter locations
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

// Parameter is a declared operation parameter
type Parameter struct {
	Name     string
	In       string
	Required bool
	Explode  bool
	Schema   *schema.Schema
}

// RequestBody is the declared request body of an operation
type RequestBody struct {
	Required  bool
	MediaType string
	Schema    *schema.Schema
}

// Response is one declared response. Code is a status code ("200"), a
// range ("2XX") or "default".
type Response struct {
	Code        string
	Description string
	MediaType   string
	Schema      *schema.Schema
	Headers     []string
}

// HasContent reports whether the response declares a body
func (r *Response) HasContent() bool {
	return r.MediaType != ""
}

// Operation is one declared (method, path) endpoint
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Tags        []string
	Deprecated  bool
	Parameters  []*Parameter
	RequestBody *RequestBody
	Responses   []*Response

	// Timeout comes from the x-timeout extension; zero means unset
	Timeout time.Duration

	// Index is the declaration order within the contract
	Index int
}

func (o *Operation) String() string {
	return o.Method + " " + o.Path
}

// Parameter returns the declared parameter with the given location and name
func (o *Operation) Parameter(in, name string) (*Parameter, bool) {
	for _, p := range o.Parameters {
		if p.In == in && p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Response picks the declared response for status: exact code first, then
// the NXX range, then default.
func (o *Operation) Response(status int) (*Response, bool) {
	code := strconv.Itoa(status)
	for _, r := range o.Responses {
		if r.Code == code {
			return r, true
		}
	}
	statusRange := fmt.Sprintf("%dXX", status/100)
	for _, r := range o.Responses {
		if strings.EqualFold(r.Code, statusRange) {
			return r, true
		}
	}
	for _, r := range o.Responses {
		if r.Code == "default" {
			return r, true
		}
	}
	return nil, false
}

// SuccessResponse returns the lowest declared 2xx response and its status
func (o *Operation) SuccessResponse() (*Response, int, bool) {
	best, bestStatus := (*Response)(nil), 0
	for _, r := range o.Responses {
		status := 0
		if n, err := strconv.Atoi(r.Code); err == nil {
			status = n
		} else if strings.EqualFold(r.Code, "2XX") {
			status = 200
		}
		if status < 200 || status > 299 {
			continue
		}
		if best == nil || status < bestStatus {
			best, bestStatus = r, status
		}
	}
	return best, bestStatus, best != nil
}

// Contract is the normalized model of a loaded document
type Contract struct {
	Title   string
	Version string
	Servers []string

	operations  []*Operation
	byID        map[string]*Operation
	schemas     map[string]*schema.Schema
	schemaNames []string
	raw         []byte
}

// Operations returns every operation in declaration order
func (c *Contract) Operations() []*Operation {
	out := make([]*Operation, len(c.operations))
	copy(out, c.operations)
	return out
}

// Operation looks up an operation by identifier
func (c *Contract) Operation(id string) (*Operation, bool) {
	op, ok := c.byID[id]
	return op, ok
}

// Schema looks up a named component schema
func (c *Contract) Schema(name string) (*schema.Schema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

// SchemaNames lists component schemas in declaration order
func (c *Contract) SchemaNames() []string {
	out := make([]string, len(c.schemaNames))
	copy(out, c.schemaNames)
	return out
}

// Raw returns the document the contract was loaded from
func (c *Contract) Raw() []byte {
	out := make([]byte, len(c.raw))
	copy(out, c.raw)
	return out
}

// ServerURLs returns the declared server URLs, defaulting to localhost
func (c *Contract) ServerURLs() []string {
	if len(c.Servers) == 0 {
		return []string{"http://localhost"}
	}
	out := make([]string, len(c.Servers))
	copy(out, c.Servers)
	return out
}
