// Package codegen writes Go source for the operations of a contract.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strings"
	"text/template"
	"unicode"

	"github.com/moamenhredeen/oasgate/internal/contract"
)

const registryImport = "github.com/moamenhredeen/oasgate/internal/registry"

var operationsTemplate = template.Must(template.New("operations").Parse(`// Code generated by oasgate gen. DO NOT EDIT.
// Source: {{ .Title }} {{ .Version }}

package {{ .Package }}

import "{{ .Import }}"
{{ range .Operations }}
// {{ .Const }} is {{ .Route }}
{{- if .Summary }}
// {{ .Summary }}
{{- end }}
const {{ .Const }} registry.OperationID = {{ printf "%q" .ID }}
{{ end }}
// Operations lists every operation id in declaration order
var Operations = []registry.OperationID{
{{- range .Operations }}
	{{ .Const }},
{{- end }}
}
`))

type operation struct {
	ID      string
	Const   string
	Route   string
	Summary string
}

// Options controls the generated file
type Options struct {
	Package string
}

// Operations renders a gofmt'ed Go file declaring one registry.OperationID
// constant per operation of c
func Operations(c *contract.Contract, opts Options) ([]byte, error) {
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("invalid package name %q", opts.Package)
	}

	data := struct {
		Title      string
		Version    string
		Package    string
		Import     string
		Operations []operation
	}{
		Title:   c.Title,
		Version: c.Version,
		Package: opts.Package,
		Import:  registryImport,
	}

	seen := make(map[string]string)
	for _, op := range c.Operations() {
		name := ConstName(op.ID)
		if other, dup := seen[name]; dup {
			return nil, fmt.Errorf("operations %s and %s both map to %s", other, op.ID, name)
		}
		seen[name] = op.ID

		data.Operations = append(data.Operations, operation{
			ID:      op.ID,
			Const:   name,
			Route:   op.String(),
			Summary: strings.Join(strings.Fields(op.Summary), " "),
		})
	}

	var buf bytes.Buffer
	if err := operationsTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render operations: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated source: %w", err)
	}
	return src, nil
}

// ConstName turns an operation id into an exported identifier:
// "get_owners_ownerId" becomes "OpGetOwnersOwnerId"
func ConstName(id string) string {
	var b strings.Builder
	b.WriteString("Op")
	upper := true
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
