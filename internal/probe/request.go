package probe

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/generator"
)

// UserAgent is sent with every generated request
const UserAgent = "oasgate-probe/1.0"

// RequestBuilder builds HTTP requests for contract operations from
// generated parameter values and bodies
type RequestBuilder struct {
	generator *generator.Generator
}

// NewRequestBuilder creates a new request builder
func NewRequestBuilder(gen *generator.Generator) *RequestBuilder {
	if gen == nil {
		gen = generator.NewGenerator()
	}
	return &RequestBuilder{generator: gen}
}

// BuildRequest builds a request for op against baseURL. Optional query,
// header and cookie parameters are included as well.
func (rb *RequestBuilder) BuildRequest(op *contract.Operation, baseURL string) (*http.Request, error) {
	if op == nil {
		return nil, fmt.Errorf("operation is nil")
	}

	path := op.Path
	query := url.Values{}
	header := http.Header{}
	var cookies []*http.Cookie

	for _, param := range op.Parameters {
		val, err := rb.generator.GenerateParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s parameter %s: %w", param.In, param.Name, err)
		}
		switch param.In {
		case contract.InPath:
			path = strings.ReplaceAll(path, "{"+param.Name+"}", url.PathEscape(val))
		case contract.InQuery:
			if param.Explode && param.Schema != nil && param.Schema.Items != nil {
				for _, item := range strings.Split(val, ",") {
					query.Add(param.Name, item)
				}
			} else {
				query.Set(param.Name, val)
			}
		case contract.InHeader:
			header.Set(param.Name, val)
		case contract.InCookie:
			cookies = append(cookies, &http.Cookie{Name: param.Name, Value: val})
		}
	}

	fullURL := strings.TrimSuffix(baseURL, "/") + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body []byte
	contentType := ""
	if op.RequestBody != nil {
		var err error
		body, contentType, err = rb.generator.GenerateRequestBody(op.RequestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to generate request body: %w", err)
		}
	}

	req, err := http.NewRequest(op.Method, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body == nil {
		req.Body = http.NoBody
		req.ContentLength = 0
	}
	for key, values := range header {
		req.Header[key] = values
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req, nil
}
