// Package exchange holds the per-request data model shared by the
// dispatcher, the handler registry and the serializer, together with the
// request state machine.
package exchange

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/dispatch"
)

// Observer is notified after every successful phase transition
type Observer func(r *Request, from, to Phase)

// Request is a single inbound call. It is created on arrival and owned by
// the goroutine serving the call; only the phase is guarded, since a timed
// out handler may still hold the request while the pipeline rejects it.
type Request struct {
	ID     string
	Method string
	Path   string

	Operation  *contract.Operation
	PathParams dispatch.Params
	Query      url.Values
	Header     http.Header

	// Body is the raw request body; Decoded is the same body after JSON
	// decoding and validation
	Body    []byte
	Decoded any

	// Params holds parameter values after coercion
	Params dispatch.Values

	mu       sync.Mutex
	phase    Phase
	observer Observer
}

// NewRequest creates a request in the Received phase
func NewRequest(id, method, path string, observer Observer) *Request {
	return &Request{
		ID:       id,
		Method:   method,
		Path:     path,
		phase:    Received,
		observer: observer,
	}
}

// Phase returns the current phase
func (r *Request) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Advance moves the request to phase to, refusing illegal transitions
func (r *Request) Advance(to Phase) error {
	r.mu.Lock()
	from := r.phase
	if !CanTransition(from, to) {
		r.mu.Unlock()
		return &TransitionError{From: from, To: to}
	}
	r.phase = to
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(r, from, to)
	}
	return nil
}

// Reject moves the request to Rejected. It reports false when the request
// already reached a phase that cannot be rejected.
func (r *Request) Reject() bool {
	return r.Advance(Rejected) == nil
}

// PathParam returns a raw path parameter
func (r *Request) PathParam(name string) string {
	return r.PathParams[name]
}

// Param returns a coerced parameter value
func (r *Request) Param(in, name string) (any, bool) {
	return r.Params.Get(in, name)
}

// Response is what a handler produces. Body is encoded as JSON unless the
// declared media type is not JSON, in which case []byte and string bodies
// are written as is.
type Response struct {
	Status int
	Body   any
	Header http.Header
}

// NewResponse creates a response with a body
func NewResponse(status int, body any) *Response {
	return &Response{Status: status, Body: body}
}

// NoContent creates a response without a body
func NoContent(status int) *Response {
	return &Response{Status: status}
}

// SetHeader sets a response header
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}
