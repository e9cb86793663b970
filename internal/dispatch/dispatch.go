// Package dispatch resolves inbound requests to contract operations.
//
// The route table is built once from a loaded contract and never modified,
// so a Dispatcher can serve any number of goroutines without locking.
// Literal path segments take priority over parameter segments, compared
// from left to right; among equally specific templates the operation
// declared first in the contract wins.
package dispatch

import (
	"net/url"
	"sort"
	"strings"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/schema"
)

// Params holds percent-decoded path parameter values by name
type Params map[string]string

type segment struct {
	literal string
	param   string
}

func (s segment) isParam() bool { return s.param != "" }

type route struct {
	op       *contract.Operation
	segments []segment
}

// Dispatcher maps (method, path) pairs to operations
type Dispatcher struct {
	contract  *contract.Contract
	validator *schema.Validator
	bySize    map[int][]*route
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithValidator sets the validator used to check coerced parameters
func WithValidator(v *schema.Validator) Option {
	return func(d *Dispatcher) {
		d.validator = v
	}
}

// New builds the route table for every operation in c
func New(c *contract.Contract, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		contract:  c,
		validator: schema.NewValidator(),
		bySize:    make(map[int][]*route),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, op := range c.Operations() {
		r := &route{op: op}
		for _, seg := range strings.Split(strings.TrimPrefix(op.Path, "/"), "/") {
			if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
				r.segments = append(r.segments, segment{param: seg[1 : len(seg)-1]})
			} else {
				r.segments = append(r.segments, segment{literal: seg})
			}
		}
		d.bySize[len(r.segments)] = append(d.bySize[len(r.segments)], r)
	}
	return d
}

// Contract returns the contract the dispatcher was built from
func (d *Dispatcher) Contract() *contract.Contract {
	return d.contract
}

// Resolve finds the operation declared for method and path. The path may
// be percent-encoded; each segment is decoded before matching.
func (d *Dispatcher) Resolve(method, path string) (*contract.Operation, Params, error) {
	method = strings.ToUpper(method)
	if !strings.HasPrefix(path, "/") {
		return nil, nil, &NotFoundError{Method: method, Path: path}
	}

	raw := strings.Split(path[1:], "/")
	segs := make([]string, len(raw))
	for i, s := range raw {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return nil, nil, &NotFoundError{Method: method, Path: path}
		}
		segs[i] = decoded
	}

	var best *route
	var bestParams Params
	allowed := make(map[string]bool)

	for _, r := range d.bySize[len(segs)] {
		params, ok := r.match(segs)
		if !ok {
			continue
		}
		if r.op.Method != method {
			allowed[r.op.Method] = true
			continue
		}
		if best == nil || r.beats(best) {
			best, bestParams = r, params
		}
	}

	if best != nil {
		return best.op, bestParams, nil
	}
	if len(allowed) > 0 {
		methods := make([]string, 0, len(allowed))
		for m := range allowed {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		return nil, nil, &MethodNotAllowedError{Method: method, Path: path, Allowed: methods}
	}
	return nil, nil, &NotFoundError{Method: method, Path: path}
}

func (r *route) match(segs []string) (Params, bool) {
	var params Params
	for i, seg := range r.segments {
		if !seg.isParam() {
			if seg.literal != segs[i] {
				return nil, false
			}
			continue
		}
		if segs[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(Params)
		}
		params[seg.param] = segs[i]
	}
	return params, true
}

// beats reports whether r is more specific than other. Templates of the
// same shape and method are refused at load, so the declaration order
// fallback only orders routes that cannot both match.
func (r *route) beats(other *route) bool {
	for i := range r.segments {
		a, b := r.segments[i].isParam(), other.segments[i].isParam()
		if a != b {
			return !a
		}
	}
	return r.op.Index < other.op.Index
}
