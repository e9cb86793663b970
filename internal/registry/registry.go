// Package registry maps contract operations to the handlers implementing
// them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/exchange"
)

// OperationID identifies a contract operation. Constants of this type are
// generated from the contract with `oasgate gen`.
type OperationID string

// Handler implements one operation
type Handler interface {
	Handle(ctx context.Context, req *exchange.Request) (*exchange.Response, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, req *exchange.Request) (*exchange.Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req *exchange.Request) (*exchange.Response, error) {
	return f(ctx, req)
}

// ErrRegistrySealed is returned when registering after Seal
var ErrRegistrySealed = errors.New("registry is sealed")

// DuplicateHandlerError is returned when an operation already has a handler
type DuplicateHandlerError struct {
	OperationID OperationID
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("handler already registered for operation %q", e.OperationID)
}

// UnknownOperationError is returned when registering an id the contract
// does not declare
type UnknownOperationError struct {
	OperationID OperationID
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("operation %q is not declared in the contract", e.OperationID)
}

// UnhandledOperationError lists operations without a handler
type UnhandledOperationError struct {
	OperationIDs []OperationID
}

func (e *UnhandledOperationError) Error() string {
	ids := make([]string, len(e.OperationIDs))
	for i, id := range e.OperationIDs {
		ids[i] = string(id)
	}
	if len(ids) == 1 {
		return fmt.Sprintf("no handler registered for operation %q", ids[0])
	}
	return "no handler registered for operations: " + strings.Join(ids, ", ")
}

// Registry holds the handler of every operation. Handlers are registered
// at startup; after Seal the registry only serves lookups.
type Registry struct {
	contract *contract.Contract

	mu       sync.RWMutex
	handlers map[OperationID]Handler
	sealed   bool
}

// New creates an empty registry for the operations of c
func New(c *contract.Contract) *Registry {
	return &Registry{
		contract: c,
		handlers: make(map[OperationID]Handler),
	}
}

// Register binds h to an operation
func (r *Registry) Register(id OperationID, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler for operation %q", id)
	}
	if _, ok := r.contract.Operation(string(id)); !ok {
		return &UnknownOperationError{OperationID: id}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistrySealed
	}
	if _, exists := r.handlers[id]; exists {
		return &DuplicateHandlerError{OperationID: id}
	}
	r.handlers[id] = h
	return nil
}

// RegisterFunc binds a function to an operation
func (r *Registry) RegisterFunc(id OperationID, fn func(ctx context.Context, req *exchange.Request) (*exchange.Response, error)) error {
	return r.Register(id, HandlerFunc(fn))
}

// Has reports whether an operation has a handler
func (r *Registry) Has(id OperationID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[id]
	return ok
}

// Lookup returns the handler of an operation
func (r *Registry) Lookup(id OperationID) (Handler, error) {
	r.mu.RLock()
	h, ok := r.handlers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnhandledOperationError{OperationIDs: []OperationID{id}}
	}
	return h, nil
}

// Dispatch invokes the handler of an operation exactly once
func (r *Registry) Dispatch(ctx context.Context, id OperationID, req *exchange.Request) (*exchange.Response, error) {
	h, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return h.Handle(ctx, req)
}

// Unhandled lists operations without a handler in declaration order
func (r *Registry) Unhandled() []OperationID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []OperationID
	for _, op := range r.contract.Operations() {
		if _, ok := r.handlers[OperationID(op.ID)]; !ok {
			out = append(out, OperationID(op.ID))
		}
	}
	return out
}

// Verify fails when any operation lacks a handler
func (r *Registry) Verify() error {
	if missing := r.Unhandled(); len(missing) > 0 {
		return &UnhandledOperationError{OperationIDs: missing}
	}
	return nil
}

// Seal stops further registration
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Registered lists operations with a handler, sorted
func (r *Registry) Registered() []OperationID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]OperationID, 0, len(r.handlers))
	for id := range r.handlers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
