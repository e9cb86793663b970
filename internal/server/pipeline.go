package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/moamenhredeen/oasgate/internal/apierr"
	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/exchange"
	"github.com/moamenhredeen/oasgate/internal/logger"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/schema"
	"github.com/moamenhredeen/oasgate/internal/serializer"
)

// PanicError is returned for a handler that panicked
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

func (s *Server) serveOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := exchange.NewRequest(RequestID(ctx), r.Method, r.URL.Path, s.observer)
	req.Query = r.URL.Query()
	req.Header = r.Header

	op, params, err := s.dispatcher.Resolve(r.Method, r.URL.EscapedPath())
	if err != nil {
		s.reject(w, r, req, err)
		return
	}
	req.Operation = op
	req.PathParams = params
	s.advance(ctx, req, exchange.Resolved)

	if err := s.bind(w, r, req); err != nil {
		s.reject(w, r, req, err)
		return
	}
	s.advance(ctx, req, exchange.Validated)

	res, err := s.invoke(ctx, req)
	if err != nil {
		s.reject(w, r, req, err)
		return
	}
	s.advance(ctx, req, exchange.Handled)

	payload, err := s.serializer.Serialize(op, res)
	if err != nil {
		s.reject(w, r, req, err)
		return
	}
	s.advance(ctx, req, exchange.Serialized)

	write(w, payload)
	s.advance(ctx, req, exchange.Sent)
}

func (s *Server) advance(ctx context.Context, req *exchange.Request, to exchange.Phase) {
	if err := req.Advance(to); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("request phase not advanced")
	}
}

// bind coerces parameters and reads, decodes and validates the body
func (s *Server) bind(w http.ResponseWriter, r *http.Request, req *exchange.Request) error {
	op := req.Operation

	values, violations := s.dispatcher.Coerce(op, req.PathParams, req.Query, req.Header)
	req.Params = values

	if r.Body != nil {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return err
			}
			return apierr.New(apierr.CodeInvalidArgument, "failed to read request body")
		}
		req.Body = body
	}

	if rb := op.RequestBody; rb != nil {
		switch {
		case len(req.Body) == 0:
			if rb.Required {
				violations = append(violations, schema.Violation{
					In:      schema.InBody,
					Kind:    schema.KindRequired,
					Message: "request body is required",
				})
			}
		case contract.IsJSON(rb.MediaType):
			if ct := r.Header.Get("Content-Type"); ct != "" && !contract.IsJSON(ct) {
				return apierr.New(apierr.CodeUnsupportedMediaType, fmt.Sprintf("expected %s, got %s", rb.MediaType, ct))
			}
			decoded, err := schema.DecodeJSON(req.Body)
			if err != nil {
				violations = append(violations, schema.Violation{
					In:      schema.InBody,
					Kind:    schema.KindMalformed,
					Message: err.Error(),
				})
				break
			}
			found := s.validator.Validate(rb.Schema, decoded)
			violations = append(violations, schema.Locate(found, schema.InBody)...)
			req.Decoded = decoded
		}
	}

	if len(violations) > 0 {
		return &schema.ValidationError{Violations: violations}
	}
	return nil
}

type outcome struct {
	res *exchange.Response
	err error
}

// invoke runs the handler on its own goroutine so that a deadline or a
// client disconnect can reject the request without waiting for it
func (s *Server) invoke(ctx context.Context, req *exchange.Request) (*exchange.Response, error) {
	op := req.Operation
	timeout := s.cfg.Dispatch.HandlerTimeout(op.ID, op.Timeout)

	var (
		hctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		// bounded by the request only
		hctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: &PanicError{Value: p, Stack: debug.Stack()}}
			}
		}()
		res, err := s.registry.Dispatch(hctx, registry.OperationID(op.ID), req)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-hctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("operation %s exceeded %s: %w", op.ID, timeout, context.DeadlineExceeded)
	}
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, req *exchange.Request, err error) {
	if !req.Reject() {
		logger.Ctx(r.Context()).Warn().Str("phase", req.Phase().String()).Msg("request could not be rejected")
	}
	e := apierr.Write(w, err)

	l := logger.Ctx(r.Context())
	event := l.Debug()
	if e.Internal() {
		event = l.Error()
	}
	if req.Operation != nil {
		event = event.Str("operation", req.Operation.ID)
	}

	var mismatch *serializer.SerializationMismatchError
	var panicked *PanicError
	switch {
	case errors.As(err, &mismatch):
		event = event.Interface("violations", mismatch.Violations)
	case errors.As(err, &panicked):
		event = event.Bytes("stack", panicked.Stack)
	}
	event.Err(err).Int("status", e.Status).Msg("request rejected")
}

func write(w http.ResponseWriter, p *serializer.Payload) {
	for key, values := range p.Header {
		w.Header()[key] = values
	}
	if p.ContentType != "" {
		w.Header().Set("Content-Type", p.ContentType)
	}
	w.WriteHeader(p.Status)
	if len(p.Body) > 0 {
		_, _ = w.Write(p.Body)
	}
}
