// Package apierr converts pipeline errors into the JSON error envelope
// returned to clients:
//
//	{"code":"invalid_argument","message":"...","status":400,"violations":[...]}
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/moamenhredeen/oasgate/internal/dispatch"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/schema"
	"github.com/moamenhredeen/oasgate/internal/serializer"
)

// Code is a machine readable error code
type Code string

const (
	CodeInvalidArgument      Code = "invalid_argument"
	CodeNotFound             Code = "not_found"
	CodeMethodNotAllowed     Code = "method_not_allowed"
	CodePayloadTooLarge      Code = "payload_too_large"
	CodeUnsupportedMediaType Code = "unsupported_media_type"
	CodeCanceled             Code = "canceled"
	CodeInternal             Code = "internal"
	CodeNotImplemented       Code = "not_implemented"
	CodeDeadlineExceeded     Code = "deadline_exceeded"
)

// StatusClientClosedRequest is the non-standard status for requests the
// client abandoned
const StatusClientClosedRequest = 499

// HTTPStatus maps a code to its HTTP status
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case CodeCanceled:
		return StatusClientClosedRequest
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is the envelope written for every rejected request
type Error struct {
	Code       Code               `json:"code"`
	Message    string             `json:"message"`
	Status     int                `json:"status"`
	Violations []schema.Violation `json:"violations,omitempty"`

	// Allow lists the methods declared for the path of a 405
	Allow []string `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an error with the status of its code
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: code.HTTPStatus()}
}

// Invalid creates a 400 carrying violations
func Invalid(violations []schema.Violation) *Error {
	e := New(CodeInvalidArgument, "request does not match the contract")
	e.Violations = violations
	return e
}

// Internal reports whether the error is a server side failure that
// operators should look at
func (e *Error) Internal() bool {
	return e.Status >= 500 && e.Status != http.StatusNotImplemented && e.Status != http.StatusGatewayTimeout
}

// FromError maps any pipeline error onto an envelope. Unknown errors
// become a 500 whose message does not leak the cause.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var notFound *dispatch.NotFoundError
	if errors.As(err, &notFound) {
		return New(CodeNotFound, notFound.Error())
	}

	var notAllowed *dispatch.MethodNotAllowedError
	if errors.As(err, &notAllowed) {
		e := New(CodeMethodNotAllowed, notAllowed.Error())
		e.Allow = notAllowed.Allowed
		return e
	}

	var invalid *schema.ValidationError
	if errors.As(err, &invalid) {
		return Invalid(invalid.Violations)
	}

	var unhandled *registry.UnhandledOperationError
	if errors.As(err, &unhandled) {
		return New(CodeNotImplemented, unhandled.Error())
	}

	var mismatch *serializer.SerializationMismatchError
	if errors.As(err, &mismatch) {
		return New(CodeInternal, "response does not match the contract")
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return New(CodePayloadTooLarge, "request body is too large")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(CodeDeadlineExceeded, "handler timed out")
	}
	if errors.Is(err, context.Canceled) {
		return New(CodeCanceled, "request canceled")
	}

	return New(CodeInternal, "internal server error")
}

// Write sends the envelope of err
func Write(w http.ResponseWriter, err error) *Error {
	e := FromError(err)
	if len(e.Allow) > 0 {
		w.Header().Set("Allow", strings.Join(e.Allow, ", "))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
	return e
}
