// Package serializer turns handler responses into wire bytes that conform
// to the response declared in the contract.
package serializer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/exchange"
	"github.com/moamenhredeen/oasgate/internal/schema"
)

// Payload is a serialized response ready to be written
type Payload struct {
	Status      int
	ContentType string
	Header      http.Header
	Body        []byte
}

// SerializationMismatchError is returned when a response does not match
// what the contract declares for its status code
type SerializationMismatchError struct {
	OperationID string
	Status      int
	Reason      string
	Violations  []schema.Violation
}

func (e *SerializationMismatchError) Error() string {
	msg := fmt.Sprintf("response %d of operation %s does not match the contract: %s", e.Status, e.OperationID, e.Reason)
	if len(e.Violations) > 0 {
		parts := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			parts[i] = v.String()
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

// Serializer encodes responses and checks them against the contract
type Serializer struct {
	validator *schema.Validator
}

// New creates a serializer that validates with v; nil means defaults
func New(v *schema.Validator) *Serializer {
	if v == nil {
		v = schema.NewValidator()
	}
	return &Serializer{validator: v}
}

// Serialize encodes res for op. The encoded bytes are decoded again and
// validated, so what is checked is exactly what goes on the wire.
func (s *Serializer) Serialize(op *contract.Operation, res *exchange.Response) (*Payload, error) {
	if res == nil {
		return nil, s.mismatch(op, 0, "handler returned no response")
	}
	if res.Status < 100 || res.Status > 599 {
		return nil, s.mismatch(op, res.Status, "invalid status code")
	}

	declared, ok := op.Response(res.Status)
	if !ok {
		return nil, s.mismatch(op, res.Status, "status code is not declared")
	}

	payload := &Payload{Status: res.Status, Header: res.Header.Clone()}

	if !declared.HasContent() {
		if res.Body != nil {
			return nil, s.mismatch(op, res.Status, "response declares no content but a body was returned")
		}
		return payload, nil
	}
	if res.Body == nil {
		return nil, s.mismatch(op, res.Status, "response body is missing")
	}

	payload.ContentType = declared.MediaType
	if !contract.IsJSON(declared.MediaType) {
		switch body := res.Body.(type) {
		case []byte:
			payload.Body = body
		case string:
			payload.Body = []byte(body)
		default:
			return nil, s.mismatch(op, res.Status, fmt.Sprintf("%s body must be []byte or string, got %T", declared.MediaType, res.Body))
		}
		return payload, nil
	}

	raw, err := json.Marshal(res.Body)
	if err != nil {
		return nil, s.mismatch(op, res.Status, "body cannot be encoded: "+err.Error())
	}
	if violations := s.validator.ValidateJSON(declared.Schema, raw); len(violations) > 0 {
		e := s.mismatch(op, res.Status, "body violates the response schema")
		e.Violations = schema.Locate(violations, schema.InBody)
		return nil, e
	}
	payload.Body = raw
	return payload, nil
}

// Check validates a response received over the wire against op. It is the
// client-side counterpart of Serialize.
func (s *Serializer) Check(op *contract.Operation, status int, contentType string, body []byte) error {
	declared, ok := op.Response(status)
	if !ok {
		return s.mismatch(op, status, "status code is not declared")
	}
	if !declared.HasContent() {
		if len(body) > 0 {
			return s.mismatch(op, status, "response declares no content but a body was returned")
		}
		return nil
	}
	if !contract.IsJSON(declared.MediaType) {
		return nil
	}
	if contentType != "" && !contract.IsJSON(contentType) {
		return s.mismatch(op, status, fmt.Sprintf("expected %s, got content type %s", declared.MediaType, contentType))
	}
	if violations := s.validator.ValidateJSON(declared.Schema, body); len(violations) > 0 {
		e := s.mismatch(op, status, "body violates the response schema")
		e.Violations = schema.Locate(violations, schema.InBody)
		return e
	}
	return nil
}

func (s *Serializer) mismatch(op *contract.Operation, status int, reason string) *SerializationMismatchError {
	return &SerializationMismatchError{OperationID: op.ID, Status: status, Reason: reason}
}
