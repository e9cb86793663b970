package contract

import "fmt"

// MalformedContractError is returned when a document cannot be parsed into
// a usable contract
type MalformedContractError struct {
	Location string
	Reason   string
	Err      error
}

func (e *MalformedContractError) Error() string {
	msg := "malformed contract"
	if e.Location != "" {
		msg += " at " + e.Location
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedContractError) Unwrap() error { return e.Err }

// SchemaReferenceError is returned when a $ref does not resolve
type SchemaReferenceError struct {
	Ref      string
	Location string
	Reason   string
}

func (e *SchemaReferenceError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("unresolved reference %q at %s: %s", e.Ref, e.Location, e.Reason)
	}
	return fmt.Sprintf("unresolved reference %q: %s", e.Ref, e.Reason)
}

func malformed(location, format string, args ...any) *MalformedContractError {
	return &MalformedContractError{Location: location, Reason: fmt.Sprintf(format, args...)}
}
