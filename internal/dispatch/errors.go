package dispatch

import (
	"fmt"
	"strings"
)

// NotFoundError means no operation is declared for the path
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no operation declared for %s %s", e.Method, e.Path)
}

// MethodNotAllowedError means the path is declared, but not for Method
type MethodNotAllowedError struct {
	Method  string
	Path    string
	Allowed []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed for %s (allowed: %s)", e.Method, e.Path, strings.Join(e.Allowed, ", "))
}
