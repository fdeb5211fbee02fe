package model

import (
	"errors"
	"fmt"
	"strings"
)

// Generation-time errors shared by the translator, writer and pipeline.
var (
	// ErrUnknownType indicates a type name outside the closed enumeration.
	ErrUnknownType = errors.New("model: unknown type")

	// ErrUnsupportedShape indicates a rank beyond what generation supports.
	ErrUnsupportedShape = errors.New("model: unsupported shape")

	// ErrUntypedConstruct indicates a name that could not be statically typed.
	ErrUntypedConstruct = errors.New("model: untyped construct")

	// ErrUnsupportedStatement indicates a method body construct the
	// translator does not lower.
	ErrUnsupportedStatement = errors.New("model: unsupported statement")
)

// GenerationError wraps a generation failure with the model, method and
// field names needed to locate the offending construct.
type GenerationError struct {
	Model   string
	Method  string
	Name    string
	Detail  string
	Wrapped error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s", e.Model)
	if e.Method != "" {
		fmt.Fprintf(&b, ": method %s", e.Method)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, ": %s", e.Name)
	}
	fmt.Fprintf(&b, ": %v", e.Wrapped)
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error {
	return e.Wrapped
}
