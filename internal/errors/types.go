// Package errors defines the structured error type used across htmlc.
//
// Every failure that can end an entry's build is wrapped into an HtmlcError
// carrying the failing stage, a short machine-readable code and the file it
// concerns. Callers classify errors with the Is* helpers instead of matching
// strings.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeCSS      ErrorType = "css"
	ErrorTypeJS       ErrorType = "js"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// HtmlcError is a structured error type with context.
type HtmlcError struct {
	Type    ErrorType
	Code    string
	Message string
	Path    string
	Cause   error
	// Recoverable errors degrade a build instead of failing it.
	Recoverable bool
}

// Error implements the error interface.
func (e *HtmlcError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *HtmlcError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an HtmlcError of the same type and code.
func (e *HtmlcError) Is(target error) bool {
	var t *HtmlcError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithPath attaches the file the error concerns.
func (e *HtmlcError) WithPath(path string) *HtmlcError {
	e.Path = path
	return e
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *HtmlcError {
	return &HtmlcError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewParseError creates a document parse error.
func NewParseError(code, message string, cause error) *HtmlcError {
	return &HtmlcError{Type: ErrorTypeParse, Code: code, Message: message, Cause: cause}
}

// NewCSSError creates a stylesheet processing error.
func NewCSSError(code, message string, cause error) *HtmlcError {
	return &HtmlcError{Type: ErrorTypeCSS, Code: code, Message: message, Cause: cause, Recoverable: true}
}

// NewJSError creates a script processing error.
func NewJSError(code, message string, cause error) *HtmlcError {
	return &HtmlcError{Type: ErrorTypeJS, Code: code, Message: message, Cause: cause, Recoverable: true}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *HtmlcError {
	return &HtmlcError{Type: ErrorTypeConfig, Code: code, Message: message}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *HtmlcError {
	return &HtmlcError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: cause}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var he *HtmlcError
	if errors.As(err, &he) {
		return he.Recoverable
	}
	return false
}

// TypeOf returns the ErrorType of the outermost HtmlcError in err's chain,
// or the empty string.
func TypeOf(err error) ErrorType {
	var he *HtmlcError
	if errors.As(err, &he) {
		return he.Type
	}
	return ""
}

// IsIOError checks if an error is I/O-related.
func IsIOError(err error) bool { return TypeOf(err) == ErrorTypeIO }

// IsParseError checks if an error comes from document parsing.
func IsParseError(err error) bool { return TypeOf(err) == ErrorTypeParse }

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool { return TypeOf(err) == ErrorTypeConfig }
