package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating an HtmlcError if the
// input is not already one. A wrapped HtmlcError keeps its path.
func Wrap(err error, errType ErrorType, code, message string) *HtmlcError {
	if err == nil {
		return nil
	}

	var he *HtmlcError
	if errors.As(err, &he) {
		return &HtmlcError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Path:        he.Path,
			Cause:       he,
			Recoverable: he.Recoverable,
		}
	}

	return &HtmlcError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeCSS || errType == ErrorTypeJS,
	}
}

// WrapIO wraps an error as an I/O error on path.
func WrapIO(err error, code, message, path string) *HtmlcError {
	he := Wrap(err, ErrorTypeIO, code, message)
	if he != nil {
		he.Path = path
		he.Recoverable = false
	}
	return he
}

// WrapParse wraps a document parse failure for path.
func WrapParse(err error, path string) *HtmlcError {
	he := Wrap(err, ErrorTypeParse, "PARSE_FAILED", "cannot parse document")
	if he != nil {
		he.Path = path
		he.Recoverable = false
	}
	return he
}
