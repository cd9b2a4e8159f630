package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRouting   Category = "routing"
	CategoryConfig    Category = "config"
	CategoryComponent Category = "component"
	CategoryBuild     Category = "build"
	CategoryCLI       Category = "cli"
)

// Location represents a position in a configuration file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// MeteoError is a structured error with a code, a hint and an optional cause.
type MeteoError struct {
	// Code is a unique error identifier (e.g., "E102").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of this occurrence.
	Detail string

	// Location is the file position the error refers to, if any.
	Location *Location

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *MeteoError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *MeteoError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a MeteoError with the same code.
func (e *MeteoError) Is(target error) bool {
	t, ok := target.(*MeteoError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithLocation records the file position the error refers to.
func (e *MeteoError) WithLocation(file string, line, column int) *MeteoError {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *MeteoError) WithSuggestion(s string) *MeteoError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *MeteoError) WithDetail(d string) *MeteoError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted explanation to the error.
func (e *MeteoError) WithDetailf(format string, args ...any) *MeteoError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *MeteoError) Wrap(err error) *MeteoError {
	e.Wrapped = err
	return e
}

// New creates a MeteoError from a registered error code.
func New(code string) *MeteoError {
	template, ok := registry[code]
	if !ok {
		return &MeteoError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &MeteoError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
	}
}

// Newf creates a new MeteoError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *MeteoError {
	return &MeteoError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a MeteoError.
// Errors that already carry a MeteoError are returned unchanged.
func FromError(err error, code string) *MeteoError {
	if err == nil {
		return nil
	}
	var me *MeteoError
	if stderrors.As(err, &me) {
		return me
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err or anything it wraps is a MeteoError with code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &MeteoError{Code: code})
}

// CodeOf returns the code of the first MeteoError in err's chain.
func CodeOf(err error) string {
	var me *MeteoError
	if stderrors.As(err, &me) {
		return me.Code
	}
	return ""
}
