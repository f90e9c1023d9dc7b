package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error types for the cross-reference engine
type ErrorType string

const (
	// Database errors
	ErrorTypeIO     ErrorType = "io"
	ErrorTypeFormat ErrorType = "format"

	// Query errors
	ErrorTypeRegex     ErrorType = "regex"
	ErrorTypeNotSymbol ErrorType = "not_symbol"
	ErrorTypeSearch    ErrorType = "search"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// Sentinel causes carried by QueryError
var (
	ErrNotASymbol    = errors.New("pattern is not a valid symbol")
	ErrRegexCompile  = errors.New("invalid regular expression")
	ErrNoQuery       = errors.New("no query initialised")
	ErrNoTextSearch  = errors.New("text search is not configured")
	ErrStartOfStream = errors.New("scanned past the start of the database")
)

// DatabaseError is a read or seek failure on the database or index files.
// The query in progress is aborted; the engine stays usable.
type DatabaseError struct {
	Type       ErrorType
	Operation  string
	Path       string
	Offset     int64
	Underlying error
	Timestamp  time.Time
}

// NewDatabaseError creates a new I/O error with context
func NewDatabaseError(op, path string, offset int64, err error) *DatabaseError {
	return &DatabaseError{
		Type:       ErrorTypeIO,
		Operation:  op,
		Path:       path,
		Offset:     offset,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *DatabaseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s failed for %s at offset %d: %v", e.Type, e.Operation, e.Path, e.Offset, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed at offset %d: %v", e.Type, e.Operation, e.Offset, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *DatabaseError) Unwrap() error {
	return e.Underlying
}

// QueryError rejects a pattern before any scan starts
type QueryError struct {
	Type       ErrorType
	Pattern    string
	Underlying error
	Timestamp  time.Time
}

// NewQueryError creates a new query error. The type is derived from the cause.
func NewQueryError(pattern string, err error) *QueryError {
	typ := ErrorTypeSearch
	switch {
	case errors.Is(err, ErrNotASymbol):
		typ = ErrorTypeNotSymbol
	case errors.Is(err, ErrRegexCompile):
		typ = ErrorTypeRegex
	}
	return &QueryError{
		Type:       typ,
		Pattern:    pattern,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed for pattern %q: %v", e.Pattern, e.Underlying)
}

// Unwrap returns the underlying error
func (e *QueryError) Unwrap() error {
	return e.Underlying
}

// FormatError reports a database whose structure violates the record layout.
// It is unrecoverable: the database can no longer be trusted.
type FormatError struct {
	Type      ErrorType
	Path      string
	Offset    int64
	Reason    string
	Timestamp time.Time
}

// NewFormatError creates a new internal format error
func NewFormatError(path string, offset int64, reason string) *FormatError {
	return &FormatError{
		Type:      ErrorTypeFormat,
		Path:      path,
		Offset:    offset,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *FormatError) Error() string {
	return fmt.Sprintf("internal error: cannot get source line from database %s at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// IsFatal reports whether err must stop the whole program
func IsFatal(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
